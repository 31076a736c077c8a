package orgs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateOrgUID_Format(t *testing.T) {
	uid, err := GenerateOrgUID()
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(uid, OrgUIDPrefix))
	require.Len(t, uid, 10)
	require.True(t, ValidateOrgUIDFormat(uid))
}

func TestValidateOrgUIDFormat(t *testing.T) {
	require.True(t, ValidateOrgUIDFormat("ORG-AB12CD"))
	require.False(t, ValidateOrgUIDFormat("ORG-ab12cd"))
	require.False(t, ValidateOrgUIDFormat("ORG-AB12C"))
	require.False(t, ValidateOrgUIDFormat("ORG-AB12CDE"))
	require.False(t, ValidateOrgUIDFormat("XRG-AB12CD"))
	require.False(t, ValidateOrgUIDFormat("ORG-GH12CD"))
	require.False(t, ValidateOrgUIDFormat(""))
}
