package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateSlug(t *testing.T) {
	require.NoError(t, ValidateSlug("acme"))
	require.NoError(t, ValidateSlug("acme-corp-2"))
	require.NoError(t, ValidateSlug("ACME")) // normalized to lowercase first

	require.ErrorIs(t, ValidateSlug("ab"), ErrSlugTooShort)
	require.ErrorIs(t, ValidateSlug(strings.Repeat("a", 65)), ErrSlugTooLong)
	require.ErrorIs(t, ValidateSlug("-acme"), ErrInvalidSlug)
	require.ErrorIs(t, ValidateSlug("acme-"), ErrInvalidSlug)
	require.ErrorIs(t, ValidateSlug("ac_me"), ErrInvalidSlug)
}

func TestValidateName(t *testing.T) {
	require.NoError(t, ValidateName("Acme Corp"))
	require.ErrorIs(t, ValidateName("   "), ErrNameRequired)
	require.ErrorIs(t, ValidateName(strings.Repeat("x", 201)), ErrNameTooLong)
}
