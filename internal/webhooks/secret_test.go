package webhooks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSecret_Format(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(secret, SecretPrefix))
	require.True(t, ValidateSecretFormat(secret))
}

func TestGenerateSecret_Unique(t *testing.T) {
	first, err := GenerateSecret()
	require.NoError(t, err)
	second, err := GenerateSecret()
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestValidateSecretFormat_Invalid(t *testing.T) {
	require.False(t, ValidateSecretFormat("nope_abc"))
	require.False(t, ValidateSecretFormat("whsec_!!!"))
	require.False(t, ValidateSecretFormat("whsec_short"))
	require.False(t, ValidateSecretFormat(""))
}

func TestMaskSecret(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)

	masked := MaskSecret(secret)
	require.True(t, strings.HasPrefix(masked, SecretPrefix))
	require.True(t, strings.HasSuffix(masked, secret[len(secret)-4:]))
	require.NotContains(t, masked, secret[len(SecretPrefix):len(secret)-4])

	// Degenerate inputs never echo back what they were given.
	require.Equal(t, "whsec_****", MaskSecret("tiny"))
}
