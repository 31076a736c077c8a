package webhooks

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateTarget(t *testing.T) {
	valid := []string{"task.created", "task.updated"}

	require.NoError(t, ValidateTarget("https://example.com/hooks", valid))
	require.NoError(t, ValidateTarget("http://internal:8080/cb", valid))

	require.ErrorIs(t, ValidateTarget("ftp://example.com", valid), ErrInvalidURL)
	require.ErrorIs(t, ValidateTarget("not a url", valid), ErrInvalidURL)
	require.ErrorIs(t, ValidateTarget("", valid), ErrInvalidURL)

	require.ErrorIs(t, ValidateTarget("https://example.com", nil), ErrNoEventKinds)
	require.ErrorIs(t, ValidateTarget("https://example.com", []string{"task.archived"}), ErrInvalidEventKind)
	// Matching is case-sensitive, so registration is too.
	require.ErrorIs(t, ValidateTarget("https://example.com", []string{"Task.Created"}), ErrInvalidEventKind)
}

func TestSubscriptionInfo_MasksSecret(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)

	sub := Subscription{
		URL:    "https://example.com/hooks",
		Secret: secret,
		Events: []string{"task.created"},
	}

	info := sub.Info()
	require.NotEqual(t, secret, info.MaskedSecret)
	require.NotContains(t, info.MaskedSecret, secret[len(SecretPrefix):len(secret)-4])
}
