package webhooks

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	// SecretPrefix is the prefix for all webhook signing secrets
	SecretPrefix = "whsec_"

	// SecretBytes is the number of random bytes in a secret
	SecretBytes = 32

	maskedSuffixLen = 4
)

// GenerateSecret creates a new webhook signing secret with the format:
// whsec_<base64url>. The secret is generated once at registration and stored
// as-is; it is never regenerated implicitly.
func GenerateSecret() (string, error) {
	randomBytes := make([]byte, SecretBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return SecretPrefix + base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// ValidateSecretFormat checks if a secret has the correct format
func ValidateSecretFormat(secret string) bool {
	if len(secret) < len(SecretPrefix) {
		return false
	}

	if secret[:len(SecretPrefix)] != SecretPrefix {
		return false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(secret[len(SecretPrefix):])
	if err != nil {
		return false
	}

	return len(decoded) == SecretBytes
}

// MaskSecret returns a displayable form of a secret: the prefix, an
// ellipsis, and the last four characters.
func MaskSecret(secret string) string {
	if len(secret) <= len(SecretPrefix)+maskedSuffixLen {
		return SecretPrefix + "****"
	}
	return SecretPrefix + "…" + secret[len(secret)-maskedSuffixLen:]
}
