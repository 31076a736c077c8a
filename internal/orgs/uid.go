package orgs

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// OrgUIDPrefix is the prefix for all organization join credentials
	OrgUIDPrefix = "ORG-"

	// orgUIDBytes is the number of random bytes in a UID (hex-encoded to 6 chars)
	orgUIDBytes = 3
)

// GenerateOrgUID creates a new organization join credential with the format
// ORG-<6 uppercase hex chars>. The UID is globally unique (enforced by the
// database), immutable once issued, and the sole out-of-band join credential.
func GenerateOrgUID() (string, error) {
	randomBytes := make([]byte, orgUIDBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return OrgUIDPrefix + strings.ToUpper(hex.EncodeToString(randomBytes)), nil
}

// ValidateOrgUIDFormat checks if a UID has the correct format
func ValidateOrgUIDFormat(uid string) bool {
	if len(uid) != len(OrgUIDPrefix)+orgUIDBytes*2 {
		return false
	}
	if !strings.HasPrefix(uid, OrgUIDPrefix) {
		return false
	}
	for _, c := range uid[len(OrgUIDPrefix):] {
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
