package events

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the payload signature on outbound webhook requests.
const SignatureHeader = "X-Hub-Signature-256"

// Sign computes the signature for the exact payload bytes using the
// subscriber's secret: "sha256=" + hex(HMAC-SHA256(secret, payload)).
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches the payload bytes under
// the given secret. Comparison is constant-time.
func VerifySignature(body []byte, secret, signature string) bool {
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
