package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// AnonymizeUserID derives an opaque identifier from an email address.
// Raw emails never reach the analytics store or the rate-limit map.
func AnonymizeUserID(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])[:16]
}

// PartialUserID keeps the first 8 characters of the email for debuggability.
func PartialUserID(email string) string {
	if len(email) <= 8 {
		return email + "..."
	}
	return email[:8] + "..."
}

// GenerateSessionToken returns a URL-safe opaque bearer token.
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
