package core

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// SessionIDLength is the number of random bytes in a session ID.
// 32 bytes gives 256 bits of entropy.
const SessionIDLength = 32

// GenerateSessionID generates a cryptographically secure random session ID.
// Returns a base64 URL-encoded string of 32 random bytes, safe for use in
// cookies and URLs without further encoding.
func GenerateSessionID() (string, error) {
	bytes := make([]byte, SessionIDLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session ID: %w", err)
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(bytes), nil
}
