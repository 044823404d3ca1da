package login

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

const sessionTokenBytes = 32

// NewSessionToken returns a random base58 token for the session cookie.
func NewSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base58.Encode(buf), nil
}

// HashSessionToken returns the value stored for a session token: base58(sha256(token)).
func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base58.Encode(sum[:])
}
