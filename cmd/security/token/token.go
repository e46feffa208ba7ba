package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

const (
	// DefaultBytes is the entropy of a reset token (32 bytes = 256 bits).
	DefaultBytes = 32

	// MinBytes is the smallest entropy we allow a caller to request.
	// Anything below this is guessable enough to defeat the single-use design.
	MinBytes = 16
)

// New returns a new reset token: DefaultBytes of crypto/rand encoded as hex.
func New() (string, error) {
	return NewN(DefaultBytes)
}

// NewN returns a reset token with n random bytes (2n hex chars).
func NewN(n int) (string, error) {
	if n < MinBytes {
		return "", ErrTooFewBytes
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Equal compares two token strings in constant time.
// Length is not secret for fixed-size tokens, so a length mismatch returns early.
func Equal(a, b string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
