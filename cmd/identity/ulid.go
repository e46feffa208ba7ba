package identity

import (
	"time"

	"rnbw/cmd/identity/ids"
)

// NewULID returns a new ULID (26-char string) used as the user record id.
func NewULID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
