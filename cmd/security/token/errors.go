package token

import "errors"

var (
	// ErrTooFewBytes is returned when a caller asks for less entropy than the floor.
	ErrTooFewBytes = errors.New("token: too few random bytes requested")
)
