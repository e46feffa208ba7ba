package reset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is returned when a required field is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrVerificationFailed is returned when the human-verification oracle rejects
	// the request. It may carry oracle detail via VerificationError.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrInvalidToken covers unknown, used and expired tokens.
	// The three cases are deliberately indistinguishable to the caller.
	ErrInvalidToken = errors.New("invalid or expired reset token")

	// ErrUpdateFailed is returned when the password update could not be applied.
	// The token stays unused so the legitimate user can retry.
	ErrUpdateFailed = errors.New("password update failed")

	// ErrStore is returned for unexpected persistence failures.
	ErrStore = errors.New("token store unavailable")
)

// VerificationError carries the oracle's error codes for a rejected proof.
// Codes are safe to expose (they describe the proof, not the account).
type VerificationError struct {
	Codes []string
}

func (e VerificationError) Error() string {
	if len(e.Codes) == 0 {
		return ErrVerificationFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrVerificationFailed.Error(), strings.Join(e.Codes, ","))
}

func (e VerificationError) Unwrap() error { return ErrVerificationFailed }
