// Package password provides password hashing and verification for rnbw.
//
// It wraps bcrypt with:
// - A cost factor clamped to a safe operating range (via environment variables)
// - Password policy validation (length bounds)
//
// Security notes:
// - Hashing cost is deliberately high; it is a brute-force defense, not a bug.
// - Verification uses bcrypt's constant-time comparison.
// - Hash strings are treated as untrusted input during Verify.
package password
