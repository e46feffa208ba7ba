// Package token generates and compares the opaque secrets used by the
// password-reset flow.
//
// Reset tokens are high-entropy random values (256 bits by default) encoded
// as lowercase hex. They are single-use and short-lived; the store keeps the
// raw value and comparison is constant-time.
package token
