// Package identity implements rnbw's credential foundation.
//
// It owns the user record, the credential store boundary (file snapshot or
// Postgres), and the credential manager that enforces password hashing and
// mutation rules.
//
// This package is intentionally dependency-light and security-first.
package identity
