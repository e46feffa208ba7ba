// Package reset implements the password-reset lifecycle: single-use expiring
// tokens and the flow orchestration around them.
//
// Security posture:
//   - Request responses never reveal whether an account exists (uniform message,
//     equalized latency).
//   - Completion collapses "never existed", "already used" and "expired" into one
//     invalid-token error.
//   - Issuing a token atomically supersedes all prior live tokens for that email.
package reset
