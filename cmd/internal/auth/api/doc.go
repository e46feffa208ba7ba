// Package api exposes the credential and password-reset HTTP surface:
// registration, login, and the three-step reset flow. It is plumbing only;
// all policy lives in cmd/identity and cmd/internal/reset.
package api
