package identity

import "strings"

// NormalizeEmail performs case-insensitive canonicalization.
// The normalized form is the unique user key everywhere in this module.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
