package reset

import "time"

// Token is one reset-token record. Multiple records may exist per email, but
// Issue guarantees at most one of them is live at any time.
type Token struct {
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Used      bool      `json:"used"`
}

// Valid reports whether the token can still complete a reset.
func (t Token) Valid(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
