package identity

import (
	"context"
	"time"
)

// User is rnbw's canonical account record.
// IMPORTANT: PasswordHash is the bcrypt hash; the plaintext is never stored or logged.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	DateOfBirth  string    `json:"dob"`
	PasswordHash string    `json:"password"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RegisterInput describes a registration request.
// All fields are required; DateOfBirth is opaque (presence only).
type RegisterInput struct {
	Username    string
	Email       string
	DateOfBirth string
	Password    string
	Now         time.Time
}

// Store is the credential persistence boundary.
//
// Contract:
// - GetUser returns ok=false (not an error) when the email is absent.
// - PutUser is a full upsert keyed by normalized email; it never partially applies.
// - All operations on one store serialize against each other: implementations do
//   whole-collection read-modify-write, so the lock is per store, never per record.
type Store interface {
	GetUser(ctx context.Context, email string) (User, bool, error)
	PutUser(ctx context.Context, u User) error
	ListUsers(ctx context.Context) (map[string]User, error)
}
