package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the per-key alternative to FileStore.
//
// Schema (managed externally):
//
//	CREATE TABLE rnbw.users (
//	    email         text PRIMARY KEY,   -- normalized
//	    id            text NOT NULL,
//	    username      text NOT NULL,
//	    dob           text NOT NULL,
//	    password_hash text NOT NULL,
//	    created_at    timestamptz NOT NULL
//	);
//
// Row-level statements make the whole-collection lock of FileStore unnecessary;
// the Store contract (atomic upsert, absent-not-error lookup) is unchanged.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a pgx pool. The pool lifecycle is owned by the caller.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, OpError{Op: "identity.NewPostgresStore", Kind: ErrInvalidInput, Msg: "nil pool"}
	}
	return &PostgresStore{pool: pool}, nil
}

// GetUser looks up a user by normalized email.
func (s *PostgresStore) GetUser(ctx context.Context, email string) (User, bool, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT email, id, username, dob, password_hash, created_at
		FROM rnbw.users
		WHERE email = $1
	`, NormalizeEmail(email)).Scan(&u.Email, &u.ID, &u.Username, &u.DateOfBirth, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, false, nil
		}
		return User{}, false, OpError{Op: "identity.GetUser", Kind: ErrStore, Msg: err.Error()}
	}
	return u, true, nil
}

// PutUser upserts a user record keyed by normalized email.
func (s *PostgresStore) PutUser(ctx context.Context, u User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rnbw.users (email, id, username, dob, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO UPDATE SET
			id = EXCLUDED.id,
			username = EXCLUDED.username,
			dob = EXCLUDED.dob,
			password_hash = EXCLUDED.password_hash,
			created_at = EXCLUDED.created_at
	`, NormalizeEmail(u.Email), u.ID, u.Username, u.DateOfBirth, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return OpError{Op: "identity.PutUser", Kind: ErrStore, Msg: err.Error()}
	}
	return nil
}

// ListUsers returns the full collection keyed by normalized email.
func (s *PostgresStore) ListUsers(ctx context.Context) (map[string]User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT email, id, username, dob, password_hash, created_at
		FROM rnbw.users
	`)
	if err != nil {
		return nil, OpError{Op: "identity.ListUsers", Kind: ErrStore, Msg: err.Error()}
	}
	defer rows.Close()

	users := make(map[string]User)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Email, &u.ID, &u.Username, &u.DateOfBirth, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, OpError{Op: "identity.ListUsers", Kind: ErrStore, Msg: err.Error()}
		}
		users[u.Email] = u
	}
	if err := rows.Err(); err != nil {
		return nil, OpError{Op: "identity.ListUsers", Kind: ErrStore, Msg: err.Error()}
	}
	return users, nil
}
