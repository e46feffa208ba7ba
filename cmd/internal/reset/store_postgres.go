package reset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rnbw/cmd/identity"
)

// PostgresStore is the per-key alternative to FileStore.
//
// Schema (managed externally):
//
//	CREATE TABLE rnbw.reset_tokens (
//	    token      text PRIMARY KEY,
//	    email      text NOT NULL,       -- normalized
//	    created_at timestamptz NOT NULL,
//	    expires_at timestamptz NOT NULL,
//	    used       boolean NOT NULL DEFAULT false
//	);
//	CREATE INDEX reset_tokens_email_idx ON rnbw.reset_tokens (email) WHERE NOT used;
//
// Issue runs invalidate+insert in one transaction to keep the at-most-one-live
// invariant under concurrent completions.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a pgx pool. The pool lifecycle is owned by the caller.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("reset: %w: nil pool", ErrInvalidInput)
	}
	return &PostgresStore{pool: pool}, nil
}

// Append adds a token record.
func (s *PostgresStore) Append(ctx context.Context, t Token) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rnbw.reset_tokens (token, email, created_at, expires_at, used)
		VALUES ($1, $2, $3, $4, $5)
	`, t.Token, identity.NormalizeEmail(t.Email), t.CreatedAt, t.ExpiresAt, t.Used)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

// List returns the full collection ordered by creation time.
func (s *PostgresStore) List(ctx context.Context) ([]Token, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token, email, created_at, expires_at, used
		FROM rnbw.reset_tokens
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// ReplaceAll overwrites the collection with tokens, transactionally.
func (s *PostgresStore) ReplaceAll(ctx context.Context, tokens []Token) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM rnbw.reset_tokens`); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	for _, t := range tokens {
		_, err := tx.Exec(ctx, `
			INSERT INTO rnbw.reset_tokens (token, email, created_at, expires_at, used)
			VALUES ($1, $2, $3, $4, $5)
		`, t.Token, identity.NormalizeEmail(t.Email), t.CreatedAt, t.ExpiresAt, t.Used)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStore, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

// FindValid selects the unused, unexpired record matching tokenValue.
func (s *PostgresStore) FindValid(ctx context.Context, tokenValue string, now time.Time) (Token, bool, error) {
	var t Token
	err := s.pool.QueryRow(ctx, `
		SELECT token, email, created_at, expires_at, used
		FROM rnbw.reset_tokens
		WHERE token = $1 AND NOT used AND expires_at > $2
	`, tokenValue, now).Scan(&t.Token, &t.Email, &t.CreatedAt, &t.ExpiresAt, &t.Used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Token{}, false, nil
		}
		return Token{}, false, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return t, true, nil
}

// InvalidateAllForEmail marks every unused record for email as used.
func (s *PostgresStore) InvalidateAllForEmail(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE rnbw.reset_tokens SET used = true
		WHERE email = $1 AND NOT used
	`, identity.NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

// MarkUsed consumes the record matching tokenValue.
func (s *PostgresStore) MarkUsed(ctx context.Context, tokenValue string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE rnbw.reset_tokens SET used = true
		WHERE token = $1
	`, tokenValue)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

// PurgeExpired drops every record with expires_at <= now.
func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM rnbw.reset_tokens WHERE expires_at <= $1
	`, now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

// Issue supersedes all live tokens for t.Email and inserts t in one transaction.
func (s *PostgresStore) Issue(ctx context.Context, t Token) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	norm := identity.NormalizeEmail(t.Email)
	if _, err := tx.Exec(ctx, `
		UPDATE rnbw.reset_tokens SET used = true
		WHERE email = $1 AND NOT used
	`, norm); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO rnbw.reset_tokens (token, email, created_at, expires_at, used)
		VALUES ($1, $2, $3, $4, $5)
	`, t.Token, norm, t.CreatedAt, t.ExpiresAt, t.Used); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

func scanTokens(rows pgx.Rows) ([]Token, error) {
	var tokens []Token
	for rows.Next() {
		var t Token
		if err := rows.Scan(&t.Token, &t.Email, &t.CreatedAt, &t.ExpiresAt, &t.Used); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStore, err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return tokens, nil
}
