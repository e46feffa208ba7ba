package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rnbw/cmd/security/password"
)

// Manager owns password hashing/verification policy and user mutation rules.
// All durable state lives in the Store; the manager holds no private copies.
type Manager struct {
	store Store
	cfg   password.Config
	log   *slog.Logger
}

// NewManager constructs a Manager. cfg is immutable for the process lifetime;
// the cost factor is clamped to the supported range at hash time.
func NewManager(store Store, cfg password.Config, log *slog.Logger) (*Manager, error) {
	if store == nil {
		return nil, OpError{Op: "identity.NewManager", Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: store, cfg: cfg, log: log}, nil
}

// Register creates a new user.
//
// Rules:
// - every field is required (presence only; dob and username are opaque)
// - email is normalized and must be unique (ConflictError on duplicate)
// - password shorter than the policy minimum fails with ErrWeakPassword
// - the stored hash is bcrypt with the configured (clamped) cost
//
// Hashing is CPU-bound on purpose; callers on a request path should budget for it.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (User, error) {
	username := strings.TrimSpace(in.Username)
	email := NormalizeEmail(in.Email)
	dob := strings.TrimSpace(in.DateOfBirth)

	if username == "" || email == "" || dob == "" || in.Password == "" {
		return User{}, OpError{Op: "identity.Register", Kind: ErrInvalidInput, Msg: "missing required fields"}
	}
	if err := m.cfg.Validate(in.Password); err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) {
			return User{}, OpError{Op: "identity.Register", Kind: ErrWeakPassword, Msg: err.Error()}
		}
		return User{}, err
	}

	if _, exists, err := m.store.GetUser(ctx, email); err != nil {
		return User{}, err
	} else if exists {
		return User{}, ConflictError{Op: "identity.Register", Field: "email"}
	}

	hash, err := m.cfg.Hash(in.Password)
	if err != nil {
		return User{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           id,
		Email:        email,
		Username:     username,
		DateOfBirth:  dob,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := m.store.PutUser(ctx, u); err != nil {
		return User{}, err
	}

	m.log.Info("identity.register", "email", email)
	return u, nil
}

// Verify checks a plaintext password against the stored hash.
// An absent user returns (false, nil) — not an error — so callers can keep the
// "no such user" and "wrong password" cases indistinguishable.
func (m *Manager) Verify(ctx context.Context, email, plaintext string) (bool, error) {
	u, ok, err := m.store.GetUser(ctx, NormalizeEmail(email))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return m.cfg.Verify(u.PasswordHash, plaintext)
}

// SetPassword re-hashes and persists a new password, leaving every other field
// untouched. Fails with NotFoundError if the user does not exist; reset flows
// must absorb that error rather than surface it.
func (m *Manager) SetPassword(ctx context.Context, email, newPlaintext string) error {
	norm := NormalizeEmail(email)

	if err := m.cfg.Validate(newPlaintext); err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) {
			return OpError{Op: "identity.SetPassword", Kind: ErrWeakPassword, Msg: err.Error()}
		}
		return err
	}

	u, ok, err := m.store.GetUser(ctx, norm)
	if err != nil {
		return err
	}
	if !ok {
		return NotFoundError{Op: "identity.SetPassword", Resource: "user"}
	}

	hash, err := m.cfg.Hash(newPlaintext)
	if err != nil {
		return err
	}

	u.PasswordHash = hash
	if err := m.store.PutUser(ctx, u); err != nil {
		return err
	}

	m.log.Info("identity.set_password", "email", norm)
	return nil
}

// GetUser exposes the store lookup for callers that already hold the email
// (e.g. building a reset email with the display name).
func (m *Manager) GetUser(ctx context.Context, email string) (User, bool, error) {
	return m.store.GetUser(ctx, NormalizeEmail(email))
}
