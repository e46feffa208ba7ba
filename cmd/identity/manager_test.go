package identity

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"rnbw/cmd/security/password"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	store, err := NewFileStore(filepath.Join(t.TempDir(), "users.json"))
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	m, err := NewManager(store, password.DefaultConfig(), slog.Default())
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	return m
}

func registerAlice(t *testing.T, m *Manager) User {
	t.Helper()

	u, err := m.Register(context.Background(), RegisterInput{
		Username:    "alice",
		Email:       "alice@example.com",
		DateOfBirth: "1990-01-01",
		Password:    "hunter22",
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	return u
}

func TestRegisterAndVerify(t *testing.T) {
	m := newTestManager(t)
	u := registerAlice(t, m)

	if u.Email != "alice@example.com" {
		t.Fatalf("unexpected email %q", u.Email)
	}
	if u.PasswordHash == "" || u.PasswordHash == "hunter22" {
		t.Fatalf("password must be stored hashed")
	}
	if u.ID == "" {
		t.Fatalf("expected a generated id")
	}
	if u.CreatedAt.IsZero() {
		t.Fatalf("expected a creation timestamp")
	}

	ok, err := m.Verify(context.Background(), "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatalf("expected correct password to verify")
	}

	ok, err = m.Verify(context.Background(), "alice@example.com", "hunter23")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestRegister_DuplicateEmailCaseInsensitive(t *testing.T) {
	m := newTestManager(t)
	registerAlice(t, m)

	_, err := m.Register(context.Background(), RegisterInput{
		Username:    "alice2",
		Email:       "Alice@Example.COM",
		DateOfBirth: "1991-02-02",
		Password:    "hunter33",
	})
	if !IsConflict(err) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	m := newTestManager(t)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"no username", RegisterInput{Email: "a@b.com", DateOfBirth: "1990-01-01", Password: "hunter22"}},
		{"no email", RegisterInput{Username: "a", DateOfBirth: "1990-01-01", Password: "hunter22"}},
		{"no dob", RegisterInput{Username: "a", Email: "a@b.com", Password: "hunter22"}},
		{"no password", RegisterInput{Username: "a", Email: "a@b.com", DateOfBirth: "1990-01-01"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := m.Register(context.Background(), tc.in); !IsInvalidInput(err) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestRegister_WeakPassword(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Register(context.Background(), RegisterInput{
		Username:    "bob",
		Email:       "bob@example.com",
		DateOfBirth: "1990-01-01",
		Password:    "12345",
	})
	if !IsWeakPassword(err) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestVerify_AbsentUserIsFalseNotError(t *testing.T) {
	m := newTestManager(t)

	ok, err := m.Verify(context.Background(), "ghost@example.com", "whatever")
	if err != nil {
		t.Fatalf("expected nil error for absent user, got %v", err)
	}
	if ok {
		t.Fatalf("expected false for absent user")
	}
}

func TestSetPassword(t *testing.T) {
	m := newTestManager(t)
	before := registerAlice(t, m)

	if err := m.SetPassword(context.Background(), "ALICE@example.com", "hunter33"); err != nil {
		t.Fatalf("SetPassword error: %v", err)
	}

	ok, err := m.Verify(context.Background(), "alice@example.com", "hunter33")
	if err != nil || !ok {
		t.Fatalf("expected new password to verify: ok=%v err=%v", ok, err)
	}
	ok, err = m.Verify(context.Background(), "alice@example.com", "hunter22")
	if err != nil || ok {
		t.Fatalf("expected old password to fail: ok=%v err=%v", ok, err)
	}

	// Other fields stay untouched.
	after, found, err := m.GetUser(context.Background(), "alice@example.com")
	if err != nil || !found {
		t.Fatalf("GetUser failed: found=%v err=%v", found, err)
	}
	if after.Username != before.Username || after.DateOfBirth != before.DateOfBirth ||
		after.ID != before.ID || !after.CreatedAt.Equal(before.CreatedAt) {
		t.Fatalf("SetPassword must not touch profile fields: before=%+v after=%+v", before, after)
	}
}

func TestSetPassword_NotFound(t *testing.T) {
	m := newTestManager(t)

	err := m.SetPassword(context.Background(), "ghost@example.com", "hunter33")
	if !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestRegister_TimestampFromInput(t *testing.T) {
	m := newTestManager(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	u, err := m.Register(context.Background(), RegisterInput{
		Username:    "carol",
		Email:       "carol@example.com",
		DateOfBirth: "1992-03-03",
		Password:    "hunter22",
		Now:         now,
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if !u.CreatedAt.Equal(now) {
		t.Fatalf("expected CreatedAt=%v, got %v", now, u.CreatedAt)
	}
}

func TestOpErrorUnwrap(t *testing.T) {
	err := OpError{Op: "identity.test", Kind: ErrInvalidInput, Msg: "x"}
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("OpError must unwrap to its kind")
	}
}
