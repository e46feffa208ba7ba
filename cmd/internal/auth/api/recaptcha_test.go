package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"rnbw/cmd/internal/reset"
)

func TestRecaptchaVerifier_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm error: %v", err)
		}
		if got := r.PostForm.Get("secret"); got != "sekret" {
			t.Fatalf("secret = %q", got)
		}
		if got := r.PostForm.Get("response"); got != "proof-1" {
			t.Fatalf("response = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	v := NewRecaptchaVerifier(RecaptchaConfig{Secret: "sekret", Endpoint: srv.URL})
	if err := v.Verify(context.Background(), "proof-1", nil); err != nil {
		t.Fatalf("Verify error: %v", err)
	}
}

func TestRecaptchaVerifier_Rejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
	}))
	defer srv.Close()

	v := NewRecaptchaVerifier(RecaptchaConfig{Secret: "sekret", Endpoint: srv.URL})
	err := v.Verify(context.Background(), "bad", nil)
	if !errors.Is(err, reset.ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	var ve reset.VerificationError
	if !errors.As(err, &ve) || len(ve.Codes) != 1 || ve.Codes[0] != "invalid-input-response" {
		t.Fatalf("expected oracle codes, got %v", err)
	}
}

func TestRecaptchaVerifier_RejectionWithoutCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": false}`))
	}))
	defer srv.Close()

	v := NewRecaptchaVerifier(RecaptchaConfig{Secret: "sekret", Endpoint: srv.URL})
	var ve reset.VerificationError
	if err := v.Verify(context.Background(), "bad", nil); !errors.As(err, &ve) || len(ve.Codes) == 0 {
		t.Fatalf("expected placeholder code, got %v", err)
	}
}

func TestRecaptchaVerifier_MissingSecret(t *testing.T) {
	// Development bypasses verification.
	dev := NewRecaptchaVerifier(RecaptchaConfig{Environment: "development"})
	if err := dev.Verify(context.Background(), "anything", nil); err != nil {
		t.Fatalf("development bypass failed: %v", err)
	}

	// Everywhere else fails closed.
	prod := NewRecaptchaVerifier(RecaptchaConfig{Environment: "production"})
	if err := prod.Verify(context.Background(), "anything", nil); !errors.Is(err, ErrRecaptchaNotConfigured) {
		t.Fatalf("expected ErrRecaptchaNotConfigured, got %v", err)
	}
}
