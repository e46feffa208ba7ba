package token

import (
	"regexp"
	"testing"
)

func TestNew_Shape(t *testing.T) {
	tok, err := New()
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if len(tok) != DefaultBytes*2 {
		t.Fatalf("expected %d hex chars, got %d", DefaultBytes*2, len(tok))
	}
	if !regexp.MustCompile(`^[0-9a-f]+$`).MatchString(tok) {
		t.Fatalf("expected lowercase hex, got %q", tok)
	}
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		tok, err := New()
		if err != nil {
			t.Fatalf("New error: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token generated: %q", tok)
		}
		seen[tok] = true
	}
}

func TestNewN_RejectsLowEntropy(t *testing.T) {
	if _, err := NewN(MinBytes - 1); err != ErrTooFewBytes {
		t.Fatalf("expected ErrTooFewBytes, got %v", err)
	}
	if _, err := NewN(MinBytes); err != nil {
		t.Fatalf("expected ok at floor, got %v", err)
	}
}

func TestEqual(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if !Equal(a, a) {
		t.Fatalf("expected equal")
	}
	b, err := New()
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if Equal(a, b) {
		t.Fatalf("expected not equal")
	}
	if Equal("", "") {
		t.Fatalf("empty strings must not compare equal")
	}
	if Equal(a, a[:len(a)-2]) {
		t.Fatalf("length mismatch must not compare equal")
	}
}
