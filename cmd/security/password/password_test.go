package password

import "testing"

func TestHashAndVerify_OK(t *testing.T) {
	cfg := DefaultConfig()

	h, err := cfg.Hash("hunter22")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := cfg.Verify(h, "hunter22")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	cfg := DefaultConfig()

	h, err := cfg.Hash("hunter22")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := cfg.Verify(h, "hunter23")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestValidate_MinMax(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate("12345"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := cfg.Validate("123456"); err != nil {
		t.Fatalf("expected ok at min length, got %v", err)
	}

	cfg.Policy.MaxLength = 16
	if err := cfg.Validate("this password is definitely too long"); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	cfg := DefaultConfig()

	ok, err := cfg.Verify("not-a-hash", "whatever")
	if err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
	if ok {
		t.Fatalf("expected false")
	}
}

func TestClampCost(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{9, DefaultCost},
		{10, 10},
		{12, 12},
		{15, 15},
		{16, DefaultCost},
		{0, DefaultCost},
		{-1, DefaultCost},
	}
	for _, tc := range tests {
		if got := ClampCost(tc.in); got != tc.want {
			t.Fatalf("ClampCost(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
