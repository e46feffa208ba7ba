package api

import (
	"testing"
	"time"
)

func TestRateLimiter_FixedWindow(t *testing.T) {
	l := newRateLimiter(3, time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("1.2.3.4", now); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	ok, retryAfter := l.Allow("1.2.3.4", now.Add(10*time.Second))
	if ok {
		t.Fatalf("fourth request should be blocked")
	}
	if retryAfter != 50*time.Second {
		t.Fatalf("retryAfter = %v, want 50s", retryAfter)
	}

	// Other keys have their own budget.
	if ok, _ := l.Allow("5.6.7.8", now); !ok {
		t.Fatalf("different key should be allowed")
	}

	// The window resets after it elapses.
	if ok, _ := l.Allow("1.2.3.4", now.Add(time.Minute)); !ok {
		t.Fatalf("request after window reset should be allowed")
	}
}

func TestRateLimiter_Forgive(t *testing.T) {
	l := newRateLimiter(2, time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	l.Allow("k", now)
	l.Forgive("k", now)
	l.Allow("k", now)
	if ok, _ := l.Allow("k", now); !ok {
		t.Fatalf("forgiven request must not count against the budget")
	}
	if ok, _ := l.Allow("k", now); ok {
		t.Fatalf("budget should now be exhausted")
	}
}

func TestRateLimiter_EmptyKeyAndZeroMax(t *testing.T) {
	now := time.Now()

	l := newRateLimiter(0, time.Minute)
	if ok, _ := l.Allow("k", now); !ok {
		t.Fatalf("zero max disables the limiter")
	}

	l = newRateLimiter(1, time.Minute)
	for i := 0; i < 5; i++ {
		if ok, _ := l.Allow("", now); !ok {
			t.Fatalf("empty key is never limited")
		}
	}
}
