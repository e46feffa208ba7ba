package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// rateLimiter is a fixed-window per-key counter. Windows are tracked
// independently per key; a key's window starts at its first request.
//
// State is in-process only. With multiple replicas each instance enforces its
// own budget, which is acceptable for abuse throttling (never correctness).
type rateLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	buckets map[string]*rateBucket
}

type rateBucket struct {
	count   int
	started time.Time
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		max:     max,
		window:  window,
		buckets: make(map[string]*rateBucket),
	}
}

// Allow records one request for key and reports whether it is within budget.
// When over budget it returns the time left until the window resets.
func (l *rateLimiter) Allow(key string, now time.Time) (bool, time.Duration) {
	if l == nil || l.max <= 0 || key == "" {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.Sub(b.started) >= l.window {
		l.buckets[key] = &rateBucket{count: 1, started: now}
		l.sweepLocked(now)
		return true, 0
	}

	if b.count >= l.max {
		return false, b.started.Add(l.window).Sub(now)
	}
	b.count++
	return true, 0
}

// Forgive undoes one recorded request for key. Used by the login tier so
// successful attempts do not count against the failure budget.
func (l *rateLimiter) Forgive(key string, now time.Time) {
	if l == nil || key == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.Sub(b.started) >= l.window {
		return
	}
	if b.count > 0 {
		b.count--
	}
}

// sweepLocked drops stale buckets. Called opportunistically while the lock is
// already held; cost is bounded by the number of distinct keys in one window.
func (l *rateLimiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.started) >= l.window {
			delete(l.buckets, key)
		}
	}
}

// limiterSet holds the per-tier limiters.
type limiterSet struct {
	api      *rateLimiter
	auth     *rateLimiter
	reset    *rateLimiter
	register *rateLimiter
}

func newLimiterSet(cfg Config) *limiterSet {
	return &limiterSet{
		api:      newRateLimiter(cfg.APIMax, cfg.APIWindow),
		auth:     newRateLimiter(cfg.AuthMax, cfg.AuthWindow),
		reset:    newRateLimiter(cfg.ResetMax, cfg.ResetWindow),
		register: newRateLimiter(cfg.RegisterMax, cfg.RegisterWindow),
	}
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration, msg string) {
	if retryAfter > 0 {
		secs := int64(retryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	writeError(w, http.StatusTooManyRequests, msg)
}
