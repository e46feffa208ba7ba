package reset

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxTokenTTL is the hard cap on token lifetime.
	MaxTokenTTL = 24 * time.Hour

	// DefaultTokenTTL is the token lifetime when nothing is configured.
	DefaultTokenTTL = time.Hour

	// DefaultEnumDelay equalizes the latency of the no-account branch of the
	// request flow against the cost of issuing a token and sending mail.
	DefaultEnumDelay = 1000 * time.Millisecond

	// DefaultExternalTimeout bounds calls to the verification oracle and the
	// notification channel.
	DefaultExternalTimeout = 5 * time.Second
)

// Config controls the reset flow. It is built once at startup and passed into
// the Service constructor; nothing in this package reads the environment at
// call time.
type Config struct {
	// TokenTTL is clamped to (0, MaxTokenTTL]; out-of-range values fall back
	// to DefaultTokenTTL.
	TokenTTL time.Duration

	// EnumDelay is the fixed wait before answering a request for an unknown
	// email with the generic success message.
	EnumDelay time.Duration

	// MinPasswordLen is the fail-fast bound checked before any external call.
	MinPasswordLen int

	// ExternalTimeout bounds oracle and notification calls.
	ExternalTimeout time.Duration
}

// DefaultConfig returns the baseline flow configuration.
func DefaultConfig() Config {
	return Config{
		TokenTTL:        DefaultTokenTTL,
		EnumDelay:       DefaultEnumDelay,
		MinPasswordLen:  6,
		ExternalTimeout: DefaultExternalTimeout,
	}
}

// LoadConfigFromEnv loads Config from environment variables with safe defaults.
//
// Env surface:
// - RNBW_RESET_TOKEN_TTL (duration, clamped to (0..24h])
// - RNBW_ENUM_DELAY (duration)
// - RNBW_MIN_PASSWORD_LEN
// - RNBW_EXTERNAL_TIMEOUT (duration)
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.TokenTTL = ClampTTL(envDuration("RNBW_RESET_TOKEN_TTL", cfg.TokenTTL))
	cfg.EnumDelay = envDuration("RNBW_ENUM_DELAY", cfg.EnumDelay)
	cfg.MinPasswordLen = envInt("RNBW_MIN_PASSWORD_LEN", cfg.MinPasswordLen)
	cfg.ExternalTimeout = envDuration("RNBW_EXTERNAL_TIMEOUT", cfg.ExternalTimeout)

	return cfg
}

// ClampTTL maps an arbitrary lifetime to the allowed range. Non-positive or
// over-cap values fall back to DefaultTokenTTL, mirroring the cost clamp in
// security/password: a config typo never extends token lifetime.
func ClampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > MaxTokenTTL {
		return DefaultTokenTTL
	}
	return ttl
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
