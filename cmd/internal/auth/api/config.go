package api

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// Fixed-window per-IP rate limits. Auth failures are forgiven on success
	// so a shared NAT does not lock out well-behaved clients.
	APIMax         int
	APIWindow      time.Duration
	AuthMax        int
	AuthWindow     time.Duration
	ResetMax       int
	ResetWindow    time.Duration
	RegisterMax    int
	RegisterWindow time.Duration
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		TrustProxy:     envBool("RNBW_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:   envInt64("RNBW_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
		APIMax:         envInt("RNBW_RATE_API_MAX", 100),
		APIWindow:      envDuration("RNBW_RATE_API_WINDOW", 15*time.Minute),
		AuthMax:        envInt("RNBW_RATE_AUTH_MAX", 5),
		AuthWindow:     envDuration("RNBW_RATE_AUTH_WINDOW", 15*time.Minute),
		ResetMax:       envInt("RNBW_RATE_RESET_MAX", 3),
		ResetWindow:    envDuration("RNBW_RATE_RESET_WINDOW", time.Hour),
		RegisterMax:    envInt("RNBW_RATE_REGISTER_MAX", 5),
		RegisterWindow: envDuration("RNBW_RATE_REGISTER_WINDOW", time.Hour),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
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

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
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
