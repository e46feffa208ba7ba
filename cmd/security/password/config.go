package password

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// MinCost and MaxCost bound the bcrypt cost factor.
	// Below 10 is too cheap for offline attack resistance; above 15 makes
	// interactive logins unusable. Out-of-range values clamp to DefaultCost.
	MinCost = 10
	MaxCost = 15

	// DefaultCost is the bcrypt cost used when nothing is configured.
	DefaultCost = 10
)

// Policy controls password validation boundaries.
type Policy struct {
	MinLength int
	MaxLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	Cost   int
	Policy Policy
}

// DefaultConfig returns the baseline hashing configuration.
func DefaultConfig() Config {
	return Config{
		Cost: DefaultCost,
		Policy: Policy{
			MinLength: 6,
			MaxLength: 256,
		},
	}
}

// ClampCost maps an arbitrary cost to the allowed range.
// Values outside [MinCost..MaxCost] fall back to DefaultCost rather than the
// nearest bound, so a typo in config never silently produces the most
// expensive setting.
func ClampCost(cost int) int {
	if cost < MinCost || cost > MaxCost {
		return DefaultCost
	}
	return cost
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - RNBW_BCRYPT_COST (clamped to [10..15], default 10)
// - RNBW_PASSWORD_MIN_LEN
// - RNBW_PASSWORD_MAX_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("RNBW_BCRYPT_COST"); ok {
		n, err := atoiPositiveInt(v, 1, 31)
		if err != nil {
			return Config{}, fmt.Errorf("RNBW_BCRYPT_COST: %w", err)
		}
		cfg.Cost = ClampCost(n)
	}

	if v, ok := os.LookupEnv("RNBW_PASSWORD_MIN_LEN"); ok {
		n, err := atoiPositiveInt(v, 1, 1024)
		if err != nil {
			return Config{}, fmt.Errorf("RNBW_PASSWORD_MIN_LEN: %w", err)
		}
		cfg.Policy.MinLength = n
	}

	if v, ok := os.LookupEnv("RNBW_PASSWORD_MAX_LEN"); ok {
		n, err := atoiPositiveInt(v, 1, 4096)
		if err != nil {
			return Config{}, fmt.Errorf("RNBW_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.Policy.MaxLength = n
	}

	// Final sanity.
	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func atoiPositiveInt(s string, minVal, maxVal int) (int, error) {
	s = strings.TrimSpace(s)
	i64, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}

	i := int(i64)
	if i < minVal || i > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return i, nil
}
