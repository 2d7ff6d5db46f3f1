package verify

import (
	"os"
	"strconv"
	"time"
)

// Config defines runtime configuration for the verification workflow.
type Config struct {
	// CodeTTL is how long an issued code stays redeemable.
	CodeTTL time.Duration

	// ResendLimit is the number of resends allowed before throttling.
	ResendLimit int

	// ResendWindow is how long after the most recent resend the budget
	// stays exhausted. The counter itself resets only on successful
	// verification; once the window elapses since the last resend,
	// further resends are allowed again (sliding refill, not a fixed
	// window reset).
	ResendWindow time.Duration
}

// DefaultConfig returns the default verification policy:
// 10-minute codes, 3 resends, refilled an hour after the last resend.
func DefaultConfig() Config {
	return Config{
		CodeTTL:      10 * time.Minute,
		ResendLimit:  3,
		ResendWindow: time.Hour,
	}
}

// LoadConfigFromEnv loads verification configuration from environment variables.
//
// Optional:
//   - CHITTER_VERIFY_CODE_TTL (Go duration)
//   - CHITTER_VERIFY_RESEND_LIMIT
//   - CHITTER_VERIFY_RESEND_WINDOW (Go duration)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("CHITTER_VERIFY_CODE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.CodeTTL = d
	}

	if v := os.Getenv("CHITTER_VERIFY_RESEND_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, ErrConfig
		}
		cfg.ResendLimit = n
	}

	if v := os.Getenv("CHITTER_VERIFY_RESEND_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.ResendWindow = d
	}

	return cfg, nil
}
