package session

import (
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef" // 32 bytes

func TestLoadConfigFromEnv_MissingSecret(t *testing.T) {
	t.Setenv("CHITTER_JWT_SECRET", "")
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig on missing secret, got %v", err)
	}
}

func TestLoadConfigFromEnv_ShortSecret(t *testing.T) {
	t.Setenv("CHITTER_JWT_SECRET", "too-short")
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig on short secret, got %v", err)
	}
}

func TestLoadConfigFromEnv_InvalidDurations(t *testing.T) {
	t.Setenv("CHITTER_JWT_SECRET", testSecret)
	t.Setenv("CHITTER_AUTH_ACCESS_TTL", "-5m")
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig for negative duration, got %v", err)
	}
}

func TestLoadConfigFromEnv_InvalidRefreshTokenBytes(t *testing.T) {
	t.Setenv("CHITTER_JWT_SECRET", testSecret)
	t.Setenv("CHITTER_AUTH_REFRESH_TOKEN_BYTES", "16")
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig for small refresh bytes, got %v", err)
	}
}

func TestLoadConfigFromEnv_RefreshTTLDays(t *testing.T) {
	t.Setenv("CHITTER_JWT_SECRET", testSecret)
	t.Setenv("CHITTER_AUTH_REFRESH_TTL", "48h")
	t.Setenv("CHITTER_AUTH_REFRESH_TTL_DAYS", "14")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RefreshTokenTTL != 14*24*time.Hour {
		t.Fatalf("days form should win: %v", cfg.RefreshTokenTTL)
	}

	t.Setenv("CHITTER_AUTH_REFRESH_TTL_DAYS", "0")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for zero days, got %v", err)
	}
}

func TestLoadConfigFromEnv_Valid(t *testing.T) {
	t.Setenv("CHITTER_JWT_SECRET", testSecret)
	t.Setenv("CHITTER_AUTH_ISSUER", "chitter-test")
	t.Setenv("CHITTER_AUTH_ACCESS_TTL", "10m")
	t.Setenv("CHITTER_AUTH_REFRESH_TTL", "48h")
	t.Setenv("CHITTER_AUTH_CLOCK_SKEW", "20s")
	t.Setenv("CHITTER_AUTH_REFRESH_TOKEN_BYTES", "32")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Issuer != "chitter-test" {
		t.Fatalf("issuer mismatch: %q", cfg.Issuer)
	}
	if cfg.AccessTokenTTL != 10*time.Minute {
		t.Fatalf("access ttl mismatch: %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 48*time.Hour {
		t.Fatalf("refresh ttl mismatch: %v", cfg.RefreshTokenTTL)
	}
	if cfg.ClockSkew != 20*time.Second {
		t.Fatalf("clock skew mismatch: %v", cfg.ClockSkew)
	}
	if cfg.RefreshTokenBytes != 32 {
		t.Fatalf("refresh token bytes mismatch: %d", cfg.RefreshTokenBytes)
	}
}
