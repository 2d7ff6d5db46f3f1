package authapi

import (
	"os"
	"strconv"
	"strings"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	// Production hardens cookie transport (SameSite=None; Secure) and
	// disables the debug echo of verification codes.
	Production bool

	// FrontendOrigin is the browser origin allowed to call the API.
	FrontendOrigin string

	MaxBodyBytes int64

	RefreshCookieName string
	CookiePath        string
}

// LoadConfigFromEnv loads auth API config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		Production:        envBool("CHITTER_PRODUCTION", false),
		FrontendOrigin:    strings.TrimSpace(os.Getenv("CHITTER_FRONTEND_ORIGIN")),
		MaxBodyBytes:      envInt64("CHITTER_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
		RefreshCookieName: "refreshToken",
		CookiePath:        "/",
	}

	if cfg.FrontendOrigin == "" {
		cfg.FrontendOrigin = "http://localhost:5173"
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
