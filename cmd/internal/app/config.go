package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string // "json" or "pretty"

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Security policy:
	// If true, CHITTER_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and refresh-token hashing must be HMAC-based.
	RequireTokenHMAC bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("CHITTER_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("CHITTER_LOG_LEVEL", "info"),
		LogFormat: EnvString("CHITTER_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("CHITTER_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("CHITTER_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("CHITTER_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("CHITTER_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("CHITTER_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("CHITTER_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("CHITTER_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("CHITTER_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("CHITTER_READINESS_REQUIRE_DB", false),

		RequireTokenHMAC: EnvBool("CHITTER_REQUIRE_TOKEN_HMAC", false),

		CORSAllowedOrigins:   EnvStrings("CHITTER_CORS_ALLOWED_ORIGINS", []string{EnvString("CHITTER_FRONTEND_ORIGIN", "http://localhost:5173")}),
		CORSAllowCredentials: EnvBool("CHITTER_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("CHITTER_CORS_MAX_AGE_SECONDS", 600),
	}
}
