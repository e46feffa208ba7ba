package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	// Environment is "development" or "production". It gates the captcha
	// bypass; nothing else branches on it.
	Environment string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// DataDir holds the JSON snapshot files when no database is configured.
	DataDir string

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// SweepInterval drives the expired-token sweeper; 0 disables it.
	SweepInterval time.Duration

	FrontendURL     string
	RecaptchaSecret string
	ExternalTimeout time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:    EnvString("RNBW_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:    EnvString("RNBW_LOG_LEVEL", "info"),
		Environment: EnvString("RNBW_ENV", "production"),

		ReadHeaderTimeout: EnvDuration("RNBW_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("RNBW_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("RNBW_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("RNBW_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("RNBW_HTTP_MAX_HEADER_BYTES", 1<<20),

		DataDir: EnvString("RNBW_DATA_DIR", "data"),

		DatabaseURL: EnvString("RNBW_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("RNBW_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("RNBW_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("RNBW_READINESS_REQUIRE_DB", false),

		SweepInterval: EnvDuration("RNBW_SWEEP_INTERVAL", 15*time.Minute),

		FrontendURL:     EnvString("RNBW_FRONTEND_URL", "http://localhost:3000"),
		RecaptchaSecret: EnvString("RNBW_RECAPTCHA_SECRET", ""),
		ExternalTimeout: EnvDuration("RNBW_EXTERNAL_TIMEOUT", 5*time.Second),

		SMTPHost:     EnvString("RNBW_SMTP_HOST", ""),
		SMTPPort:     EnvInt("RNBW_SMTP_PORT", 587),
		SMTPUsername: EnvString("RNBW_SMTP_USER", ""),
		SMTPPassword: EnvString("RNBW_SMTP_PASSWORD", ""),
		SMTPFrom:     EnvString("RNBW_SMTP_FROM", ""),
	}
}
