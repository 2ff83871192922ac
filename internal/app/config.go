package app

import (
	"errors"
	"time"
)

// Version is reported by /info/version.
const Version = "0.1.0"

// Config contains all runtime configuration loaded from environment
// variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogPretty bool

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// Token secrets are the only required settings.
	AccessSecret  string
	RefreshSecret string
	TokenIssuer   string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	CookieDomain string
	CookieSecure bool

	StatsInterval  time.Duration
	AllowedOrigins []string
}

// LoadConfig loads Config from environment variables with defaults.
// Validation happens in Validate so tests can build configs directly.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("PULSE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("PULSE_LOG_LEVEL", "info"),
		LogPretty: EnvBool("PULSE_LOG_PRETTY", false),

		ReadHeaderTimeout: EnvDuration("PULSE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("PULSE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("PULSE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("PULSE_HTTP_IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    EnvInt("PULSE_HTTP_MAX_HEADER_BYTES", 1<<20),

		AccessSecret:  EnvString("PULSE_ACCESS_SECRET", ""),
		RefreshSecret: EnvString("PULSE_REFRESH_SECRET", ""),
		TokenIssuer:   EnvString("PULSE_TOKEN_ISSUER", "pulse"),
		AccessTTL:     EnvDuration("PULSE_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    EnvDuration("PULSE_REFRESH_TTL", 7*24*time.Hour),

		RedisAddr:     EnvString("PULSE_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: EnvString("PULSE_REDIS_PASSWORD", ""),
		RedisDB:       EnvInt("PULSE_REDIS_DB", 0),

		DatabaseURL: EnvString("PULSE_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("PULSE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("PULSE_DB_MIN_CONNS", 0),

		CookieDomain: EnvString("PULSE_COOKIE_DOMAIN", ""),
		CookieSecure: EnvBool("PULSE_COOKIE_SECURE", false),

		StatsInterval:  EnvDuration("PULSE_STATS_INTERVAL", 5*time.Second),
		AllowedOrigins: EnvCSV("PULSE_WS_ALLOWED_ORIGINS", ""),
	}
}

// Validate checks the settings that have no safe default.
func (c Config) Validate() error {
	if len(c.AccessSecret) < 32 {
		return errors.New("app: PULSE_ACCESS_SECRET must be at least 32 bytes")
	}
	if len(c.RefreshSecret) < 32 {
		return errors.New("app: PULSE_REFRESH_SECRET must be at least 32 bytes")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("app: access and refresh secrets must differ")
	}
	if c.AccessTTL >= c.RefreshTTL {
		return errors.New("app: access TTL must be shorter than refresh TTL")
	}
	return nil
}
