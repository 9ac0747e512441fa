package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Vasheegaran/ExpenseTrack/internal/logger"
)

// DefaultSessionSecret is only acceptable outside production.
const DefaultSessionSecret = "fallback-secret-key-for-dev-only"

// Config holds application configuration
type Config struct {
	// Server
	Env          string
	LogLevel     string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration
	SessionCookie string
	CookieSecure  bool
}

var appConfig *Config

// Load reads configuration from a .env file (if present), an optional
// config.yaml in the working directory, and environment variables, in
// increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Get().Debug(".env file not found, using environment")
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Env:          v.GetString("env"),
		LogLevel:     v.GetString("log_level"),
		Port:         v.GetString("port"),
		ReadTimeout:  durationOr(v, "server_read_timeout", 15*time.Second),
		WriteTimeout: durationOr(v, "server_write_timeout", 30*time.Second),

		DBDriver:   strings.ToLower(v.GetString("db_driver")),
		DBHost:     v.GetString("db_host"),
		DBPort:     v.GetString("db_port"),
		DBUser:     v.GetString("db_user"),
		DBPassword: v.GetString("db_password"),
		DBName:     v.GetString("db_name"),
		DBSSLMode:  v.GetString("db_sslmode"),
		DBPath:     v.GetString("db_path"),

		SessionSecret: v.GetString("session_secret"),
		SessionTTL:    durationOr(v, "session_ttl", 24*time.Hour),
		SessionCookie: v.GetString("session_cookie"),
		CookieSecure:  v.GetBool("cookie_secure"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	appConfig = cfg
	return cfg, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		cfg, err := Load()
		if err != nil {
			logger.Get().Fatalf("Failed to load configuration: %v", err)
		}
		appConfig = cfg
	}
	return appConfig
}

// IsProduction reports whether the app runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("port", "8080")

	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "expensetrack")
	v.SetDefault("db_password", "expensetrack")
	v.SetDefault("db_name", "expensetrack")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_path", "expensetrack.db")

	v.SetDefault("session_secret", DefaultSessionSecret)
	v.SetDefault("session_cookie", "expensetrack_session")
	v.SetDefault("cookie_secure", false)
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (use postgres or sqlite)", c.DBDriver)
	}
	if c.IsProduction() && c.SessionSecret == DefaultSessionSecret {
		return fmt.Errorf("SESSION_SECRET must be set in production")
	}
	if err := logger.SetLevel(c.LogLevel); err != nil {
		return err
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

// durationOr parses a duration key, falling back with a warning when the
// value is missing or malformed.
func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	raw := v.GetString(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		logger.Get().Warnf("invalid %s value '%s', falling back to %s", strings.ToUpper(key), raw, fallback)
		return fallback
	}
	return d
}
