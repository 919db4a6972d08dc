package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration, loaded from the environment with
// an optional .env file for local development.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upstream UpstreamConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type UpstreamConfig struct {
	BaseURL          string
	Timeout          time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMultiplier  float64
}

type LoggingConfig struct {
	Level string
}

// LoadConfig reads configuration from environment with sensible defaults.
func LoadConfig() (*Config, error) {
	// Missing .env is fine; the environment alone is enough.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Server.Host = getenvDefault("SERVER_HOST", "0.0.0.0")
	cfg.Server.Port = getenvInt("SERVER_PORT", 8080)

	var err error
	if cfg.Server.ReadTimeout, err = getenvDuration("SERVER_READ_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = getenvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = getenvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}

	cfg.Database.Host = getenvDefault("DB_HOST", "localhost")
	cfg.Database.Port = getenvInt("DB_PORT", 5432)
	cfg.Database.User = getenvDefault("DB_USER", "postgres")
	cfg.Database.Password = os.Getenv("DB_PASSWORD")
	cfg.Database.Database = getenvDefault("DB_NAME", "climate_odds")
	cfg.Database.SSLMode = getenvDefault("DB_SSLMODE", "disable")
	cfg.Database.MaxOpenConns = getenvInt("DB_MAX_OPEN_CONNS", 25)
	cfg.Database.MaxIdleConns = getenvInt("DB_MAX_IDLE_CONNS", 5)
	if cfg.Database.ConnMaxLifetime, err = getenvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Database.ConnMaxIdleTime, err = getenvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute); err != nil {
		return nil, err
	}

	cfg.Upstream.BaseURL = getenvDefault("UPSTREAM_BASE_URL", "https://power.larc.nasa.gov")
	if cfg.Upstream.Timeout, err = getenvDuration("UPSTREAM_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	cfg.Upstream.RetryMaxAttempts = getenvInt("UPSTREAM_RETRY_MAX_ATTEMPTS", 3)
	if cfg.Upstream.RetryBaseDelay, err = getenvDuration("UPSTREAM_RETRY_BASE_DELAY", time.Second); err != nil {
		return nil, err
	}
	cfg.Upstream.RetryMultiplier = getenvFloat("UPSTREAM_RETRY_MULTIPLIER", 1.6)

	cfg.Logging.Level = getenvDefault("LOG_LEVEL", "info")

	return cfg, nil
}

// Validate checks configuration invariants before startup.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host must not be empty")
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream base URL must not be empty")
	}
	if c.Upstream.RetryMaxAttempts < 1 {
		return fmt.Errorf("upstream retry attempts must be at least 1, got %d", c.Upstream.RetryMaxAttempts)
	}
	if c.Upstream.RetryMultiplier < 1 {
		return fmt.Errorf("upstream retry multiplier must be at least 1, got %g", c.Upstream.RetryMultiplier)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
