// Package config loads application configuration from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	DBDriver    string
	DatabaseURL string

	APIBaseURL    string
	APIToken      string
	APITimeout    time.Duration
	APIMaxRetries int

	LogLevel string
	LogFile  string

	ServerAddr      string
	RefreshInterval time.Duration
	AllowedOrigins  []string

	Debug bool
}

// Load reads configuration from environment variables, after loading .env if it exists.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBDriver:    strings.ToLower(os.Getenv("DB_DRIVER")),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		APIBaseURL:  strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),
		APIToken:    os.Getenv("API_TOKEN"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		LogFile:     os.Getenv("LOG_FILE"),
		ServerAddr:  os.Getenv("SERVER_ADDR"),
		Debug:       os.Getenv("DEBUG") == "true",
	}

	switch cfg.DBDriver {
	case "":
		cfg.DBDriver = DriverSQLite
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q, expected sqlite or postgres", cfg.DBDriver)
	}

	if cfg.DatabaseURL == "" {
		if cfg.DBDriver == DriverPostgres {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		cfg.DatabaseURL = "./rental.db"
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = ":8080"
	}

	var err error
	if cfg.APITimeout, err = durationEnv("API_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = durationEnv("REFRESH_INTERVAL", time.Minute); err != nil {
		return nil, err
	}

	cfg.APIMaxRetries = 3
	if v := os.Getenv("API_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid API_MAX_RETRIES %q", v)
		}
		cfg.APIMaxRetries = n
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	return cfg, nil
}

// RemoteEnabled reports whether a remote API is configured.
func (c *Config) RemoteEnabled() bool {
	return c.APIBaseURL != ""
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
