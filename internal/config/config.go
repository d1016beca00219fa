// Package config loads and validates runtime settings at startup.
// Values come from an optional YAML file (CONFIG_FILE) and are then
// overridden by environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valeevte/pricetrail/internal/database"
	"github.com/valeevte/pricetrail/internal/shopping"
)

// ErrMissing is wrapped by Load when a required value is absent.
var ErrMissing = errors.New("config: required value missing")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all runtime configuration for the server and CLI.
type Config struct {
	Port    string `yaml:"port"`
	GinMode string `yaml:"gin_mode"`

	DBDriver    string `yaml:"db_driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	// Postgres is used to build DatabaseURL when it is not set directly.
	Postgres PostgresConn `yaml:"postgres"`

	NaverClientID     string `yaml:"naver_client_id"`
	NaverClientSecret string `yaml:"naver_client_secret"`
	SearchEndpoint    string `yaml:"search_endpoint"`
	SearchTimeout     int    `yaml:"search_timeout_seconds"`

	RetentionDays   int      `yaml:"retention_days"`
	CleanupSchedule string   `yaml:"cleanup_schedule"`
	WatchQueries    []string `yaml:"watch_queries"`
	WatchSchedule   string   `yaml:"watch_schedule"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// PostgresConn holds discrete Postgres connection fields.
type PostgresConn struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Name     string `yaml:"name"`
}

func (p PostgresConn) complete() bool {
	return p.User != "" && p.Host != "" && p.Port != "" && p.Name != ""
}

func defaults() Config {
	return Config{
		Port:           "3000",
		DBDriver:       DriverSQLite,
		SQLitePath:     "database.sqlite",
		SearchEndpoint: shopping.DefaultEndpoint,
		SearchTimeout:  15,
		RetentionDays:  180,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads CONFIG_FILE (if set), applies environment overrides and
// validates the result.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	setString(&cfg.Port, "PORT")
	setString(&cfg.GinMode, "GIN_MODE")
	setString(&cfg.DBDriver, "DB_DRIVER")
	setString(&cfg.SQLitePath, "SQLITE_PATH")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.Postgres.User, "DB_USER")
	setString(&cfg.Postgres.Password, "DB_PASSWORD")
	setString(&cfg.Postgres.Host, "DB_HOST")
	setString(&cfg.Postgres.Port, "DB_PORT")
	setString(&cfg.Postgres.Name, "DB_NAME")
	setString(&cfg.NaverClientID, "NAVER_CLIENT_ID")
	setString(&cfg.NaverClientSecret, "NAVER_CLIENT_SECRET")
	setString(&cfg.SearchEndpoint, "SEARCH_ENDPOINT")
	setString(&cfg.CleanupSchedule, "CLEANUP_SCHEDULE")
	setString(&cfg.WatchSchedule, "WATCH_SCHEDULE")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")
	if s := os.Getenv("WATCH_QUERIES"); s != "" {
		cfg.WatchQueries = splitList(s)
	}
	if err := setPositiveInt(&cfg.SearchTimeout, "SEARCH_TIMEOUT_SECONDS"); err != nil {
		return nil, err
	}
	if err := setPositiveInt(&cfg.RetentionDays, "RETENTION_DAYS"); err != nil {
		return nil, err
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finish() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: SQLITE_PATH", ErrMissing)
		}
	case DriverPostgres:
		if p := c.Postgres; c.DatabaseURL == "" && p.complete() {
			c.DatabaseURL = database.PostgresDSN(p.User, p.Password, p.Host, p.Port, p.Name)
		}
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL or DB_USER/DB_HOST/DB_PORT/DB_NAME", ErrMissing)
		}
	default:
		return fmt.Errorf("config: DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DBDriver)
	}

	if c.SearchTimeout <= 0 {
		return fmt.Errorf("config: search_timeout_seconds must be positive, got %d", c.SearchTimeout)
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("config: retention_days must be positive, got %d", c.RetentionDays)
	}
	if len(c.WatchQueries) > 0 && c.WatchSchedule == "" {
		c.WatchSchedule = "@every 1h"
	}
	return nil
}

// Retention is RetentionDays as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// SearchTimeoutDuration is SearchTimeout as a duration.
func (c *Config) SearchTimeoutDuration() time.Duration {
	return time.Duration(c.SearchTimeout) * time.Second
}

// HasCredentials reports whether both search API credentials are set.
func (c *Config) HasCredentials() bool {
	return c.NaverClientID != "" && c.NaverClientSecret != ""
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setPositiveInt(dst *int, key string) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return fmt.Errorf("config: %s must be a positive integer, got %q", key, s)
	}
	*dst = v
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
