package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultDSN         = "host=localhost user=postgres password=postgres dbname=cashup port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:5173"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	// EditablePeriod is how long after close time staff may amend a closure.
	EditablePeriod time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	// RateLimit uses the limiter format, e.g. "120-M".
	RateLimit string

	LogLevel  string
	LogFormat string
}

// Load reads the environment, after applying a .env file when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup func.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		HTTPPort:      get("HTTP_PORT", "8080"),
		DatabaseDSN:   get("DATABASE_DSN", defaultDSN),
		JWTSecret:     get("JWT_SECRET", ""),
		CORSOrigins:   get("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),
		RedisAddr:     get("REDIS_ADDR", ""),
		RedisPassword: get("REDIS_PASSWORD", ""),
		RateLimit:     get("RATE_LIMIT", "120-M"),
		LogLevel:      get("LOG_LEVEL", "info"),
		LogFormat:     get("LOG_FORMAT", "json"),
	}

	editable, err := seconds(get("EDITABLE_PERIOD_SECONDS", "86400"))
	if err != nil {
		return nil, fmt.Errorf("EDITABLE_PERIOD_SECONDS: %w", err)
	}
	cfg.EditablePeriod = editable

	lockTTL, err := seconds(get("LOCK_TTL_SECONDS", "10"))
	if err != nil {
		return nil, fmt.Errorf("LOCK_TTL_SECONDS: %w", err)
	}
	cfg.LockTTL = lockTTL

	if cfg.RedisDB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.EditablePeriod <= 0 {
		return errors.New("EDITABLE_PERIOD_SECONDS must be positive")
	}
	if c.LockTTL <= 0 {
		return errors.New("LOCK_TTL_SECONDS must be positive")
	}
	return nil
}

// Warnings lists settings that are fine for development but not production.
func (c *Config) Warnings() []string {
	var w []string
	if c.DatabaseDSN == defaultDSN {
		w = append(w, "DATABASE_DSN uses the default local connection")
	}
	if c.CORSOrigins == defaultCORSOrigins {
		w = append(w, "CORS_ALLOWED_ORIGINS uses the default development origin")
	}
	if c.RedisAddr == "" {
		w = append(w, "REDIS_ADDR is empty, closure edits are only serialised within this process")
	}
	return w
}

func seconds(v string) (time.Duration, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}
