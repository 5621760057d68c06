// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Config holds all server settings
type Config struct {
	Host     string `env:"WORDDUEL_HOST"`
	Port     int    `env:"WORDDUEL_PORT" envDefault:"8080"`
	LogLevel string `env:"WORDDUEL_LOG_LEVEL" envDefault:"info"`

	StorageType     string        `env:"STORAGE_TYPE" envDefault:"memory"`
	RedisURL        string        `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	RedisSessionTTL time.Duration `env:"REDIS_SESSION_TTL" envDefault:"24h"`
	SQLitePath      string        `env:"SQLITE_PATH" envDefault:"data/wordduel.db"`

	// SecretKey is the root key for sealing secret words. If empty a random
	// key is generated and sessions do not survive a restart.
	SecretKey string `env:"WORDDUEL_SECRET_KEY"`

	WordLength  int `env:"WORDDUEL_WORD_LENGTH" envDefault:"5"`
	MaxAttempts int `env:"WORDDUEL_MAX_ATTEMPTS" envDefault:"6"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return Parse()
}

// Parse reads configuration from the process environment only
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the environment parser cannot
func (c Config) Validate() error {
	switch c.StorageType {
	case StorageMemory, StorageRedis, StorageSQLite:
	default:
		return fmt.Errorf("invalid STORAGE_TYPE %q: must be memory, redis or sqlite", c.StorageType)
	}
	if c.WordLength < 1 {
		return fmt.Errorf("invalid WORDDUEL_WORD_LENGTH %d: must be positive", c.WordLength)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("invalid WORDDUEL_MAX_ATTEMPTS %d: must be positive", c.MaxAttempts)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid WORDDUEL_PORT %d", c.Port)
	}
	return nil
}

// SlogLevel converts LogLevel to a slog level, defaulting to info
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
