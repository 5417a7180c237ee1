// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads identityd configuration.
//
// Sources are layered, later ones winning: built-in defaults, YAML files,
// a dotenv file, IDENTITYD_* environment variables, then explicitly set flags.
package config

import (
	"slices"
	"time"

	"github.com/samber/oops"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the full identityd configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Identity IdentityConfig `koanf:"identity"`
	Storage  StorageConfig  `koanf:"storage"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig configures the metrics and health listener. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// IdentityConfig configures the identity service.
type IdentityConfig struct {
	SessionTTL    time.Duration `koanf:"session_ttl"`
	IDFormat      string        `koanf:"id_format"`
	Hasher        string        `koanf:"hasher"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// StorageConfig selects the adapter per port.
type StorageConfig struct {
	Users    string `koanf:"users"`
	Sessions string `koanf:"sessions"`
}

// DatabaseConfig configures PostgreSQL.
type DatabaseConfig struct {
	URL             string `koanf:"url"`
	ConnectAttempts uint64 `koanf:"connect_attempts"`
	AutoMigrate     bool   `koanf:"auto_migrate"`
}

// RedisConfig configures Redis.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

// Defaults returns the built-in configuration as a flat koanf key map.
func Defaults() map[string]any {
	return map[string]any{
		"http.addr":                 ":8080",
		"http.read_header_timeout":  "10s",
		"http.shutdown_timeout":     "10s",
		"metrics.addr":              "127.0.0.1:9100",
		"log.format":                "json",
		"log.level":                 "info",
		"identity.session_ttl":      "12h",
		"identity.id_format":        "token",
		"identity.hasher":           "argon2id",
		"identity.sweep_interval":   "0s",
		"storage.users":             BackendMemory,
		"storage.sessions":          BackendMemory,
		"database.url":              "",
		"database.connect_attempts": 5,
		"database.auto_migrate":     false,
		"redis.addr":                "",
		"redis.password":            "",
		"redis.db":                  0,
		"redis.prefix":              "identityd:session:",
	}
}

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return invalid("http.addr is required")
	}
	if c.HTTP.ReadHeaderTimeout <= 0 {
		return invalid("http.read_header_timeout must be positive")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return invalid("http.shutdown_timeout must be positive")
	}
	if err := oneOf("log.format", c.Log.Format, "json", "text"); err != nil {
		return err
	}
	if err := oneOf("log.level", c.Log.Level, "debug", "info", "warn", "error"); err != nil {
		return err
	}
	if c.Identity.SessionTTL <= 0 {
		return invalid("identity.session_ttl must be positive, got %s", c.Identity.SessionTTL)
	}
	if err := oneOf("identity.id_format", c.Identity.IDFormat, "token", "ulid", "uuid"); err != nil {
		return err
	}
	if err := oneOf("identity.hasher", c.Identity.Hasher, "argon2id", "bcrypt"); err != nil {
		return err
	}
	if c.Identity.SweepInterval < 0 {
		return invalid("identity.sweep_interval must not be negative")
	}
	if err := oneOf("storage.users", c.Storage.Users, BackendMemory, BackendPostgres); err != nil {
		return err
	}
	if err := oneOf("storage.sessions", c.Storage.Sessions, BackendMemory, BackendPostgres, BackendRedis); err != nil {
		return err
	}
	if c.UsesPostgres() {
		if c.Database.URL == "" {
			return invalid("database.url is required when a postgres backend is selected")
		}
		if c.Database.ConnectAttempts == 0 {
			return invalid("database.connect_attempts must be at least 1")
		}
	}
	if c.Storage.Sessions == BackendPostgres && c.Storage.Users != BackendPostgres {
		// sessions.user_id references users.id.
		return invalid("storage.sessions=postgres requires storage.users=postgres")
	}
	if c.Storage.Sessions == BackendRedis && c.Redis.Addr == "" {
		return invalid("redis.addr is required when storage.sessions=redis")
	}
	return nil
}

// UsesPostgres reports whether any port is backed by PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.Storage.Users == BackendPostgres || c.Storage.Sessions == BackendPostgres
}

func oneOf(key, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return invalid("%s must be one of %v, got %q", key, allowed, value)
}

func invalid(format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").Errorf(format, args...)
}
