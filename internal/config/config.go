// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package config loads Warden's runtime configuration.
//
// Sources are layered, later ones winning: flag defaults, an optional YAML
// file, flags set on the command line, then secrets from the environment
// (optionally read from a .env file).
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/wardenauth/warden/internal/access"
	"github.com/wardenauth/warden/internal/auth"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Defaults.
const (
	DefaultHTTPAddr      = "127.0.0.1:8080"
	DefaultMetricsAddr   = "127.0.0.1:9100"
	DefaultAttemptWindow = 15 * time.Minute
	DefaultLogFormat     = "json"
	DefaultLogLevel      = "info"
)

// Config is the complete runtime configuration.
type Config struct {
	Auth    AuthConfig          `koanf:"auth"`
	Argon2  auth.Argon2Params   `koanf:"argon2"`
	Store   StoreConfig         `koanf:"store"`
	HTTP    HTTPConfig          `koanf:"http"`
	Metrics MetricsConfig       `koanf:"metrics"`
	Log     LogConfig           `koanf:"log"`
	Sentry  SentryConfig        `koanf:"sentry"`
	Roles   map[string][]string `koanf:"roles"`
}

// AuthConfig tunes lockout and sessions.
type AuthConfig struct {
	MaxAttempts   int           `koanf:"max_attempts"`
	Buckets       int           `koanf:"buckets"`
	SessionTTL    time.Duration `koanf:"session_ttl"`
	AttemptWindow time.Duration `koanf:"attempt_window"`
}

// StoreConfig selects and addresses the backing stores.
type StoreConfig struct {
	Driver        string `koanf:"driver"`
	DatabaseURL   string `koanf:"database_url"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisTLS      bool   `koanf:"redis_tls"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// MetricsConfig configures the observability listener. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// SentryConfig configures error reporting. Empty DSN disables it.
type SentryConfig struct {
	DSN         string `koanf:"dsn"`
	Environment string `koanf:"environment"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"max-attempts":   "auth.max_attempts",
	"buckets":        "auth.buckets",
	"session-ttl":    "auth.session_ttl",
	"attempt-window": "auth.attempt_window",
	"store":          "store.driver",
	"database-url":   "store.database_url",
	"redis-addr":     "store.redis_addr",
	"http-addr":      "http.addr",
	"metrics-addr":   "metrics.addr",
	"log-format":     "log.format",
	"log-level":      "log.level",
}

// envKeys maps environment variables to config keys.
var envKeys = map[string]string{
	"DATABASE_URL":       "store.database_url",
	"REDIS_ADDR":         "store.redis_addr",
	"REDIS_PASSWORD":     "store.redis_password",
	"SENTRY_DSN":         "sentry.dsn",
	"SENTRY_ENVIRONMENT": "sentry.environment",
}

// RegisterFlags adds the configuration flags to fs with their defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Int("max-attempts", auth.DefaultLockoutThreshold, "failed attempts before a bucket locks")
	fs.Int("buckets", auth.DefaultBuckets, "number of lockout buckets")
	fs.Duration("session-ttl", auth.DefaultSessionTTL, "session lifetime")
	fs.Duration("attempt-window", DefaultAttemptWindow, "how long a redis bucket remembers failures (0 = until reset)")
	fs.String("store", DriverMemory, "store driver (memory, postgres or redis)")
	fs.String("database-url", "", "PostgreSQL connection URL (or DATABASE_URL)")
	fs.String("redis-addr", "", "Redis address (or REDIS_ADDR)")
	fs.String("http-addr", DefaultHTTPAddr, "API listen address")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health listen address (empty = disabled)")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
}

// Load builds a Config. path may be empty; a missing .env file is ignored.
// flags may be nil, in which case flag defaults are still applied.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
	}
	return load(path, flags, os.LookupEnv)
}

func load(path string, flags *pflag.FlagSet, lookupEnv func(string) (string, bool)) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
		}
	}

	if flags == nil {
		flags = pflag.NewFlagSet("config", pflag.ContinueOnError)
		RegisterFlags(flags)
	}
	// Unchanged flags only fill keys the file left unset.
	provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
	}

	for env, key := range envKeys {
		if v, ok := lookupEnv(env); ok && v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, oops.Code("CONFIG_ENV_FAILED").With("env", env).Wrap(err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Auth.MaxAttempts <= 0 {
		return oops.Code("CONFIG_INVALID").With("max_attempts", c.Auth.MaxAttempts).Errorf("auth.max_attempts must be positive")
	}
	if c.Auth.Buckets <= 0 {
		return oops.Code("CONFIG_INVALID").With("buckets", c.Auth.Buckets).Errorf("auth.buckets must be positive")
	}
	if c.Auth.SessionTTL <= 0 {
		return oops.Code("CONFIG_INVALID").With("session_ttl", c.Auth.SessionTTL.String()).Errorf("auth.session_ttl must be positive")
	}
	if c.Auth.AttemptWindow < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.attempt_window cannot be negative")
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return oops.Code("CONFIG_INVALID").Errorf("store.database_url is required for the postgres driver")
		}
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			return oops.Code("CONFIG_INVALID").Errorf("store.redis_addr is required for the redis driver")
		}
		if c.Store.DatabaseURL == "" {
			return oops.Code("CONFIG_INVALID").Errorf("store.database_url is required for user records with the redis driver")
		}
	default:
		return oops.Code("CONFIG_INVALID").With("driver", c.Store.Driver).Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http.addr is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").With("format", c.Log.Format).Errorf("log.format must be json or text")
	}

	if c.Roles != nil {
		if _, err := access.NewEngineWithRoles(c.Roles); err != nil {
			return oops.Code("CONFIG_INVALID").With("key", "roles").Wrap(err)
		}
	}
	return nil
}

// PermissionEngine builds the engine for the configured role table, or the
// built-in table when none is configured.
func (c *Config) PermissionEngine() (*access.Engine, error) {
	if c.Roles == nil {
		return access.NewEngine(), nil
	}
	return access.NewEngineWithRoles(c.Roles)
}
