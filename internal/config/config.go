// Package config loads the service configuration from MARKET_* environment
// variables.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-market-gate/cache"
	"github.com/goliatone/go-market-gate/internal/storage"
	"github.com/goliatone/go-market-gate/lifecycle"
)

// Prefix is prepended to every variable name.
const Prefix = "MARKET_"

// Gate modes.
const (
	// GateModeFlagStore keeps the gate record in its own table, outside the
	// flushed cache namespace.
	GateModeFlagStore = "flagstore"
	// GateModeCache keeps the gate record inside the cache namespace and
	// restores it after every flush.
	GateModeCache = "cache"
)

// Config is the service configuration.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DBDSN    string `env:"DB_DSN" envDefault:"file:market.db?cache=shared&_foreign_keys=1"`

	CacheBackend  string        `env:"CACHE_BACKEND" envDefault:"sturdyc"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	CacheCapacity int           `env:"CACHE_CAPACITY" envDefault:"10000"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`

	GateMode string `env:"GATE_MODE" envDefault:"flagstore"`
	// GateSeed is a JSON document written to the gate record at startup.
	// Empty leaves the record untouched.
	GateSeed           string `env:"GATE_SEED"`
	FlushFailurePolicy string `env:"FLUSH_FAILURE_POLICY" envDefault:"ignore"`

	// NATSURL enables event publishing. Empty disables it.
	NATSURL string `env:"NATS_URL"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return load(env.Options{Prefix: Prefix})
}

// LoadFrom reads the configuration from environ instead of the process
// environment. Keys carry the prefix.
func LoadFrom(environ map[string]string) (*Config, error) {
	if environ == nil {
		environ = map[string]string{}
	}
	return load(env.Options{Prefix: Prefix, Environment: environ})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.HTTPAddr, validation.Required),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.DBDriver, validation.Required, validation.In(storage.DriverSQLite, storage.DriverPostgres)),
		validation.Field(&c.DBDSN, validation.Required),
		validation.Field(&c.CacheBackend, validation.Required, validation.In(cache.BackendSturdyc, cache.BackendRedis)),
		validation.Field(&c.CacheTTL, validation.Min(time.Second)),
		validation.Field(&c.CacheCapacity, validation.Min(1)),
		validation.Field(&c.RedisAddr, validation.When(c.CacheBackend == cache.BackendRedis, validation.Required)),
		validation.Field(&c.RedisDB, validation.Min(0)),
		validation.Field(&c.GateMode, validation.Required, validation.In(GateModeFlagStore, GateModeCache)),
		validation.Field(&c.GateSeed, validation.By(validSeed)),
		validation.Field(&c.FlushFailurePolicy, validation.By(validPolicy)),
	)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Cache builds the cache configuration.
func (c *Config) Cache() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.Backend = c.CacheBackend
	cfg.TTL = c.CacheTTL
	cfg.Capacity = c.CacheCapacity
	cfg.Redis = cache.RedisConfig{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
	return cfg
}

// Policy returns the parsed flush failure policy.
func (c *Config) Policy() lifecycle.FlushFailurePolicy {
	p, _ := lifecycle.ParseFlushFailurePolicy(c.FlushFailurePolicy)
	return p
}

// Seed decodes GateSeed. ok is false when no seed is configured.
func (c *Config) Seed() (value map[string]any, ok bool, err error) {
	if strings.TrimSpace(c.GateSeed) == "" {
		return nil, false, nil
	}
	if err := json.Unmarshal([]byte(c.GateSeed), &value); err != nil {
		return nil, false, fmt.Errorf("decode gate seed: %w", err)
	}
	return value, true, nil
}

// Level maps LogLevel to a slog level.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func validSeed(v any) error {
	s, _ := v.(string)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return validation.NewError("validation_gate_seed", "must be a JSON object")
	}
	return nil
}

func validPolicy(v any) error {
	s, _ := v.(string)
	if _, err := lifecycle.ParseFlushFailurePolicy(s); err != nil {
		return validation.NewError("validation_flush_policy", "must be ignore or propagate")
	}
	return nil
}
