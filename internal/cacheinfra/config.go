package cacheinfra

import (
	"errors"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Backend identifiers.
const (
	BackendSturdyc = "sturdyc"
	BackendRedis   = "redis"
)

// Config holds the configuration for the cache backends.
type Config struct {
	// Backend selects the implementation. Empty means BackendSturdyc.
	Backend string

	// Capacity defines the maximum number of entries that the cache can store.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	NumShards int

	// TTL is the default time-to-live for read-through entries. Raw namespace
	// writes never expire.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EarlyRefresh configures early refresh behavior for cached entries.
	// If nil, early refresh is disabled.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage enables storage for missing record flags.
	MissingRecordStorage bool

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration

	// Redis is only read when Backend is BackendRedis.
	Redis RedisConfig
}

// EarlyRefreshConfig configures sturdyc early refreshes.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// RedisConfig holds the connection settings of the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Backend:            BackendSturdyc,
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
		MissingRecordStorage: true,
		Redis:                RedisConfig{Addr: "localhost:6379"},
	}
}

// ToSturdycOptions converts the optional settings to sturdyc options.
// Capacity, NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}
	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

const (
	msgPositive    = "must be greater than 0"
	msgNonNegative = "must be non-negative"
	msgPercentage  = "must be between 1 and 100"
)

// Validate checks the configuration and reports the first invalid field as a
// *ConfigError.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Backend,
			validation.In(BackendSturdyc, BackendRedis).Error("must be one of sturdyc, redis")),
		validation.Field(&c.Capacity,
			validation.Required.Error(msgPositive), validation.Min(1).Error(msgPositive)),
		validation.Field(&c.NumShards,
			validation.Required.Error(msgPositive), validation.Min(1).Error(msgPositive)),
		validation.Field(&c.TTL,
			validation.Required.Error(msgPositive), validation.Min(time.Duration(1)).Error(msgPositive)),
		validation.Field(&c.EvictionPercentage,
			validation.Required.Error(msgPercentage),
			validation.Min(1).Error(msgPercentage), validation.Max(100).Error(msgPercentage)),
		validation.Field(&c.EvictionInterval,
			validation.Min(time.Duration(0)).Error(msgNonNegative)),
	)
	if err != nil {
		return toConfigError("", err)
	}

	if c.EarlyRefresh != nil {
		if err := c.EarlyRefresh.validate(); err != nil {
			return toConfigError("EarlyRefresh.", err)
		}
	}

	if c.Backend == BackendRedis && c.Redis.Addr == "" {
		return &ConfigError{Field: "Redis.Addr", Message: "cannot be blank"}
	}

	return nil
}

func (e *EarlyRefreshConfig) validate() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.MinAsyncRefreshTime, validation.Min(time.Duration(0)).Error(msgNonNegative)),
		validation.Field(&e.MaxAsyncRefreshTime, validation.Min(time.Duration(0)).Error(msgNonNegative)),
		validation.Field(&e.SyncRefreshTime, validation.Min(time.Duration(0)).Error(msgNonNegative)),
		validation.Field(&e.RetryBaseDelay, validation.Min(time.Duration(0)).Error(msgNonNegative)),
	)
}

// toConfigError flattens ozzo's field map into a single *ConfigError so the
// reported field is deterministic.
func toConfigError(prefix string, err error) error {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fields := make([]string, 0, len(fieldErrs))
	for field := range fieldErrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	first := fields[0]
	return &ConfigError{Field: prefix + first, Message: fieldErrs[first].Error()}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
