package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// redisService maps the namespace onto one Redis logical database. Values are
// msgpack encoded; Flush issues FLUSHDB, so the database must be dedicated to
// this application.
type redisService struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisService validates cfg and connects lazily to the configured Redis.
func NewRedisService(cfg Config) (*redisService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backend != BackendRedis {
		return nil, &ConfigError{Field: "Backend", Message: "must be redis"}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	return newRedisService(client, cfg.TTL), nil
}

func newRedisService(client redis.UniversalClient, ttl time.Duration) *redisService {
	return &redisService{client: client, ttl: ttl}
}

// GetOrFetch implements cache.CacheService. Hits are decoded into the fetch
// function's result type.
func (s *redisService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		target := reflect.New(fetchResultType(fetchFn))
		if decodeErr := msgpack.Unmarshal(raw, target.Interface()); decodeErr == nil {
			return target.Elem().Interface(), nil
		}
		// undecodable entries are treated as misses and overwritten below
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}

	value, err := callFetch(ctx, fetchFn)
	if err != nil {
		return nil, err
	}

	// encode or write failures leave the entry uncached
	if encoded, err := msgpack.Marshal(value); err == nil {
		_ = s.client.Set(ctx, key, encoded, s.ttl).Err()
	}
	return value, nil
}

// Get implements cache.Namespace.
func (s *redisService) Get(ctx context.Context, key string) (any, bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}

	var value any
	if err := msgpack.Unmarshal(raw, &value); err != nil {
		return nil, false, fmt.Errorf("decode %q: %w", key, err)
	}
	return value, true, nil
}

// Set implements cache.Namespace. Namespace writes never expire.
func (s *redisService) Set(ctx context.Context, key string, value any) error {
	encoded, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if err := s.client.Set(ctx, key, encoded, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Delete implements cache.CacheService and cache.Namespace.
func (s *redisService) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// DeleteByPrefix removes every key starting with prefix, scanning in batches.
func (s *redisService) DeleteByPrefix(ctx context.Context, prefix string) error {
	iter := s.client.Scan(ctx, 0, globEscaper.Replace(prefix)+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis del prefix %q: %w", prefix, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan prefix %q: %w", prefix, err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del prefix %q: %w", prefix, err)
		}
	}
	return nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// Flush implements cache.Namespace.
func (s *redisService) Flush(ctx context.Context) error {
	if err := s.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("redis flushdb: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *redisService) Close() error {
	return s.client.Close()
}
