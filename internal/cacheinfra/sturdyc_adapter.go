package cacheinfra

import (
	"context"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

// sturdycService keeps the namespace in process memory. Read-through entries
// live in sturdyc and expire with the configured TTL; raw namespace writes
// are kept beside them and never expire, matching the Redis backend. Flush
// clears both.
type sturdycService struct {
	client *sturdyc.Client[any]
	raw    *xsync.MapOf[string, any]
}

// NewSturdycService validates cfg and builds an in-process cache backend.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &sturdycService{client: client, raw: xsync.NewMapOf[string, any]()}, nil
}

// GetOrFetch implements cache.CacheService.
func (s *sturdycService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	// sturdyc reports a nil result as a type mismatch, hiding the fetch error
	var fetchErr error
	value, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		v, err := callFetch(ctx, fetchFn)
		if err != nil {
			fetchErr = err
		}
		return v, err
	})
	if fetchErr != nil {
		return nil, fetchErr
	}
	return value, err
}

// Get implements cache.Namespace. Raw writes shadow read-through entries.
func (s *sturdycService) Get(ctx context.Context, key string) (any, bool, error) {
	if value, ok := s.raw.Load(key); ok {
		return value, true, nil
	}
	value, ok := s.client.Get(key)
	return value, ok, nil
}

// Set implements cache.Namespace.
func (s *sturdycService) Set(ctx context.Context, key string, value any) error {
	s.raw.Store(key, value)
	return nil
}

// Delete implements cache.CacheService and cache.Namespace.
func (s *sturdycService) Delete(ctx context.Context, key string) error {
	s.raw.Delete(key)
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *sturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	s.raw.Range(func(key string, _ any) bool {
		if strings.HasPrefix(key, prefix) {
			s.raw.Delete(key)
		}
		return true
	})
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Flush implements cache.Namespace. sturdyc has no bulk clear, so every
// scanned key is deleted; keys written concurrently may survive.
func (s *sturdycService) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.raw.Clear()
	for _, key := range s.client.ScanKeys() {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.client.Delete(key)
	}
	return nil
}
