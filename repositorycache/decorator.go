package repositorycache

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-market-gate/cache"
)

// Repository is the subset of repository.Repository[T] the decorator wraps.
type Repository[T any] interface {
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error)
	List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error)
	Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error)
	Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error)
	Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error)
	Delete(ctx context.Context, record T) error
	DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error
}

// Method names used in cache keys.
const (
	methodGetByID = "get_by_id"
	methodList    = "list"
	methodCount   = "count"
)

// listResult wraps the tuple result from List operations for caching
type listResult[T any] struct {
	Records []T `json:"records" msgpack:"records"`
	Total   int `json:"total" msgpack:"total"`
}

// Option configures a CachedRepository.
type Option func(*options)

type options struct {
	scope  string
	logger *slog.Logger
}

// WithScope overrides the key scope derived from the record type.
func WithScope(scope string) Option {
	return func(o *options) {
		o.scope = scope
	}
}

// WithLogger sets the logger used for cache failures during invalidation.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// CachedRepository decorates a base repository with read-through caching and
// prefix invalidation after writes.
//
// Criteria are functions and cannot be keyed. A read that passes criteria is
// only cached when the context carries cache tags describing them (see
// WithCacheTags); otherwise it goes straight to the base repository.
type CachedRepository[T any] struct {
	base     Repository[T]
	cache    cache.CacheService
	keys     cache.KeySerializer
	scope    string
	registry *xsync.MapOf[string, struct{}]
	logger   *slog.Logger
}

// New creates a new CachedRepository that wraps the base repository with caching
func New[T any](base Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer, opts ...Option) *CachedRepository[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.scope == "" {
		o.scope = scopeFor[T]()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return &CachedRepository[T]{
		base:     base,
		cache:    cacheService,
		keys:     keySerializer,
		scope:    o.scope,
		registry: xsync.NewMapOf[string, struct{}](),
		logger:   o.logger,
	}
}

// Scope returns the key scope of this repository.
func (c *CachedRepository[T]) Scope() string {
	return c.scope
}

// GetByID retrieves a record by ID, with caching
func (c *CachedRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	key, ok := c.readKey(ctx, methodGetByID, criteria, id)
	if !ok {
		return c.base.GetByID(ctx, id, criteria...)
	}
	return cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (T, error) {
		return c.base.GetByID(ctx, id, criteria...)
	})
}

// List retrieves multiple records, with caching
func (c *CachedRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	key, ok := c.readKey(ctx, methodList, criteria)
	if !ok {
		return c.base.List(ctx, criteria...)
	}
	res, err := cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (listResult[T], error) {
		records, total, err := c.base.List(ctx, criteria...)
		return listResult[T]{Records: records, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return res.Records, res.Total, nil
}

// Count returns the number of records, with caching
func (c *CachedRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	key, ok := c.readKey(ctx, methodCount, criteria)
	if !ok {
		return c.base.Count(ctx, criteria...)
	}
	return cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (int, error) {
		return c.base.Count(ctx, criteria...)
	})
}

// Create creates a new record and drops cached listings.
func (c *CachedRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := c.base.Create(ctx, record, criteria...)
	if err == nil {
		c.invalidateAfterCreate(ctx)
	}
	return result, err
}

// Update updates a record and drops the cached reads that may include it.
func (c *CachedRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.Update(ctx, record, criteria...)
	if err == nil {
		c.invalidateRecord(ctx, result)
	}
	return result, err
}

// Delete deletes a record and drops the cached reads that may include it.
func (c *CachedRepository[T]) Delete(ctx context.Context, record T) error {
	err := c.base.Delete(ctx, record)
	if err == nil {
		c.invalidateRecord(ctx, record)
	}
	return err
}

// DeleteWhere deletes records based on criteria and drops every cached read.
func (c *CachedRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteWhere(ctx, criteria...)
	if err == nil {
		c.Invalidate(ctx)
	}
	return err
}

// Invalidate drops every cached read of this repository. Callers that write
// the underlying table without going through the decorator use it.
// Backends implementing cache.PrefixDeleter also drop entries this process
// never tracked.
func (c *CachedRepository[T]) Invalidate(ctx context.Context) {
	prefix := c.keys.SerializeKey(c.scope) + "."
	c.invalidateByPrefix(ctx, prefix)
	if pd, ok := c.cache.(cache.PrefixDeleter); ok {
		if err := pd.DeleteByPrefix(ctx, prefix); err != nil {
			c.logger.WarnContext(ctx, "cache prefix invalidation failed", "prefix", prefix, "err", err)
		}
	}
}

// TrackedKeys returns the number of keys currently registered.
func (c *CachedRepository[T]) TrackedKeys() int {
	return c.registry.Size()
}

func (c *CachedRepository[T]) method(name string) string {
	return c.scope + "." + name
}

// readKey builds and registers the cache key for a read. It reports false
// when the read cannot be keyed.
func (c *CachedRepository[T]) readKey(ctx context.Context, method string, criteria []repository.SelectCriteria, args ...any) (string, bool) {
	tags := cacheTagsFromContext(ctx)
	if len(criteria) > 0 && len(tags) == 0 {
		return "", false
	}
	for _, tag := range tags {
		args = append(args, tag)
	}
	key := c.keys.SerializeKey(c.method(method), args...)
	c.registry.Store(key, struct{}{})
	return key, true
}

// invalidateByPrefix removes all tracked keys that start with prefix.
func (c *CachedRepository[T]) invalidateByPrefix(ctx context.Context, prefix string) {
	c.invalidateMatching(ctx, func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

func (c *CachedRepository[T]) invalidateMatching(ctx context.Context, match func(string) bool) {
	c.registry.Range(func(key string, _ struct{}) bool {
		if !match(key) {
			return true
		}
		if err := c.cache.Delete(ctx, key); err != nil {
			c.logger.WarnContext(ctx, "cache invalidation failed", "key", key, "err", err)
		}
		c.registry.Delete(key)
		return true
	})
}

// invalidateAfterCreate drops listings and counts, which a new record changes.
func (c *CachedRepository[T]) invalidateAfterCreate(ctx context.Context) {
	c.invalidateByPrefix(ctx, c.keys.SerializeKey(c.method(methodList)))
	c.invalidateByPrefix(ctx, c.keys.SerializeKey(c.method(methodCount)))
}

// invalidateRecord drops the record's own entries plus listings and counts.
// Without an ID every single-record entry goes.
func (c *CachedRepository[T]) invalidateRecord(ctx context.Context, record T) {
	getPrefix := c.keys.SerializeKey(c.method(methodGetByID))
	if id, err := extractID(record); err == nil {
		idPrefix := c.keys.SerializeKey(c.method(methodGetByID), id)
		hashed := getPrefix + cache.KeySeparator + "h:"
		c.invalidateMatching(ctx, func(key string) bool {
			// a hashed key may belong to any ID
			return key == idPrefix ||
				strings.HasPrefix(key, idPrefix+cache.KeySeparator) ||
				strings.HasPrefix(key, hashed)
		})
	} else {
		c.invalidateByPrefix(ctx, getPrefix)
	}
	c.invalidateAfterCreate(ctx)
}

// extractID attempts to extract an ID field from a record using reflection
func extractID(record any) (string, error) {
	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", fmt.Errorf("nil record")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return "", fmt.Errorf("record of kind %s has no ID", v.Kind())
	}

	for _, fieldName := range []string{"ID", "Id"} {
		field := v.FieldByName(fieldName)
		if field.IsValid() && field.CanInterface() {
			return fmt.Sprintf("%v", field.Interface()), nil
		}
	}
	return "", fmt.Errorf("no ID field found in record")
}

// scopeFor derives a key scope from T, e.g. *model.Tag becomes "tag".
func scopeFor[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := toSnake(t.Name()); name != "" {
		return name
	}
	return toSnake(t.String())
}
