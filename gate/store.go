package gate

import (
	"context"
	"log/slog"
	"sync"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-market-gate/cache"
)

// Text codes attached to errors produced by this package.
const (
	TextCodeFlushFailed = "CACHE_FLUSH_FAILED"
	TextCodeWriteFailed = "GATE_WRITE_FAILED"
	TextCodeForbidden   = "FORBIDDEN"
)

// Reader is the read side of a Store.
type Reader interface {
	// Read returns the current record. Absence and backend failure both
	// report false.
	Read(ctx context.Context) (Record, bool)
}

// Store owns every access to the reserved gate record.
type Store interface {
	Reader

	// Write sets the reserved record. Callers on the invalidation path
	// discard the error.
	Write(ctx context.Context, rec Record) error

	// FlushNamespace clears the whole shared cache namespace.
	FlushNamespace(ctx context.Context) error

	// FlushAndRestore flushes the namespace and leaves the reserved record
	// as it was before the flush. A flush failure is returned; a failed
	// restore write is not.
	FlushAndRestore(ctx context.Context) error
}

// Option configures stores and gates.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the structured logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// CacheStore keeps the reserved record inside the shared namespace, next to
// every other cache entry. Each flush wipes it, so FlushAndRestore snapshots
// and rewrites it.
//
// FlushAndRestore calls are serialised within the process. Across processes
// sharing one backend the read/flush/write window is not protected: a
// concurrent reader may see the record as absent, and interleaved restores
// are last-write-wins.
type CacheStore struct {
	ns     cache.Namespace
	logger *slog.Logger
	mu     sync.Mutex
}

var _ Store = (*CacheStore)(nil)

// NewCacheStore builds a Store over ns.
func NewCacheStore(ns cache.Namespace, opts ...Option) *CacheStore {
	o := buildOptions(opts)
	return &CacheStore{ns: ns, logger: o.logger}
}

// Read implements Reader.
func (s *CacheStore) Read(ctx context.Context) (Record, bool) {
	value, ok, err := s.ns.Get(ctx, ReservedKey)
	if err != nil {
		s.logger.DebugContext(ctx, "gate record read failed", "key", ReservedKey, "err", err)
		return Record{}, false
	}
	if !ok || value == nil {
		return Record{}, false
	}
	return NewRecord(value), true
}

// Write implements Store.
func (s *CacheStore) Write(ctx context.Context, rec Record) error {
	if err := s.ns.Set(ctx, ReservedKey, rec.Value()); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "write gate record").
			WithTextCode(TextCodeWriteFailed)
	}
	return nil
}

// FlushNamespace implements Store.
func (s *CacheStore) FlushNamespace(ctx context.Context) error {
	return flushNamespace(ctx, s.ns)
}

// FlushAndRestore implements Store.
func (s *CacheStore) FlushAndRestore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, present := s.Read(ctx)

	if err := s.FlushNamespace(ctx); err != nil {
		return err
	}

	if !present {
		return nil
	}

	// best effort: the restore error is logged and dropped here
	if err := s.Write(ctx, snapshot); err != nil {
		s.logger.WarnContext(ctx, "gate record restore failed, gate reads as disabled until rewritten",
			"key", ReservedKey, "err", err)
	}
	return nil
}

func flushNamespace(ctx context.Context, ns cache.Namespace) error {
	if err := ns.Flush(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "flush cache namespace").
			WithTextCode(TextCodeFlushFailed)
	}
	return nil
}
