package gate

import (
	"context"
	"log/slog"
	"sync"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-market-gate/cache"
)

// FlagBackend persists feature flags outside the shared cache namespace.
type FlagBackend interface {
	LoadFlag(ctx context.Context, key string) (any, bool, error)
	SaveFlag(ctx context.Context, key string, value any) error
}

// FlagStore keeps the reserved record in a dedicated FlagBackend. Flushing the
// shared namespace cannot touch it, so FlushAndRestore is a plain flush and
// there is no window in which readers observe the record as missing.
type FlagStore struct {
	flags  FlagBackend
	ns     cache.Namespace
	logger *slog.Logger
	mu     sync.Mutex
}

var _ Store = (*FlagStore)(nil)

// NewFlagStore builds a Store that reads the record from flags and flushes ns.
func NewFlagStore(flags FlagBackend, ns cache.Namespace, opts ...Option) *FlagStore {
	o := buildOptions(opts)
	return &FlagStore{flags: flags, ns: ns, logger: o.logger}
}

// Read implements Reader.
func (s *FlagStore) Read(ctx context.Context) (Record, bool) {
	value, ok, err := s.flags.LoadFlag(ctx, ReservedKey)
	if err != nil {
		s.logger.DebugContext(ctx, "gate flag read failed", "key", ReservedKey, "err", err)
		return Record{}, false
	}
	if !ok || value == nil {
		return Record{}, false
	}
	return NewRecord(value), true
}

// Write implements Store.
func (s *FlagStore) Write(ctx context.Context, rec Record) error {
	if err := s.flags.SaveFlag(ctx, ReservedKey, rec.Value()); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "write gate flag").
			WithTextCode(TextCodeWriteFailed)
	}
	return nil
}

// FlushNamespace implements Store. The flag backend is left untouched.
func (s *FlagStore) FlushNamespace(ctx context.Context) error {
	return flushNamespace(ctx, s.ns)
}

// FlushAndRestore implements Store.
func (s *FlagStore) FlushAndRestore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.FlushNamespace(ctx)
}
