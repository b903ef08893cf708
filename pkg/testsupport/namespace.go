package testsupport

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrInjected is returned by MemoryNamespace operations configured to fail.
var ErrInjected = errors.New("testsupport: injected failure")

// MemoryNamespace is a map-backed cache.Namespace with call recording and
// per-operation fault injection.
type MemoryNamespace struct {
	mu      sync.Mutex
	data    map[string]any
	calls   []string
	failGet bool
	failSet map[string]bool
	failAll bool
	failFl  bool
	onFlush func()
}

// NewMemoryNamespace returns an empty namespace.
func NewMemoryNamespace() *MemoryNamespace {
	return &MemoryNamespace{
		data:    make(map[string]any),
		failSet: make(map[string]bool),
	}
}

// FailGet makes every Get return ErrInjected.
func (m *MemoryNamespace) FailGet(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failGet = fail
}

// FailSet makes Set on key return ErrInjected.
func (m *MemoryNamespace) FailSet(key string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSet[key] = fail
}

// FailAllSets makes every Set return ErrInjected.
func (m *MemoryNamespace) FailAllSets(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = fail
}

// FailFlush makes Flush return ErrInjected without clearing anything.
func (m *MemoryNamespace) FailFlush(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFl = fail
}

// OnFlush registers fn to run after a successful flush, outside the lock.
func (m *MemoryNamespace) OnFlush(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFlush = fn
}

// Seed writes values directly, bypassing fault injection and call recording.
func (m *MemoryNamespace) Seed(values map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.data[k] = v
	}
}

// Keys returns the sorted keys currently stored.
func (m *MemoryNamespace) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Calls returns the recorded operations, e.g. "Get:key" or "Flush".
func (m *MemoryNamespace) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MemoryNamespace) Get(ctx context.Context, key string) (any, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "Get:"+key)
	if m.failGet {
		return nil, false, ErrInjected
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryNamespace) Set(ctx context.Context, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "Set:"+key)
	if m.failAll || m.failSet[key] {
		return ErrInjected
	}
	m.data[key] = value
	return nil
}

func (m *MemoryNamespace) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "Delete:"+key)
	delete(m.data, key)
	return nil
}

func (m *MemoryNamespace) Flush(ctx context.Context) error {
	m.mu.Lock()
	m.calls = append(m.calls, "Flush")
	if m.failFl {
		m.mu.Unlock()
		return ErrInjected
	}
	m.data = make(map[string]any)
	hook := m.onFlush
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}
