package repositorycache

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-market-gate/cache"
)

type TestTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// mockRepository counts base calls so tests can tell hits from misses.
type mockRepository struct {
	mu      sync.Mutex
	calls   []string
	records map[string]*TestTag
	err     error
}

func newMockRepository(tags ...*TestTag) *mockRepository {
	m := &mockRepository{records: make(map[string]*TestTag)}
	for _, tag := range tags {
		m.records[tag.ID] = tag
	}
	return m
}

func (m *mockRepository) recordCall(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, method)
}

func (m *mockRepository) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockRepository) clearCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *mockRepository) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*TestTag, error) {
	m.recordCall("GetByID")
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tag, ok := m.records[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *tag
	return &copied, nil
}

func (m *mockRepository) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]*TestTag, int, error) {
	m.recordCall("List")
	if m.err != nil {
		return nil, 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*TestTag, 0, len(m.records))
	for _, tag := range m.records {
		copied := *tag
		out = append(out, &copied)
	}
	return out, len(out), nil
}

func (m *mockRepository) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	m.recordCall("Count")
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), m.err
}

func (m *mockRepository) Create(ctx context.Context, record *TestTag, criteria ...repository.InsertCriteria) (*TestTag, error) {
	m.recordCall("Create")
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record
	return record, nil
}

func (m *mockRepository) Update(ctx context.Context, record *TestTag, criteria ...repository.UpdateCriteria) (*TestTag, error) {
	m.recordCall("Update")
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record
	return record, nil
}

func (m *mockRepository) Delete(ctx context.Context, record *TestTag) error {
	m.recordCall("Delete")
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, record.ID)
	return nil
}

func (m *mockRepository) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	m.recordCall("DeleteWhere")
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]*TestTag)
	return nil
}

func newTestCache(t *testing.T) cache.Store {
	t.Helper()
	store, err := cache.NewStore(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return store
}

func newTestRepo(t *testing.T, tags ...*TestTag) (*CachedRepository[*TestTag], *mockRepository) {
	t.Helper()
	base := newMockRepository(tags...)
	return New[*TestTag](base, newTestCache(t), cache.NewDefaultKeySerializer()), base
}

func countCalls(calls []string, method string) int {
	n := 0
	for _, c := range calls {
		if c == method {
			n++
		}
	}
	return n
}

func TestNew_DerivesScope(t *testing.T) {
	repo, _ := newTestRepo(t)
	if repo.Scope() != "test_tag" {
		t.Errorf("expected scope test_tag, got %q", repo.Scope())
	}

	scoped := New[*TestTag](newMockRepository(), newTestCache(t), cache.NewDefaultKeySerializer(), WithScope("labels"))
	if scoped.Scope() != "labels" {
		t.Errorf("expected scope labels, got %q", scoped.Scope())
	}
}

func TestCachedReads_HitAfterMiss(t *testing.T) {
	ctx := context.Background()
	repo, base := newTestRepo(t, &TestTag{ID: "1", Name: "red"})

	for i := 0; i < 3; i++ {
		tag, err := repo.GetByID(ctx, "1")
		if err != nil || tag.Name != "red" {
			t.Fatalf("GetByID = %v, %v", tag, err)
		}
		if _, total, err := repo.List(ctx); err != nil || total != 1 {
			t.Fatalf("List total = %d, %v", total, err)
		}
		if n, err := repo.Count(ctx); err != nil || n != 1 {
			t.Fatalf("Count = %d, %v", n, err)
		}
	}

	calls := base.getCalls()
	for _, method := range []string{"GetByID", "List", "Count"} {
		if got := countCalls(calls, method); got != 1 {
			t.Errorf("expected 1 base %s call, got %d", method, got)
		}
	}
	if repo.TrackedKeys() != 3 {
		t.Errorf("expected 3 tracked keys, got %d", repo.TrackedKeys())
	}
}

func TestCachedReads_CriteriaWithoutTagsBypass(t *testing.T) {
	ctx := context.Background()
	repo, base := newTestRepo(t, &TestTag{ID: "1", Name: "red"})
	criteria := func(q *bun.SelectQuery) *bun.SelectQuery { return q }

	for i := 0; i < 2; i++ {
		if _, _, err := repo.List(ctx, criteria); err != nil {
			t.Fatalf("List failed: %v", err)
		}
	}
	if got := countCalls(base.getCalls(), "List"); got != 2 {
		t.Errorf("expected untagged criteria reads to bypass the cache, got %d base calls", got)
	}
	if repo.TrackedKeys() != 0 {
		t.Errorf("expected no tracked keys, got %d", repo.TrackedKeys())
	}
}

func TestCachedReads_TagsKeyCriteria(t *testing.T) {
	ctx := context.Background()
	repo, base := newTestRepo(t, &TestTag{ID: "1", Name: "red"})
	criteria := func(q *bun.SelectQuery) *bun.SelectQuery { return q }

	page1 := WithCacheTags(ctx, "page=1")
	page2 := WithCacheTags(ctx, "page=2")

	for i := 0; i < 2; i++ {
		if _, _, err := repo.List(page1, criteria); err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if _, _, err := repo.List(page2, criteria); err != nil {
			t.Fatalf("List failed: %v", err)
		}
	}
	if got := countCalls(base.getCalls(), "List"); got != 2 {
		t.Errorf("expected one base call per distinct tag set, got %d", got)
	}
}

func TestCachedReads_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	repo, base := newTestRepo(t, &TestTag{ID: "1", Name: "red"})
	base.err = errors.New("db down")

	if _, err := repo.GetByID(ctx, "1"); err == nil || !strings.Contains(err.Error(), "db down") {
		t.Fatalf("expected base error, got %v", err)
	}

	base.err = nil
	tag, err := repo.GetByID(ctx, "1")
	if err != nil || tag.Name != "red" {
		t.Fatalf("expected recovery after error, got %v, %v", tag, err)
	}
}

func TestWrites_Invalidate(t *testing.T) {
	ctx := context.Background()
	repo, base := newTestRepo(t, &TestTag{ID: "1", Name: "red"}, &TestTag{ID: "2", Name: "blue"})

	warm := func() {
		t.Helper()
		for _, id := range []string{"1", "2"} {
			if _, err := repo.GetByID(ctx, id); err != nil {
				t.Fatalf("GetByID(%s) failed: %v", id, err)
			}
		}
		if _, _, err := repo.List(ctx); err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if _, err := repo.Count(ctx); err != nil {
			t.Fatalf("Count failed: %v", err)
		}
	}

	t.Run("create keeps single records", func(t *testing.T) {
		warm()
		base.clearCalls()
		if _, err := repo.Create(ctx, &TestTag{ID: "3", Name: "green"}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		warm()
		calls := base.getCalls()
		if countCalls(calls, "GetByID") != 0 {
			t.Errorf("expected GetByID entries to survive create, got %v", calls)
		}
		if countCalls(calls, "List") != 1 || countCalls(calls, "Count") != 1 {
			t.Errorf("expected listings to be refetched, got %v", calls)
		}
	})

	t.Run("update drops the record", func(t *testing.T) {
		warm()
		base.clearCalls()
		if _, err := repo.Update(ctx, &TestTag{ID: "1", Name: "crimson"}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		tag, err := repo.GetByID(ctx, "1")
		if err != nil || tag.Name != "crimson" {
			t.Errorf("expected fresh record, got %v, %v", tag, err)
		}
		if _, err := repo.GetByID(ctx, "2"); err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		calls := base.getCalls()
		if countCalls(calls, "GetByID") != 1 {
			t.Errorf("expected only the updated record to be refetched, got %v", calls)
		}
	})

	t.Run("delete where drops everything", func(t *testing.T) {
		warm()
		if err := repo.DeleteWhere(ctx); err != nil {
			t.Fatalf("DeleteWhere failed: %v", err)
		}
		if repo.TrackedKeys() != 0 {
			t.Errorf("expected registry to be empty, got %d", repo.TrackedKeys())
		}
		n, err := repo.Count(ctx)
		if err != nil || n != 0 {
			t.Errorf("expected empty count, got %d, %v", n, err)
		}
	})
}

func TestWrites_FailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	repo, base := newTestRepo(t, &TestTag{ID: "1", Name: "red"})

	if _, _, err := repo.List(ctx); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	base.err = errors.New("constraint")
	if _, err := repo.Create(ctx, &TestTag{ID: "2"}); err == nil {
		t.Fatal("expected create to fail")
	}
	if repo.TrackedKeys() != 1 {
		t.Errorf("expected failed write to keep keys, got %d", repo.TrackedKeys())
	}
}

func TestInvalidate_ScopeOnly(t *testing.T) {
	ctx := context.Background()
	store := newTestCache(t)
	keys := cache.NewDefaultKeySerializer(cache.WithPrefix("market"))

	tags := New[*TestTag](newMockRepository(&TestTag{ID: "1"}), store, keys, WithScope("tag"))
	others := New[*TestTag](newMockRepository(&TestTag{ID: "1"}), store, keys, WithScope("tag_group"))

	if _, _, err := tags.List(ctx); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if _, _, err := others.List(ctx); err != nil {
		t.Fatalf("List failed: %v", err)
	}

	// written by another process; never tracked here
	if err := store.Set(ctx, "market::tag.list::page=9", "stale"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	tags.Invalidate(ctx)
	if _, ok, _ := store.Get(ctx, "market::tag.list::page=9"); ok {
		t.Error("expected untracked key under the scope to be dropped")
	}
	if tags.TrackedKeys() != 0 {
		t.Errorf("expected tag scope to be cleared, got %d keys", tags.TrackedKeys())
	}
	if others.TrackedKeys() != 1 {
		t.Errorf("expected other scope untouched, got %d keys", others.TrackedKeys())
	}
}

func TestWithCacheTags(t *testing.T) {
	ctx := WithCacheTags(context.Background(), "page=1", " ", "page=1")
	ctx = WithCacheTags(ctx, "per_page=15")

	got := cacheTagsFromContext(ctx)
	want := []string{"page=1", "per_page=15"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if tags := cacheTagsFromContext(WithCacheTags(context.Background())); tags != nil {
		t.Errorf("expected no tags, got %v", tags)
	}
}

func TestToSnake(t *testing.T) {
	tests := map[string]string{
		"Tag":       "tag",
		"ShopTag":   "shop_tag",
		"HTTPRoute": "http_route",
		"model.Tag": "model_tag",
		"Page[int]": "page_int",
		"":          "",
	}
	for in, want := range tests {
		if got := toSnake(in); got != want {
			t.Errorf("toSnake(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractID(t *testing.T) {
	if id, err := extractID(&TestTag{ID: "7"}); err != nil || id != "7" {
		t.Errorf("expected 7, got %q, %v", id, err)
	}
	if _, err := extractID((*TestTag)(nil)); err == nil {
		t.Error("expected error for nil record")
	}
	if _, err := extractID(42); err == nil {
		t.Error("expected error for scalar record")
	}
}
