package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-market-gate/cache"
	"github.com/goliatone/go-market-gate/gate"
	"github.com/goliatone/go-market-gate/internal/storage"
	"github.com/goliatone/go-market-gate/pkg/testsupport"
)

type tagFixture struct {
	handler http.Handler
	ns      *testsupport.MemoryNamespace
	tags    *storage.TagService
}

func newTagFixture(t *testing.T, record any) *tagFixture {
	t.Helper()
	db := testsupport.NewTestDB(t)
	if err := storage.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store, err := cache.NewStore(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	ns := testsupport.NewMemoryNamespace()
	if record != nil {
		ns.Seed(map[string]any{gate.ReservedKey: record})
	}
	tags := storage.NewTagService(db, store, cache.NewDefaultKeySerializer(), nil)
	srv := NewServer(tags, &fakeShops{}, gate.NewFeatureGate(gate.NewCacheStore(ns)), nil)
	return &tagFixture{handler: srv.Routes(), ns: ns, tags: tags}
}

func (f *tagFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, "/api/v1/dashboard/admin"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

type decoded struct {
	Status  bool            `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) decoded {
	t.Helper()
	var out decoded
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid response body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestListTags_Gate(t *testing.T) {
	tests := []struct {
		name   string
		record any
		want   int
	}{
		{name: "active integer", record: map[string]any{"active": 1}, want: http.StatusOK},
		{name: "active string", record: map[string]any{"active": "1"}, want: http.StatusOK},
		{name: "active true", record: map[string]any{"active": true}, want: http.StatusOK},
		{name: "inactive", record: map[string]any{"active": 0}, want: http.StatusForbidden},
		{name: "missing field", record: map[string]any{"enabled": 1}, want: http.StatusForbidden},
		{name: "scalar record", record: "1", want: http.StatusForbidden},
		{name: "absent record", record: nil, want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTagFixture(t, tt.record)
			rec := f.do(t, http.MethodGet, "/tags", nil)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestListTags_ForbiddenBodyIsGeneric(t *testing.T) {
	f := newTagFixture(t, map[string]any{"active": 0, "reason": "maintenance"})
	rec := f.do(t, http.MethodGet, "/tags", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "maintenance") || strings.Contains(rec.Body.String(), "active") {
		t.Errorf("forbidden body leaks gate details: %s", rec.Body.String())
	}
	testsupport.CompareJSONWithGolden(t, testsupport.GoldenPath("forbidden.json"), rec.Body.Bytes())
}

func TestListTags_SurvivesShopInvalidation(t *testing.T) {
	f := newTagFixture(t, map[string]any{"active": 1})
	store := gate.NewCacheStore(f.ns)
	if err := store.FlushAndRestore(context.Background()); err != nil {
		t.Fatalf("FlushAndRestore failed: %v", err)
	}
	if rec := f.do(t, http.MethodGet, "/tags", nil); rec.Code != http.StatusOK {
		t.Errorf("expected gate to survive flush, got %d", rec.Code)
	}
}

func TestTagHandlers_CRUD(t *testing.T) {
	f := newTagFixture(t, map[string]any{"active": 1})

	rec := f.do(t, http.MethodPost, "/tags", map[string]any{"name": "Summer Sale", "details": "seasonal"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(decode(t, rec).Data, &created); err != nil {
		t.Fatalf("decode created tag: %v", err)
	}
	if created.Slug != "summer-sale" {
		t.Errorf("expected derived slug, got %q", created.Slug)
	}

	if rec := f.do(t, http.MethodGet, "/tags/"+created.ID, nil); rec.Code != http.StatusOK {
		t.Errorf("show: expected 200, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPut, "/tags/"+created.ID, map[string]any{"name": "Winter Sale"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/tags?page=1&perPage=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("index: expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	var listed []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body.Data, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].Name != "Winter Sale" {
		t.Errorf("unexpected listing %s", body.Data)
	}
	var meta pageMeta
	if err := json.Unmarshal(body.Meta, &meta); err != nil || meta.Total != 1 || meta.PerPage != 5 {
		t.Errorf("unexpected meta %s", body.Meta)
	}

	rec = f.do(t, http.MethodDelete, "/tags/delete", map[string]any{"ids": []string{created.ID}})
	if rec.Code != http.StatusOK {
		t.Fatalf("destroy: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(t, http.MethodGet, "/tags/"+created.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("show after destroy: expected 404, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodDelete, "/tags/delete", map[string]any{"ids": []string{created.ID}})
	if rec.Code != http.StatusNotFound {
		t.Errorf("destroy again: expected 404, got %d", rec.Code)
	}

	if rec := f.do(t, http.MethodPost, "/tags/restore/all", nil); rec.Code != http.StatusOK {
		t.Errorf("restore all: expected 200, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/tags/"+created.ID, nil); rec.Code != http.StatusOK {
		t.Errorf("show after restore: expected 200, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodDelete, "/tags/drop/all", nil); rec.Code != http.StatusOK {
		t.Errorf("drop all: expected 200, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodDelete, "/tags/truncate/db", nil); rec.Code != http.StatusOK {
		t.Errorf("truncate: expected 200, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/tags/restore/all", nil); rec.Code != http.StatusOK {
		t.Errorf("restore all after truncate: expected 200, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/tags/"+created.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("show after truncate: expected 404, got %d", rec.Code)
	}
}

func TestTagHandlers_BadInput(t *testing.T) {
	f := newTagFixture(t, map[string]any{"active": 1})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   string
	}{
		{name: "invalid id", method: http.MethodGet, path: "/tags/not-a-uuid", code: "INVALID_INPUT"},
		{name: "missing name", method: http.MethodPost, path: "/tags", body: map[string]any{"details": "x"}, code: storage.TextCodeInvalid},
		{name: "empty ids", method: http.MethodDelete, path: "/tags/delete", body: map[string]any{"ids": []string{}}, code: storage.TextCodeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := decode(t, rec).Code; got != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, got)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dashboard/admin/tags", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: expected 400, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	f := newTagFixture(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
