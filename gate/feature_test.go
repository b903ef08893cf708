package gate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-market-gate/pkg/testsupport"
)

func TestLooselyEqualsOne(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"int", 1, true},
		{"int64", int64(1), true},
		{"uint8", uint8(1), true},
		{"float", 1.0, true},
		{"float32", float32(1), true},
		{"true", true, true},
		{"string", "1", true},
		{"padded string", " 1\n", true},
		{"decimal string", "1.0", true},
		{"exponent string", "1e0", true},
		{"json number", json.Number("1"), true},
		{"zero", 0, false},
		{"two", 2, false},
		{"negative", -1, false},
		{"fraction", 1.5, false},
		{"false", false, false},
		{"nil", nil, false},
		{"empty string", "", false},
		{"word", "one", false},
		{"hex", "0x1", false},
		{"trailing garbage", "1abc", false},
		{"slice", []any{1}, false},
		{"map", map[string]any{"v": 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooselyEqualsOne(tt.value); got != tt.want {
				t.Errorf("LooselyEqualsOne(%#v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestRecord_Fields(t *testing.T) {
	t.Run("typed map", func(t *testing.T) {
		rec := NewRecord(map[string]int{"active": 1})
		if !rec.IsActive() {
			t.Error("expected map[string]int record to be active")
		}
	})

	t.Run("interface keyed map", func(t *testing.T) {
		rec := NewRecord(map[any]any{"active": "1"})
		if !rec.IsActive() {
			t.Error("expected map[any]any record with string keys to be active")
		}
	})

	t.Run("non string key", func(t *testing.T) {
		rec := NewRecord(map[any]any{1: 1})
		if _, ok := rec.Fields(); ok {
			t.Error("expected map with integer keys to be rejected")
		}
	})

	t.Run("scalar", func(t *testing.T) {
		rec := NewRecord(1)
		if _, ok := rec.Fields(); ok {
			t.Error("expected scalar record to have no fields")
		}
		if rec.Value() != 1 {
			t.Errorf("expected raw value to be kept, got %v", rec.Value())
		}
	})
}

func TestFeatureGate_RecordFixtures(t *testing.T) {
	var cases []struct {
		Name      string `json:"name"`
		Record    any    `json:"record"`
		Permitted bool   `json:"permitted"`
	}
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("records.json"), &cases)

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			ns := testsupport.NewMemoryNamespace()
			ns.Seed(map[string]any{ReservedKey: tc.Record})
			g := NewFeatureGate(NewCacheStore(ns))

			if got := g.IsPermitted(context.Background(), OperationListTags); got != tc.Permitted {
				t.Errorf("IsPermitted = %v, want %v for record %#v", got, tc.Permitted, tc.Record)
			}
		})
	}
}

func TestFeatureGate_AbsentRecordDenies(t *testing.T) {
	ns := testsupport.NewMemoryNamespace()
	g := NewFeatureGate(NewCacheStore(ns))

	if g.IsPermitted(context.Background(), OperationListTags) {
		t.Error("expected absent record to deny")
	}
}

func TestFeatureGate_ReadErrorDenies(t *testing.T) {
	ns := testsupport.NewMemoryNamespace()
	ns.Seed(map[string]any{ReservedKey: map[string]any{"active": 1}})
	ns.FailGet(true)
	g := NewFeatureGate(NewCacheStore(ns))

	if g.IsPermitted(context.Background(), OperationListTags) {
		t.Error("expected read failure to deny")
	}
}

func TestFeatureGate_Authorize(t *testing.T) {
	ctx := context.Background()
	ns := testsupport.NewMemoryNamespace()
	g := NewFeatureGate(NewCacheStore(ns))

	err := g.Authorize(ctx, OperationListTags)
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	if !IsForbidden(err) {
		t.Errorf("expected IsForbidden to recognise %v", err)
	}

	var gerr *goerrors.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *goerrors.Error, got %T", err)
	}
	if gerr.Code != http.StatusForbidden {
		t.Errorf("expected code %d, got %d", http.StatusForbidden, gerr.Code)
	}
	if gerr.TextCode != TextCodeForbidden {
		t.Errorf("expected text code %q, got %q", TextCodeForbidden, gerr.TextCode)
	}

	ns.Seed(map[string]any{ReservedKey: map[string]any{"active": 1}})
	if err := g.Authorize(ctx, OperationListTags); err != nil {
		t.Errorf("expected authorize to pass, got %v", err)
	}
}

func TestIsForbidden_OtherErrors(t *testing.T) {
	if IsForbidden(nil) {
		t.Error("nil is not forbidden")
	}
	if IsForbidden(errors.New("plain")) {
		t.Error("plain error is not forbidden")
	}
	if IsForbidden(goerrors.New("boom", goerrors.CategoryExternal)) {
		t.Error("external error is not forbidden")
	}
}
