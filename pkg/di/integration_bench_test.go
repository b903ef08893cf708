package di

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/goliatone/go-market-gate/gate"
	"github.com/goliatone/go-market-gate/internal/config"
	"github.com/goliatone/go-market-gate/internal/model"
	"github.com/goliatone/go-market-gate/internal/storage"
)

// TestConcurrentLifecycleAndGate runs shop updates alongside gate checks. The
// gate may close briefly while a flush is in flight, but the record must be
// intact once every event has been handled.
func TestConcurrentLifecycleAndGate(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestContainer(t, map[string]string{
		"MARKET_GATE_MODE": config.GateModeCache,
		"MARKET_GATE_SEED": `{"active": 1, "owner": "ops"}`,
	})
	if _, err := c.SeedGate(ctx); err != nil {
		t.Fatalf("SeedGate() failed: %v", err)
	}
	seller := seedSeller(t, c, model.RoleAdmin)

	shops := make([]*model.Shop, 5)
	for i := range shops {
		shop, err := c.Shops().Create(ctx, &model.Shop{SellerID: seller.ID, Name: fmt.Sprintf("Shop %d", i)})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		shops[i] = shop
	}

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("Shop %d rev %d", i%len(shops), i)
			if _, err := c.Shops().Update(ctx, shops[i%len(shops)].ID, storage.ShopUpdate{Name: &name}); err != nil {
				errs <- err
			}
		}(i)
		go func() {
			defer wg.Done()
			c.FeatureGate().IsPermitted(ctx, gate.OperationListTags)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent update failed: %v", err)
	}

	rec, ok := c.GateStore().Read(ctx)
	if !ok || !rec.IsActive() {
		t.Fatalf("expected gate record intact, got %v (present=%v)", rec.Value(), ok)
	}
	fields, _ := rec.Fields()
	if fields["owner"] != "ops" {
		t.Errorf("expected record fields preserved, got %v", fields)
	}
}

func BenchmarkIsPermitted(b *testing.B) {
	for _, mode := range []string{config.GateModeCache, config.GateModeFlagStore} {
		b.Run(mode, func(b *testing.B) {
			ctx := context.Background()
			c := newBenchContainer(b, mode)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				c.FeatureGate().IsPermitted(ctx, gate.OperationListTags)
			}
		})
	}
}

func BenchmarkFlushAndRestore(b *testing.B) {
	for _, mode := range []string{config.GateModeCache, config.GateModeFlagStore} {
		b.Run(mode, func(b *testing.B) {
			ctx := context.Background()
			c := newBenchContainer(b, mode)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := c.GateStore().FlushAndRestore(ctx); err != nil {
					b.Fatalf("FlushAndRestore() failed: %v", err)
				}
			}
		})
	}
}

func newBenchContainer(b *testing.B, mode string) *Container {
	b.Helper()
	cfg, err := config.LoadFrom(map[string]string{
		"MARKET_GATE_MODE": mode,
		"MARKET_GATE_SEED": `{"active": 1}`,
		"MARKET_DB_DSN":    fmt.Sprintf("file:bench_%s?mode=memory&cache=shared", mode),
	})
	if err != nil {
		b.Fatalf("config: %v", err)
	}
	c, err := NewContainer(cfg, WithPublisher(&recordingPublisher{}))
	if err != nil {
		b.Fatalf("NewContainer() failed: %v", err)
	}
	b.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()
	if err := c.Migrate(ctx); err != nil {
		b.Fatalf("Migrate() failed: %v", err)
	}
	if _, err := c.SeedGate(ctx); err != nil {
		b.Fatalf("SeedGate() failed: %v", err)
	}
	return c
}
