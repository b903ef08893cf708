package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-market-gate/cache"
	"github.com/goliatone/go-market-gate/gate"
	"github.com/goliatone/go-market-gate/internal/config"
	"github.com/goliatone/go-market-gate/internal/events"
	"github.com/goliatone/go-market-gate/internal/httpapi"
	"github.com/goliatone/go-market-gate/internal/storage"
	"github.com/goliatone/go-market-gate/lifecycle"
)

// Container wires the service together from a config.Config. It owns the
// database handle, the cache store and the event publisher.
type Container struct {
	config        *config.Config
	logger        *slog.Logger
	db            *bun.DB
	ownsDB        bool
	cacheStore    cache.Store
	keySerializer cache.KeySerializer
	gateStore     gate.Store
	featureGate   *gate.FeatureGate
	publisher     events.Publisher
	coordinator   *lifecycle.Coordinator
	activity      *storage.ActivityRepository
	tags          *storage.TagService
	shops         *storage.ShopService
}

// Option configures NewContainer.
type Option func(*Container)

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// WithDB uses db instead of opening one from the config. The container does
// not close it.
func WithDB(db *bun.DB) Option {
	return func(c *Container) {
		c.db = db
	}
}

// WithPublisher overrides the publisher selected by the config.
func WithPublisher(p events.Publisher) Option {
	return func(c *Container) {
		c.publisher = p
	}
}

// NewContainer builds every component described by cfg.
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	c := &Container{config: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	if c.db == nil {
		db, err := storage.Open(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		c.db, c.ownsDB = db, true
	}

	store, err := cache.NewStore(cfg.Cache())
	if err != nil {
		c.closeDB()
		return nil, fmt.Errorf("cache store: %w", err)
	}
	c.cacheStore = store
	c.keySerializer = cache.NewDefaultKeySerializer()

	gateOpts := []gate.Option{gate.WithLogger(c.logger.With("component", "gate"))}
	switch cfg.GateMode {
	case config.GateModeCache:
		c.gateStore = gate.NewCacheStore(store, gateOpts...)
	default:
		c.gateStore = gate.NewFlagStore(storage.NewFlagRepository(c.db), store, gateOpts...)
	}
	c.featureGate = gate.NewFeatureGate(c.gateStore, gateOpts...)

	if c.publisher == nil {
		c.publisher, err = newPublisher(cfg, c.logger)
		if err != nil {
			c.closeStore()
			c.closeDB()
			return nil, err
		}
	}

	c.tags = storage.NewTagService(c.db, store, c.keySerializer, c.logger.With("component", "tags"))
	c.activity = storage.NewActivityRepository(c.db)
	c.coordinator = lifecycle.NewCoordinator(c.gateStore, c.activity,
		lifecycle.WithLogger(c.logger.With("component", "lifecycle")),
		lifecycle.WithFlushFailurePolicy(cfg.Policy()),
		lifecycle.WithSellerRoles(storage.NewSellerRepository(c.db)),
		lifecycle.WithShopCleaner(storage.NewShopCleaner(c.db, c.tags.Invalidate)),
		lifecycle.WithPublisher(c.publisher),
	)
	c.shops = storage.NewShopService(c.db, c.coordinator, c.logger.With("component", "shops"))

	return c, nil
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info("events disabled", "reason", "MARKET_NATS_URL not set")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("nats publisher: %w", err)
	}
	logger.Info("events enabled", "nats_url", cfg.NATSURL)
	return pub, nil
}

// Migrate creates the schema.
func (c *Container) Migrate(ctx context.Context) error {
	return storage.Migrate(ctx, c.db)
}

// SeedGate writes the configured gate seed, if any. This is the only write
// path for the gate record.
func (c *Container) SeedGate(ctx context.Context) (bool, error) {
	value, ok, err := c.config.Seed()
	if err != nil || !ok {
		return false, err
	}
	if err := c.gateStore.Write(ctx, gate.NewRecord(value)); err != nil {
		return false, err
	}
	c.logger.InfoContext(ctx, "gate record seeded", "mode", c.config.GateMode)
	return true, nil
}

// Handler returns the HTTP handler.
func (c *Container) Handler() http.Handler {
	return httpapi.NewServer(c.tags, c.shops, c.featureGate, c.logger.With("component", "http")).Routes()
}

// Config returns the configuration the container was built from.
func (c *Container) Config() *config.Config { return c.config }

// DB returns the database handle.
func (c *Container) DB() *bun.DB { return c.db }

// CacheStore returns the shared cache namespace.
func (c *Container) CacheStore() cache.Store { return c.cacheStore }

// KeySerializer returns the key serializer used by cached repositories.
func (c *Container) KeySerializer() cache.KeySerializer { return c.keySerializer }

// GateStore returns the store holding the gate record.
func (c *Container) GateStore() gate.Store { return c.gateStore }

// FeatureGate returns the gate guarding restricted operations.
func (c *Container) FeatureGate() *gate.FeatureGate { return c.featureGate }

// Coordinator returns the shop lifecycle coordinator.
func (c *Container) Coordinator() *lifecycle.Coordinator { return c.coordinator }

// Activity returns the activity log repository.
func (c *Container) Activity() *storage.ActivityRepository { return c.activity }

// Tags returns the tag service.
func (c *Container) Tags() *storage.TagService { return c.tags }

// Shops returns the shop service.
func (c *Container) Shops() *storage.ShopService { return c.shops }

// Close releases the publisher, the cache store and, when the container
// opened it, the database.
func (c *Container) Close() error {
	var errs []error
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if err := c.closeStore(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}
	if err := c.closeDB(); err != nil {
		errs = append(errs, fmt.Errorf("close db: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Container) closeStore() error {
	if closer, ok := c.cacheStore.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Container) closeDB() error {
	if c.ownsDB && c.db != nil {
		return c.db.Close()
	}
	return nil
}
