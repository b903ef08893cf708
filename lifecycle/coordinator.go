package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-market-gate/gate"
	"github.com/goliatone/go-market-gate/internal/events"
	"github.com/goliatone/go-market-gate/internal/model"
)

// FlushFailurePolicy decides what a failed namespace flush does to the
// event that triggered it.
type FlushFailurePolicy string

const (
	// FlushIgnore logs the failure and lets the event succeed.
	FlushIgnore FlushFailurePolicy = "ignore"
	// FlushPropagate logs the failure and returns it from Handle once the
	// remaining side effects have run.
	FlushPropagate FlushFailurePolicy = "propagate"
)

// ParseFlushFailurePolicy parses a policy name. The empty string selects
// FlushIgnore.
func ParseFlushFailurePolicy(s string) (FlushFailurePolicy, error) {
	switch p := FlushFailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", FlushIgnore:
		return FlushIgnore, nil
	case FlushPropagate:
		return FlushPropagate, nil
	default:
		return "", goerrors.New(fmt.Sprintf("unknown flush failure policy %q", s), goerrors.CategoryBadInput)
	}
}

// ActivityLogger records lifecycle actions. Failures are logged by the
// coordinator and otherwise ignored.
type ActivityLogger interface {
	Log(ctx context.Context, shop *model.Shop, attrs map[string]any, action Action) error
}

// SellerRoles manages the shop owner's account when a shop is approved.
type SellerRoles interface {
	HasRole(ctx context.Context, sellerID uuid.UUID, role string) (bool, error)
	SyncRoles(ctx context.Context, sellerID uuid.UUID, roles ...string) error
	DeleteInvitations(ctx context.Context, sellerID uuid.UUID) error
}

// ShopCleaner removes data that depends on a deleted shop.
type ShopCleaner interface {
	CleanShop(ctx context.Context, shop *model.Shop) error
}

// Publisher emits handled events to subscribers outside the process.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFlushFailurePolicy sets the flush failure policy.
func WithFlushFailurePolicy(p FlushFailurePolicy) Option {
	return func(c *Coordinator) {
		c.policy = p
	}
}

// WithSellerRoles sets the collaborator used on approval.
func WithSellerRoles(r SellerRoles) Option {
	return func(c *Coordinator) {
		c.roles = r
	}
}

// WithShopCleaner sets the collaborator used on deletion.
func WithShopCleaner(sc ShopCleaner) Option {
	return func(c *Coordinator) {
		c.cleaner = sc
	}
}

// WithPublisher sets the event publisher.
func WithPublisher(p Publisher) Option {
	return func(c *Coordinator) {
		c.publisher = p
	}
}

// Coordinator runs the cache invalidation and the side effects attached to
// each shop lifecycle event. It keeps no state between events.
type Coordinator struct {
	store     gate.Store
	activity  ActivityLogger
	roles     SellerRoles
	cleaner   ShopCleaner
	publisher Publisher
	policy    FlushFailurePolicy
	logger    *slog.Logger
}

// NewCoordinator builds a Coordinator that flushes through store and records
// actions with activity.
func NewCoordinator(store gate.Store, activity ActivityLogger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		activity: activity,
		policy:   FlushIgnore,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the configured flush failure policy.
func (c *Coordinator) Policy() FlushFailurePolicy {
	return c.policy
}

// Handle runs the sequence for ev:
//
//	creating: assign an ID
//	created:  flush and restore, log
//	updated:  approval side effects, flush and restore, log
//	deleted:  dependent data removal, flush and restore, log
//	restored: log
//
// Side effect failures never skip the steps after them. They are returned
// joined, together with a flush failure under FlushPropagate.
func (c *Coordinator) Handle(ctx context.Context, ev Event) error {
	if ev == nil || ev.Entity() == nil {
		return goerrors.New("lifecycle event without shop", goerrors.CategoryBadInput)
	}

	switch e := ev.(type) {
	case Creating:
		if e.Shop.ID == uuid.Nil {
			e.Shop.ID = uuid.New()
		}
		return nil
	case Created:
		return c.run(ctx, ev, nil)
	case Updated:
		return c.run(ctx, ev, c.approve)
	case Deleted:
		return c.run(ctx, ev, c.clean)
	case Restored:
		c.record(ctx, ev)
		return nil
	default:
		return goerrors.New(fmt.Sprintf("unsupported lifecycle event %T", ev), goerrors.CategoryBadInput)
	}
}

func (c *Coordinator) run(ctx context.Context, ev Event, before func(context.Context, *model.Shop) error) error {
	var errs []error

	if before != nil {
		if err := before(ctx, ev.Entity()); err != nil {
			c.logger.ErrorContext(ctx, "shop side effect failed",
				"action", string(ev.Action()), "shop_id", ev.Entity().ID, "err", err)
			errs = append(errs, err)
		}
	}

	if err := c.invalidate(ctx, ev); err != nil {
		errs = append(errs, err)
	}

	c.record(ctx, ev)

	return errors.Join(errs...)
}

func (c *Coordinator) invalidate(ctx context.Context, ev Event) error {
	err := c.store.FlushAndRestore(ctx)
	if err == nil {
		return nil
	}

	c.logger.ErrorContext(ctx, "cache flush failed",
		"action", string(ev.Action()), "shop_id", ev.Entity().ID, "policy", string(c.policy), "err", err)

	if c.policy == FlushPropagate {
		return err
	}
	return nil
}

func (c *Coordinator) approve(ctx context.Context, shop *model.Shop) error {
	if !shop.Approved() || c.roles == nil {
		return nil
	}

	var errs []error

	admin, err := c.roles.HasRole(ctx, shop.SellerID, model.RoleAdmin)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("check seller role: %w", err))
	case !admin:
		if err := c.roles.SyncRoles(ctx, shop.SellerID, model.RoleSeller); err != nil {
			errs = append(errs, fmt.Errorf("sync seller roles: %w", err))
		}
	}

	if err := c.roles.DeleteInvitations(ctx, shop.SellerID); err != nil {
		errs = append(errs, fmt.Errorf("delete seller invitations: %w", err))
	}

	return errors.Join(errs...)
}

func (c *Coordinator) clean(ctx context.Context, shop *model.Shop) error {
	if c.cleaner == nil {
		return nil
	}
	if err := c.cleaner.CleanShop(ctx, shop); err != nil {
		return fmt.Errorf("clean shop data: %w", err)
	}
	return nil
}

// record logs the action and publishes it. Neither failure is returned.
func (c *Coordinator) record(ctx context.Context, ev Event) {
	shop := ev.Entity()
	attrs := ev.Snapshot()

	if c.activity != nil {
		if err := c.activity.Log(ctx, shop, attrs, ev.Action()); err != nil {
			c.logger.WarnContext(ctx, "activity log failed",
				"action", string(ev.Action()), "shop_id", shop.ID, "err", err)
		}
	}

	if c.publisher == nil {
		return
	}
	payload := events.ShopChanged{Action: string(ev.Action()), Shop: shop, Attributes: attrs}
	if err := c.publisher.Publish(ctx, topicFor(ev.Action()), payload); err != nil {
		c.logger.WarnContext(ctx, "event publish failed",
			"action", string(ev.Action()), "shop_id", shop.ID, "err", err)
	}
}

func topicFor(a Action) string {
	switch a {
	case ActionCreated:
		return events.TopicShopCreated
	case ActionUpdated:
		return events.TopicShopUpdated
	case ActionDeleted:
		return events.TopicShopDeleted
	default:
		return events.TopicShopRestored
	}
}
