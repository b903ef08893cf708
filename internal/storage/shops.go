package storage

import (
	"context"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-market-gate/internal/model"
	"github.com/goliatone/go-market-gate/lifecycle"
)

// EventHandler receives shop lifecycle events.
type EventHandler interface {
	Handle(ctx context.Context, ev lifecycle.Event) error
}

// ShopUpdate carries the fields an update may change. Nil fields are kept.
type ShopUpdate struct {
	Name   *string `json:"name,omitempty"`
	Slug   *string `json:"slug,omitempty"`
	Status *string `json:"status,omitempty"`
}

// ShopService persists shops and fires lifecycle events around each write.
//
// Events after a write run once the write is committed. When they fail the
// service returns the saved shop together with an error carrying
// TextCodeSideEffects.
type ShopService struct {
	db     *bun.DB
	repo   repository.Repository[*model.Shop]
	events EventHandler
	logger *slog.Logger
}

// NewShopService builds a ShopService. A nil handler disables events.
func NewShopService(db *bun.DB, events EventHandler, logger *slog.Logger) *ShopService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ShopService{
		db:     db,
		repo:   NewShopRepository(db),
		events: events,
		logger: logger,
	}
}

// Get returns a live shop.
func (s *ShopService) Get(ctx context.Context, id uuid.UUID) (*model.Shop, error) {
	return s.load(ctx, id, false)
}

// List returns live shops ordered by name.
func (s *ShopService) List(ctx context.Context) ([]*model.Shop, int, error) {
	shops, total, err := s.repo.List(ctx, orderBy("name ASC"))
	if err != nil {
		return nil, 0, dbError(err, "list shops")
	}
	return shops, total, nil
}

// Create inserts shop. The creating event assigns its ID.
func (s *ShopService) Create(ctx context.Context, shop *model.Shop) (*model.Shop, error) {
	if shop.Status == "" {
		shop.Status = model.ShopStatusPending
	}
	if shop.Slug == "" {
		shop.Slug = slugify(shop.Name)
	}
	if err := validateShop(shop); err != nil {
		return nil, err
	}

	if err := s.fire(ctx, lifecycle.Creating{Shop: shop}); err != nil {
		return nil, err
	}
	if shop.ID == uuid.Nil {
		shop.ID = uuid.New()
	}

	now := time.Now().UTC()
	shop.CreatedAt, shop.UpdatedAt = now, now

	created, err := s.repo.Create(ctx, shop)
	if err != nil {
		return nil, dbError(err, "create shop")
	}
	if created == nil {
		created = shop
	}

	if err := s.fire(ctx, lifecycle.NewEvent(lifecycle.ActionCreated, created)); err != nil {
		return created, sideEffects(err, "create")
	}
	return created, nil
}

// Update applies patch to a live shop.
func (s *ShopService) Update(ctx context.Context, id uuid.UUID, patch ShopUpdate) (*model.Shop, error) {
	shop, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		shop.Name = *patch.Name
	}
	if patch.Slug != nil {
		shop.Slug = *patch.Slug
	}
	if patch.Status != nil {
		shop.Status = *patch.Status
	}
	if err := validateShop(shop); err != nil {
		return nil, err
	}
	shop.UpdatedAt = time.Now().UTC()

	// the repository scopes the update to the primary key itself
	updated, err := s.repo.Update(ctx, shop)
	if err != nil {
		return nil, dbError(err, "update shop")
	}
	if updated == nil {
		updated = shop
	}

	if err := s.fire(ctx, lifecycle.NewEvent(lifecycle.ActionUpdated, updated)); err != nil {
		return updated, sideEffects(err, "update")
	}
	return updated, nil
}

// Delete soft deletes a live shop.
func (s *ShopService) Delete(ctx context.Context, id uuid.UUID) (*model.Shop, error) {
	shop, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}

	// soft delete: bun turns this into an update of deleted_at
	if _, err := s.db.NewDelete().Model(shop).WherePK().Exec(ctx); err != nil {
		return nil, dbError(err, "delete shop")
	}
	if shop.DeletedAt.IsZero() {
		shop.DeletedAt = time.Now().UTC()
	}

	if err := s.fire(ctx, lifecycle.NewEvent(lifecycle.ActionDeleted, shop)); err != nil {
		return shop, sideEffects(err, "delete")
	}
	return shop, nil
}

// Restore brings back a soft deleted shop.
func (s *ShopService) Restore(ctx context.Context, id uuid.UUID) (*model.Shop, error) {
	shop, err := s.load(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if shop.DeletedAt.IsZero() {
		return nil, notDeleted("shop")
	}

	_, err = s.db.NewUpdate().
		Model(new(model.Shop)).
		WhereAllWithDeleted().
		Set("deleted_at = NULL").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, dbError(err, "restore shop")
	}

	shop, err = s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}

	if err := s.fire(ctx, lifecycle.NewEvent(lifecycle.ActionRestored, shop)); err != nil {
		return shop, sideEffects(err, "restore")
	}
	return shop, nil
}

func (s *ShopService) load(ctx context.Context, id uuid.UUID, withDeleted bool) (*model.Shop, error) {
	shop := new(model.Shop)
	q := s.db.NewSelect().Model(shop).Where("id = ?", id)
	if withDeleted {
		q = q.WhereAllWithDeleted()
	}
	if err := q.Limit(1).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, notFound("shop")
		}
		return nil, dbError(err, "load shop")
	}
	return shop, nil
}

func (s *ShopService) fire(ctx context.Context, ev lifecycle.Event) error {
	if s.events == nil {
		return nil
	}
	err := s.events.Handle(ctx, ev)
	if err != nil {
		s.logger.WarnContext(ctx, "shop lifecycle handler failed",
			"action", string(ev.Action()), "shop_id", ev.Entity().ID, "err", err)
	}
	return err
}

func validateShop(shop *model.Shop) error {
	err := validation.ValidateStruct(shop,
		validation.Field(&shop.Name, validation.Required, validation.Length(1, 191)),
		validation.Field(&shop.Slug, validation.Required, validation.Length(1, 191)),
		validation.Field(&shop.SellerID, validation.By(requiredUUID)),
		validation.Field(&shop.Status, validation.Required,
			validation.In(model.ShopStatusPending, model.ShopStatusApproved, model.ShopStatusRejected)),
	)
	if err != nil {
		return invalid(err.Error())
	}
	return nil
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func requiredUUID(v any) error {
	switch id := v.(type) {
	case uuid.UUID:
		if id != uuid.Nil {
			return nil
		}
	case *uuid.UUID:
		if id != nil && *id != uuid.Nil {
			return nil
		}
	}
	return validation.NewError("validation_required", "cannot be blank")
}
