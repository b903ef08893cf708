package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-market-gate/internal/model"
	"github.com/goliatone/go-market-gate/lifecycle"
)

// ActivityRepository writes lifecycle actions to activity_logs.
type ActivityRepository struct {
	db bun.IDB
}

var _ lifecycle.ActivityLogger = (*ActivityRepository)(nil)

// NewActivityRepository builds an ActivityRepository.
func NewActivityRepository(db bun.IDB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Log implements lifecycle.ActivityLogger.
func (r *ActivityRepository) Log(ctx context.Context, shop *model.Shop, attrs map[string]any, action lifecycle.Action) error {
	entry := &model.ActivityLog{
		ID:         uuid.New(),
		Entity:     "shop",
		EntityID:   shop.ID.String(),
		Action:     string(action),
		Attributes: maps.Clone(attrs),
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := r.db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

// ListForEntity returns the actions recorded for an entity, oldest first.
func (r *ActivityRepository) ListForEntity(ctx context.Context, entityID string) ([]*model.ActivityLog, error) {
	var logs []*model.ActivityLog
	err := r.db.NewSelect().
		Model(&logs).
		Where("entity_id = ?", entityID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	return logs, nil
}

// SellerRepository manages the seller side of shop approval.
type SellerRepository struct {
	db bun.IDB
}

var _ lifecycle.SellerRoles = (*SellerRepository)(nil)

// NewSellerRepository builds a SellerRepository.
func NewSellerRepository(db bun.IDB) *SellerRepository {
	return &SellerRepository{db: db}
}

// HasRole implements lifecycle.SellerRoles. A missing user has no roles.
func (r *SellerRepository) HasRole(ctx context.Context, sellerID uuid.UUID, role string) (bool, error) {
	user := new(model.User)
	err := r.db.NewSelect().Model(user).Column("role").Where("id = ?", sellerID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load seller role: %w", err)
	}
	return user.Role == role, nil
}

// SyncRoles implements lifecycle.SellerRoles. Users hold exactly one role.
func (r *SellerRepository) SyncRoles(ctx context.Context, sellerID uuid.UUID, roles ...string) error {
	if len(roles) != 1 {
		return goerrors.New(fmt.Sprintf("users hold exactly one role, got %d", len(roles)), goerrors.CategoryBadInput)
	}
	_, err := r.db.NewUpdate().
		Model((*model.User)(nil)).
		Set("role = ?", roles[0]).
		Where("id = ?", sellerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sync seller roles: %w", err)
	}
	return nil
}

// DeleteInvitations implements lifecycle.SellerRoles.
func (r *SellerRepository) DeleteInvitations(ctx context.Context, sellerID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*model.Invitation)(nil)).
		Where("seller_id = ?", sellerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete invitations: %w", err)
	}
	return nil
}

// ShopCleaner soft deletes the tags of a deleted shop and drops the
// invitations sent by its seller.
type ShopCleaner struct {
	db bun.IDB
	// invalidate runs after tags were removed, if set.
	invalidate func(context.Context)
}

var _ lifecycle.ShopCleaner = (*ShopCleaner)(nil)

// NewShopCleaner builds a ShopCleaner. invalidate may be nil.
func NewShopCleaner(db bun.IDB, invalidate func(context.Context)) *ShopCleaner {
	return &ShopCleaner{db: db, invalidate: invalidate}
}

// CleanShop implements lifecycle.ShopCleaner.
func (c *ShopCleaner) CleanShop(ctx context.Context, shop *model.Shop) error {
	res, err := c.db.NewDelete().
		Model(new(model.Tag)).
		Where("shop_id = ?", shop.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete shop tags: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 && c.invalidate != nil {
		c.invalidate(ctx)
	}

	_, err = c.db.NewDelete().
		Model((*model.Invitation)(nil)).
		Where("seller_id = ?", shop.SellerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete shop invitations: %w", err)
	}
	return nil
}
