package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Shop statuses.
const (
	ShopStatusPending  = "pending"
	ShopStatusApproved = "approved"
	ShopStatusRejected = "rejected"
)

// Shop is a vendor storefront owned by a seller.
type Shop struct {
	bun.BaseModel `bun:"table:shops,alias:s"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	SellerID  uuid.UUID `bun:"seller_id,type:uuid,notnull" json:"seller_id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Slug      string    `bun:"slug,unique,notnull" json:"slug"`
	Status    string    `bun:"status,notnull,default:'pending'" json:"status"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
	DeletedAt time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Approved reports whether the shop has been approved.
func (s *Shop) Approved() bool {
	return s.Status == ShopStatusApproved
}

// Attributes returns a snapshot of the shop's persisted fields.
func (s *Shop) Attributes() map[string]any {
	attrs := map[string]any{
		"id":         s.ID.String(),
		"seller_id":  s.SellerID.String(),
		"name":       s.Name,
		"slug":       s.Slug,
		"status":     s.Status,
		"created_at": s.CreatedAt,
		"updated_at": s.UpdatedAt,
	}
	if !s.DeletedAt.IsZero() {
		attrs["deleted_at"] = s.DeletedAt
	}
	return attrs
}
