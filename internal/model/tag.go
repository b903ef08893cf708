package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tag labels products of a shop.
type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	ShopID    *uuid.UUID `bun:"shop_id,type:uuid" json:"shop_id,omitempty"`
	Name      string     `bun:"name,notnull" json:"name"`
	Slug      string     `bun:"slug,notnull" json:"slug"`
	Details   string     `bun:"details" json:"details,omitempty"`
	CreatedAt time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
	DeletedAt time.Time  `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}
