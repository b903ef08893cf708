package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivityLog records one lifecycle action on an entity.
type ActivityLog struct {
	bun.BaseModel `bun:"table:activity_logs,alias:al"`

	ID         uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	Entity     string         `bun:"entity,notnull" json:"entity"`
	EntityID   string         `bun:"entity_id,notnull" json:"entity_id"`
	Action     string         `bun:"action,notnull" json:"action"`
	Attributes map[string]any `bun:"attributes,type:jsonb" json:"attributes"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// FeatureFlag stores a flag value outside the shared cache. Value holds the
// msgpack encoding of the flag payload.
type FeatureFlag struct {
	bun.BaseModel `bun:"table:feature_flags,alias:ff"`

	Key       string    `bun:"name,pk" json:"name"`
	Value     []byte    `bun:"value" json:"-"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}
