package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles a user can hold.
const (
	RoleAdmin    = "admin"
	RoleSeller   = "seller"
	RoleCustomer = "customer"
)

// User is a marketplace account. Shop owners are users acting as sellers.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Email     string    `bun:"email,unique,notnull" json:"email"`
	Role      string    `bun:"role,notnull,default:'customer'" json:"role"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Invitation is a pending invite sent on behalf of a seller.
type Invitation struct {
	bun.BaseModel `bun:"table:invitations,alias:i"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	SellerID  uuid.UUID `bun:"seller_id,type:uuid,notnull" json:"seller_id"`
	Email     string    `bun:"email,notnull" json:"email"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}
