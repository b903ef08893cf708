package events

import (
	"context"

	"github.com/goliatone/go-market-gate/internal/model"
)

// Event topic constants
const (
	TopicShopCreated  = "market.shop.created"
	TopicShopUpdated  = "market.shop.updated"
	TopicShopDeleted  = "market.shop.deleted"
	TopicShopRestored = "market.shop.restored"
)

// ShopChanged is published after a shop lifecycle event has been handled.
type ShopChanged struct {
	Action     string         `json:"action"`
	Shop       *model.Shop    `json:"shop"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
