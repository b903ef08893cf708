package lifecycle

import (
	"github.com/goliatone/go-market-gate/internal/model"
)

// Action names a lifecycle transition.
type Action string

const (
	ActionCreating Action = "creating"
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionRestored Action = "restored"
)

// Event is one of Creating, Created, Updated, Deleted or Restored.
type Event interface {
	Action() Action
	Entity() *model.Shop
	// Snapshot returns the attribute snapshot taken when the event fired.
	Snapshot() map[string]any
	sealed()
}

// Creating fires before a shop is inserted. Handlers may mutate the shop.
type Creating struct {
	Shop *model.Shop
}

// Created fires after a shop insert has been committed.
type Created struct {
	Shop  *model.Shop
	Attrs map[string]any
}

// Updated fires after a shop update has been committed.
type Updated struct {
	Shop  *model.Shop
	Attrs map[string]any
}

// Deleted fires after a shop has been soft deleted.
type Deleted struct {
	Shop  *model.Shop
	Attrs map[string]any
}

// Restored fires after a soft deleted shop has been restored.
type Restored struct {
	Shop  *model.Shop
	Attrs map[string]any
}

func (Creating) Action() Action { return ActionCreating }
func (Created) Action() Action  { return ActionCreated }
func (Updated) Action() Action  { return ActionUpdated }
func (Deleted) Action() Action  { return ActionDeleted }
func (Restored) Action() Action { return ActionRestored }

func (e Creating) Entity() *model.Shop { return e.Shop }
func (e Created) Entity() *model.Shop  { return e.Shop }
func (e Updated) Entity() *model.Shop  { return e.Shop }
func (e Deleted) Entity() *model.Shop  { return e.Shop }
func (e Restored) Entity() *model.Shop { return e.Shop }

func (e Creating) Snapshot() map[string]any { return snapshot(e.Shop, nil) }
func (e Created) Snapshot() map[string]any  { return snapshot(e.Shop, e.Attrs) }
func (e Updated) Snapshot() map[string]any  { return snapshot(e.Shop, e.Attrs) }
func (e Deleted) Snapshot() map[string]any  { return snapshot(e.Shop, e.Attrs) }
func (e Restored) Snapshot() map[string]any { return snapshot(e.Shop, e.Attrs) }

func (Creating) sealed() {}
func (Created) sealed()  {}
func (Updated) sealed()  {}
func (Deleted) sealed()  {}
func (Restored) sealed() {}

// NewEvent builds the event for action, capturing the shop's attributes now.
func NewEvent(action Action, shop *model.Shop) Event {
	var attrs map[string]any
	if shop != nil {
		attrs = shop.Attributes()
	}
	switch action {
	case ActionCreating:
		return Creating{Shop: shop}
	case ActionCreated:
		return Created{Shop: shop, Attrs: attrs}
	case ActionUpdated:
		return Updated{Shop: shop, Attrs: attrs}
	case ActionDeleted:
		return Deleted{Shop: shop, Attrs: attrs}
	case ActionRestored:
		return Restored{Shop: shop, Attrs: attrs}
	default:
		return nil
	}
}

func snapshot(shop *model.Shop, attrs map[string]any) map[string]any {
	if attrs != nil {
		return attrs
	}
	if shop == nil {
		return map[string]any{}
	}
	return shop.Attributes()
}
