// Package events defines the update envelopes shared by the server-side
// broadcaster and the subscribing clients. The set of kinds is closed: a new
// kind means a new payload struct and a new constructor here, and every
// receiver switch gets extended to match.
package events

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	ItemUpdatedEvent         Kind = "menu-item-updated"
	AvailabilityChangedEvent Kind = "menu-availability-changed"
	ItemAddedEvent           Kind = "menu-item-added"
	ItemRemovedEvent         Kind = "menu-item-removed"
	LowStockAlertEvent       Kind = "menu-low-stock-alert"
	BulkUpdateEvent          Kind = "menu-bulk-update"
	CanteenStatusEvent       Kind = "canteen-status-changed"
)

// GlobalEventName is the generic name every envelope is re-published under on
// the unscoped feed consumed by cross-canteen dashboards.
const GlobalEventName = "menu-update"

// MenuItemView is the read-side projection of a menu item carried in
// envelopes and returned by the bootstrap fetch.
type MenuItemView struct {
	ID                uuid.UUID `json:"id"`
	CanteenID         uuid.UUID `json:"canteen_id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Category          string    `json:"category"`
	IsVeg             bool      `json:"is_veg"`
	Price             float64   `json:"price"`
	AvailableQuantity int       `json:"available_quantity"`
	IsAvailable       bool      `json:"is_available"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Envelope is the closed union of update events. Kind selects exactly one of
// the payload pointers; the rest stay nil. UpdatedAt is the post-mutation
// timestamp of the affected state and doubles as the receiver's staleness key.
type Envelope struct {
	Kind      Kind      `json:"kind"`
	CanteenID uuid.UUID `json:"canteen_id"`
	UpdatedAt time.Time `json:"updated_at"`

	ItemUpdated         *ItemUpdatedPayload         `json:"item_updated,omitempty"`
	AvailabilityChanged *AvailabilityChangedPayload `json:"availability_changed,omitempty"`
	ItemAdded           *ItemAddedPayload           `json:"item_added,omitempty"`
	ItemRemoved         *ItemRemovedPayload         `json:"item_removed,omitempty"`
	LowStockAlert       *LowStockAlertPayload       `json:"low_stock_alert,omitempty"`
	BulkUpdate          *BulkUpdatePayload          `json:"bulk_update,omitempty"`
	CanteenStatus       *CanteenStatusPayload       `json:"canteen_status,omitempty"`
}

type ItemUpdatedPayload struct {
	ItemID            uuid.UUID `json:"item_id"`
	Name              string    `json:"name"`
	AvailableQuantity int       `json:"available_quantity"`
	IsAvailable       bool      `json:"is_available"`
	Category          string    `json:"category"`
	IsVeg             bool      `json:"is_veg"`
}

type AvailabilityChangedPayload struct {
	ItemID      uuid.UUID `json:"item_id"`
	ItemName    string    `json:"item_name"`
	IsAvailable bool      `json:"is_available"`
}

type ItemAddedPayload struct {
	MenuItem MenuItemView `json:"menu_item"`
}

type ItemRemovedPayload struct {
	ItemID   uuid.UUID `json:"item_id"`
	ItemName string    `json:"item_name"`
}

type LowStockAlertPayload struct {
	ItemID            uuid.UUID `json:"item_id"`
	ItemName          string    `json:"item_name"`
	AvailableQuantity int       `json:"available_quantity"`
	Threshold         int       `json:"threshold"`
}

type BulkUpdatePayload struct {
	Items []BulkUpdateItem `json:"items"`
}

type BulkUpdateItem struct {
	ItemID            uuid.UUID `json:"item_id"`
	Name              string    `json:"name"`
	AvailableQuantity int       `json:"available_quantity"`
	IsAvailable       bool      `json:"is_available"`
}

type CanteenStatusPayload struct {
	CanteenName string `json:"canteen_name"`
	IsOpen      bool   `json:"is_open"`
}

// ItemIDs lists the item ids an envelope touches. Bulk updates report every
// line; canteen status reports none.
func (e Envelope) ItemIDs() []uuid.UUID {
	switch e.Kind {
	case ItemUpdatedEvent:
		return []uuid.UUID{e.ItemUpdated.ItemID}
	case AvailabilityChangedEvent:
		return []uuid.UUID{e.AvailabilityChanged.ItemID}
	case ItemAddedEvent:
		return []uuid.UUID{e.ItemAdded.MenuItem.ID}
	case ItemRemovedEvent:
		return []uuid.UUID{e.ItemRemoved.ItemID}
	case LowStockAlertEvent:
		return []uuid.UUID{e.LowStockAlert.ItemID}
	case BulkUpdateEvent:
		ids := make([]uuid.UUID, len(e.BulkUpdate.Items))
		for i, item := range e.BulkUpdate.Items {
			ids[i] = item.ItemID
		}
		return ids
	default:
		return nil
	}
}

func NewItemUpdated(item MenuItemView) Envelope {
	return Envelope{
		Kind:      ItemUpdatedEvent,
		CanteenID: item.CanteenID,
		UpdatedAt: item.UpdatedAt,
		ItemUpdated: &ItemUpdatedPayload{
			ItemID:            item.ID,
			Name:              item.Name,
			AvailableQuantity: item.AvailableQuantity,
			IsAvailable:       item.IsAvailable,
			Category:          item.Category,
			IsVeg:             item.IsVeg,
		},
	}
}

func NewAvailabilityChanged(item MenuItemView) Envelope {
	return Envelope{
		Kind:      AvailabilityChangedEvent,
		CanteenID: item.CanteenID,
		UpdatedAt: item.UpdatedAt,
		AvailabilityChanged: &AvailabilityChangedPayload{
			ItemID:      item.ID,
			ItemName:    item.Name,
			IsAvailable: item.IsAvailable,
		},
	}
}

func NewItemAdded(item MenuItemView) Envelope {
	return Envelope{
		Kind:      ItemAddedEvent,
		CanteenID: item.CanteenID,
		UpdatedAt: item.UpdatedAt,
		ItemAdded: &ItemAddedPayload{MenuItem: item},
	}
}

func NewItemRemoved(item MenuItemView, removedAt time.Time) Envelope {
	return Envelope{
		Kind:      ItemRemovedEvent,
		CanteenID: item.CanteenID,
		UpdatedAt: removedAt,
		ItemRemoved: &ItemRemovedPayload{
			ItemID:   item.ID,
			ItemName: item.Name,
		},
	}
}

func NewLowStockAlert(item MenuItemView, threshold int) Envelope {
	return Envelope{
		Kind:      LowStockAlertEvent,
		CanteenID: item.CanteenID,
		UpdatedAt: item.UpdatedAt,
		LowStockAlert: &LowStockAlertPayload{
			ItemID:            item.ID,
			ItemName:          item.Name,
			AvailableQuantity: item.AvailableQuantity,
			Threshold:         threshold,
		},
	}
}

func NewBulkUpdate(canteenID uuid.UUID, items []MenuItemView) Envelope {
	lines := make([]BulkUpdateItem, len(items))
	var latest time.Time
	for i, item := range items {
		lines[i] = BulkUpdateItem{
			ItemID:            item.ID,
			Name:              item.Name,
			AvailableQuantity: item.AvailableQuantity,
			IsAvailable:       item.IsAvailable,
		}
		if item.UpdatedAt.After(latest) {
			latest = item.UpdatedAt
		}
	}
	return Envelope{
		Kind:       BulkUpdateEvent,
		CanteenID:  canteenID,
		UpdatedAt:  latest,
		BulkUpdate: &BulkUpdatePayload{Items: lines},
	}
}

func NewCanteenStatus(canteenID uuid.UUID, canteenName string, isOpen bool, updatedAt time.Time) Envelope {
	return Envelope{
		Kind:      CanteenStatusEvent,
		CanteenID: canteenID,
		UpdatedAt: updatedAt,
		CanteenStatus: &CanteenStatusPayload{
			CanteenName: canteenName,
			IsOpen:      isOpen,
		},
	}
}
