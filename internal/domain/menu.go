package domain

import (
	"time"

	"github.com/campus-eats/canteen-platform/pkg/events"
	"github.com/google/uuid"
)

// DefaultLowStockThreshold is used when no threshold is configured.
const DefaultLowStockThreshold = 5

type MenuItem struct {
	ID                uuid.UUID `json:"id"`
	CanteenID         uuid.UUID `json:"canteen_id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Category          string    `json:"category"`
	IsVeg             bool      `json:"is_veg"`
	Price             float64   `json:"price"`
	ImageURL          string    `json:"image_url,omitempty"`
	AvailableQuantity int       `json:"available_quantity"`
	IsAvailable       bool      `json:"is_available"`
	Rating            float64   `json:"rating"`
	TotalRatings      int       `json:"total_ratings"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Disabled marks an item a staff member switched off regardless of stock.
	Disabled bool `json:"disabled"`
}

func NewMenuItem(canteenID uuid.UUID, attrs MenuItemAttrs) *MenuItem {
	now := time.Now()
	return &MenuItem{
		ID:                uuid.New(),
		CanteenID:         canteenID,
		Name:              attrs.Name,
		Description:       attrs.Description,
		Category:          attrs.Category,
		IsVeg:             attrs.IsVeg,
		Price:             attrs.Price,
		ImageURL:          attrs.ImageURL,
		AvailableQuantity: attrs.AvailableQuantity,
		IsAvailable:       attrs.AvailableQuantity > 0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// ApplyDelta adjusts the quantity and keeps the availability invariant:
// is_available is true only while quantity > 0 and the item is not disabled.
func (m *MenuItem) ApplyDelta(delta int) error {
	if m.AvailableQuantity+delta < 0 {
		return ErrInsufficientStock
	}
	m.AvailableQuantity += delta
	m.IsAvailable = m.AvailableQuantity > 0 && !m.Disabled
	m.UpdatedAt = time.Now()
	return nil
}

// SetAvailability records a staff availability switch. Enabling an item with
// zero stock leaves it unavailable until stock arrives.
func (m *MenuItem) SetAvailability(available bool) {
	m.Disabled = !available
	m.IsAvailable = available && m.AvailableQuantity > 0
	m.UpdatedAt = time.Now()
}

func (m *MenuItem) LowStock(threshold int) bool {
	return m.AvailableQuantity <= threshold
}

// View projects the item into the wire shape carried by update envelopes and
// the bootstrap fetch.
func (m *MenuItem) View() events.MenuItemView {
	return events.MenuItemView{
		ID:                m.ID,
		CanteenID:         m.CanteenID,
		Name:              m.Name,
		Description:       m.Description,
		Category:          m.Category,
		IsVeg:             m.IsVeg,
		Price:             m.Price,
		AvailableQuantity: m.AvailableQuantity,
		IsAvailable:       m.IsAvailable,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

type MenuItemAttrs struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	Category          string  `json:"category"`
	IsVeg             bool    `json:"is_veg"`
	Price             float64 `json:"price"`
	ImageURL          string  `json:"image_url"`
	AvailableQuantity int     `json:"available_quantity"`
}

type QuantityDelta struct {
	ItemID uuid.UUID `json:"item_id"`
	Delta  int       `json:"delta"`
}
