package domain

import (
	"time"

	"github.com/google/uuid"
)

type Cart struct {
	StudentID uuid.UUID  `json:"student_id"`
	CanteenID uuid.UUID  `json:"canteen_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CartItem struct {
	ItemID   uuid.UUID `json:"item_id"`
	Name     string    `json:"name"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
}

func (c *Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// Upsert replaces the quantity for an existing item or appends a new line.
// A zero or negative quantity removes the line.
func (c *Cart) Upsert(item CartItem) {
	if item.Quantity <= 0 {
		c.Remove(item.ItemID)
		return
	}
	for i := range c.Items {
		if c.Items[i].ItemID == item.ItemID {
			c.Items[i] = item
			c.UpdatedAt = time.Now()
			return
		}
	}
	c.Items = append(c.Items, item)
	c.UpdatedAt = time.Now()
}

func (c *Cart) Remove(itemID uuid.UUID) {
	for i := range c.Items {
		if c.Items[i].ItemID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.UpdatedAt = time.Now()
			return
		}
	}
}
