package domain

import (
	"time"

	"github.com/google/uuid"
)

type Canteen struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	IsOpen    bool      `json:"is_open"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Canteen) SetOpen(open bool) {
	c.IsOpen = open
	c.UpdatedAt = time.Now()
}
