package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID            uuid.UUID   `json:"id"`
	StudentID     uuid.UUID   `json:"student_id"`
	CanteenID     uuid.UUID   `json:"canteen_id"`
	Items         []OrderItem `json:"items"`
	TotalAmount   float64     `json:"total_amount"`
	Status        OrderStatus `json:"status"`
	FailureReason string      `json:"failure_reason,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ItemID   uuid.UUID `json:"item_id"`
	Name     string    `json:"name"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
}

func NewOrder(studentID, canteenID uuid.UUID, items []OrderItem) *Order {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	now := time.Now()
	return &Order{
		ID:          uuid.New(),
		StudentID:   studentID,
		CanteenID:   canteenID,
		Items:       items,
		TotalAmount: total,
		Status:      OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (o *Order) UpdateStatus(status OrderStatus) error {
	if !validTransition(o.Status, status) {
		return fmt.Errorf("invalid order status transition: %s -> %s", o.Status, status)
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}

func (o *Order) SetFailureReason(reason string) {
	o.FailureReason = reason
	o.UpdatedAt = time.Now()
}

func validTransition(from, to OrderStatus) bool {
	switch from {
	case OrderStatusPending:
		return to == OrderStatusPreparing || to == OrderStatusCancelled
	case OrderStatusPreparing:
		return to == OrderStatusReady || to == OrderStatusCancelled
	case OrderStatusReady:
		return to == OrderStatusCompleted
	default:
		return false
	}
}
