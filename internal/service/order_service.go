package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/campus-eats/canteen-platform/internal/domain"
	"github.com/google/uuid"
)

type OrderStore interface {
	CreateOrder(order *domain.Order) error
	UpdateOrder(order *domain.Order) error
	GetOrderByID(orderID uuid.UUID) (*domain.Order, error)
	GetOrdersByStudentID(studentID uuid.UUID) ([]*domain.Order, error)
	GetOrdersByCanteenID(canteenID uuid.UUID) ([]*domain.Order, error)
}

// OrderService turns carts into orders. Placing an order is what depletes
// inventory, so this service is a primary caller of the mutation authority.
type OrderService struct {
	orders    OrderStore
	carts     CartStore
	inventory *InventoryService
}

func NewOrderService(orders OrderStore, carts CartStore, inventory *InventoryService) *OrderService {
	return &OrderService{
		orders:    orders,
		carts:     carts,
		inventory: inventory,
	}
}

// PlaceOrder decrements stock for every cart line through the inventory
// service, creates the order, and clears the cart. A line that cannot be
// covered fails the order and restores the decrements already applied.
func (s *OrderService) PlaceOrder(ctx context.Context, studentID uuid.UUID) (*domain.Order, error) {
	cart, err := s.carts.GetCart(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("cart read error: %v", err)
	}

	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("cart is empty")
	}

	var applied []domain.CartItem
	for _, line := range cart.Items {
		if _, err := s.inventory.SetQuantityDelta(line.ItemID, -line.Quantity); err != nil {
			s.restock(applied)
			if errors.Is(err, domain.ErrInsufficientStock) {
				return nil, fmt.Errorf("%w: %s", domain.ErrInsufficientStock, line.Name)
			}
			return nil, err
		}
		applied = append(applied, line)
	}

	items := make([]domain.OrderItem, len(cart.Items))
	for i, line := range cart.Items {
		items[i] = domain.OrderItem{
			ItemID:   line.ItemID,
			Name:     line.Name,
			Quantity: line.Quantity,
			Price:    line.Price,
		}
	}

	order := domain.NewOrder(studentID, cart.CanteenID, items)
	if err := s.orders.CreateOrder(order); err != nil {
		s.restock(applied)
		return nil, fmt.Errorf("order creation error: %v", err)
	}

	if err := s.carts.ClearCart(ctx, studentID); err != nil {
		log.Printf("Cart clear error after order %s: %v", order.ID, err)
	}

	log.Printf("Order placed: OrderID=%s, StudentID=%s, Amount=%.2f",
		order.ID, order.StudentID, order.TotalAmount)

	return order, nil
}

// UpdateStatus applies a staff status transition. Cancellation puts the
// order's quantities back into stock.
func (s *OrderService) UpdateStatus(orderID uuid.UUID, status domain.OrderStatus, reason string) (*domain.Order, error) {
	order, err := s.orders.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}

	if err := order.UpdateStatus(status); err != nil {
		return nil, err
	}
	if reason != "" {
		order.SetFailureReason(reason)
	}

	if err := s.orders.UpdateOrder(order); err != nil {
		return nil, fmt.Errorf("order status update error: %v", err)
	}

	if status == domain.OrderStatusCancelled {
		for _, item := range order.Items {
			if _, err := s.inventory.SetQuantityDelta(item.ItemID, item.Quantity); err != nil {
				log.Printf("Restock error for cancelled order %s, item %s: %v", order.ID, item.ItemID, err)
			}
		}
	}

	log.Printf("Order status updated: OrderID=%s, Status=%s", order.ID, order.Status)

	return order, nil
}

func (s *OrderService) GetOrderByID(orderID uuid.UUID) (*domain.Order, error) {
	return s.orders.GetOrderByID(orderID)
}

func (s *OrderService) GetOrdersByStudentID(studentID uuid.UUID) ([]*domain.Order, error) {
	return s.orders.GetOrdersByStudentID(studentID)
}

func (s *OrderService) GetOrdersByCanteenID(canteenID uuid.UUID) ([]*domain.Order, error) {
	return s.orders.GetOrdersByCanteenID(canteenID)
}

func (s *OrderService) restock(lines []domain.CartItem) {
	for _, line := range lines {
		if _, err := s.inventory.SetQuantityDelta(line.ItemID, line.Quantity); err != nil {
			log.Printf("Restock error for item %s: %v", line.ItemID, err)
		}
	}
}
