package service

import (
	"context"
	"fmt"

	"github.com/campus-eats/canteen-platform/internal/domain"
	"github.com/google/uuid"
)

type CartStore interface {
	GetCart(ctx context.Context, studentID uuid.UUID) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
	ClearCart(ctx context.Context, studentID uuid.UUID) error
}

type CartService struct {
	carts CartStore
	menu  MenuStore
}

func NewCartService(carts CartStore, menu MenuStore) *CartService {
	return &CartService{
		carts: carts,
		menu:  menu,
	}
}

func (s *CartService) GetCart(ctx context.Context, studentID uuid.UUID) (*domain.Cart, error) {
	return s.carts.GetCart(ctx, studentID)
}

// SetItem puts an item line into the student's cart, enforcing that a cart
// only holds items from one canteen. Quantity <= 0 removes the line.
func (s *CartService) SetItem(ctx context.Context, studentID, itemID uuid.UUID, quantity int) (*domain.Cart, error) {
	cart, err := s.carts.GetCart(ctx, studentID)
	if err != nil {
		return nil, err
	}

	item, err := s.menu.ReadMenuItem(itemID)
	if err != nil {
		return nil, err
	}

	if len(cart.Items) > 0 && cart.CanteenID != item.CanteenID && quantity > 0 {
		return nil, fmt.Errorf("cart already holds items from another canteen")
	}

	if quantity > 0 && !item.IsAvailable {
		return nil, fmt.Errorf("item is not available: %s", item.Name)
	}

	cart.CanteenID = item.CanteenID
	cart.Upsert(domain.CartItem{
		ItemID:   item.ID,
		Name:     item.Name,
		Quantity: quantity,
		Price:    item.Price,
	})

	if len(cart.Items) == 0 {
		if err := s.carts.ClearCart(ctx, studentID); err != nil {
			return nil, err
		}
		return cart, nil
	}

	if err := s.carts.SaveCart(ctx, cart); err != nil {
		return nil, err
	}

	return cart, nil
}

func (s *CartService) ClearCart(ctx context.Context, studentID uuid.UUID) error {
	return s.carts.ClearCart(ctx, studentID)
}
