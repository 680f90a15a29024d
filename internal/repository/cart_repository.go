package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campus-eats/canteen-platform/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CartRepository keeps student carts in Redis. Carts are short-lived scratch
// state, so they expire instead of being migrated with the relational schema.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{client: client, ttl: ttl}
}

func cartKey(studentID uuid.UUID) string {
	return fmt.Sprintf("cart:%s", studentID)
}

func (r *CartRepository) GetCart(ctx context.Context, studentID uuid.UUID) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(studentID)).Bytes()
	if err == redis.Nil {
		return &domain.Cart{StudentID: studentID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart read error: %v", err)
	}

	cart := &domain.Cart{}
	if err := json.Unmarshal(data, cart); err != nil {
		return nil, fmt.Errorf("cart deserialize error: %v", err)
	}

	return cart, nil
}

func (r *CartRepository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("cart serialization error: %v", err)
	}

	if err := r.client.Set(ctx, cartKey(cart.StudentID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("cart write error: %v", err)
	}

	return nil
}

func (r *CartRepository) ClearCart(ctx context.Context, studentID uuid.UUID) error {
	if err := r.client.Del(ctx, cartKey(studentID)).Err(); err != nil {
		return fmt.Errorf("cart delete error: %v", err)
	}
	return nil
}
