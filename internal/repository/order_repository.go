package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/campus-eats/canteen-platform/internal/domain"
	"github.com/google/uuid"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) CreateOrder(order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("order items serialization error: %v", err)
	}

	query := `
		INSERT INTO orders (
			id, student_id, canteen_id, items, total_amount, status,
			failure_reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.Exec(
		query,
		order.ID,
		order.StudentID,
		order.CanteenID,
		itemsJSON,
		order.TotalAmount,
		order.Status,
		order.FailureReason,
		order.CreatedAt,
		order.UpdatedAt,
	)

	return err
}

func (r *OrderRepository) UpdateOrder(order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $2, failure_reason = $3, updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.Exec(query, order.ID, order.Status, order.FailureReason, order.UpdatedAt)
	return err
}

func (r *OrderRepository) GetOrderByID(orderID uuid.UUID) (*domain.Order, error) {
	query := `
		SELECT id, student_id, canteen_id, items, total_amount, status,
			   failure_reason, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	return r.scanOrder(r.db.QueryRow(query, orderID))
}

func (r *OrderRepository) GetOrdersByStudentID(studentID uuid.UUID) ([]*domain.Order, error) {
	query := `
		SELECT id, student_id, canteen_id, items, total_amount, status,
			   failure_reason, created_at, updated_at
		FROM orders
		WHERE student_id = $1
		ORDER BY created_at DESC
	`

	return r.queryOrders(query, studentID)
}

func (r *OrderRepository) GetOrdersByCanteenID(canteenID uuid.UUID) ([]*domain.Order, error) {
	query := `
		SELECT id, student_id, canteen_id, items, total_amount, status,
			   failure_reason, created_at, updated_at
		FROM orders
		WHERE canteen_id = $1
		ORDER BY created_at DESC
	`

	return r.queryOrders(query, canteenID)
}

func (r *OrderRepository) queryOrders(query string, arg interface{}) ([]*domain.Order, error) {
	rows, err := r.db.Query(query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *OrderRepository) scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var itemsJSON []byte

	err := row.Scan(
		&order.ID,
		&order.StudentID,
		&order.CanteenID,
		&itemsJSON,
		&order.TotalAmount,
		&order.Status,
		&order.FailureReason,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("order items deserialize error: %v", err)
	}

	return order, nil
}
