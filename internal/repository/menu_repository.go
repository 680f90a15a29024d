package repository

import (
	"database/sql"
	"fmt"

	"github.com/campus-eats/canteen-platform/internal/domain"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

type MenuRepository struct {
	db *sql.DB
}

func NewMenuRepository(db *sql.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

func (r *MenuRepository) CreateMenuItem(item *domain.MenuItem) error {
	query := `
		INSERT INTO menu_items (
			id, canteen_id, name, description, category, is_veg, price, image_url,
			available_quantity, is_available, disabled, rating, total_ratings,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(
		query,
		item.ID,
		item.CanteenID,
		item.Name,
		item.Description,
		item.Category,
		item.IsVeg,
		item.Price,
		item.ImageURL,
		item.AvailableQuantity,
		item.IsAvailable,
		item.Disabled,
		item.Rating,
		item.TotalRatings,
		item.CreatedAt,
		item.UpdatedAt,
	)

	return err
}

func (r *MenuRepository) ReadMenuItem(itemID uuid.UUID) (*domain.MenuItem, error) {
	query := `
		SELECT id, canteen_id, name, description, category, is_veg, price, image_url,
			   available_quantity, is_available, disabled, rating, total_ratings,
			   created_at, updated_at
		FROM menu_items
		WHERE id = $1
	`

	item := &domain.MenuItem{}
	err := r.db.QueryRow(query, itemID).Scan(
		&item.ID,
		&item.CanteenID,
		&item.Name,
		&item.Description,
		&item.Category,
		&item.IsVeg,
		&item.Price,
		&item.ImageURL,
		&item.AvailableQuantity,
		&item.IsAvailable,
		&item.Disabled,
		&item.Rating,
		&item.TotalRatings,
		&item.CreatedAt,
		&item.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, domain.ErrItemNotFound
	}

	return item, err
}

func (r *MenuRepository) WriteMenuItem(item *domain.MenuItem) error {
	query := `
		UPDATE menu_items
		SET name = $2, description = $3, category = $4, is_veg = $5, price = $6,
			image_url = $7, available_quantity = $8, is_available = $9, disabled = $10,
			rating = $11, total_ratings = $12, updated_at = $13
		WHERE id = $1
	`

	result, err := r.db.Exec(
		query,
		item.ID,
		item.Name,
		item.Description,
		item.Category,
		item.IsVeg,
		item.Price,
		item.ImageURL,
		item.AvailableQuantity,
		item.IsAvailable,
		item.Disabled,
		item.Rating,
		item.TotalRatings,
		item.UpdatedAt,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrItemNotFound
	}

	return nil
}

func (r *MenuRepository) DeleteMenuItem(itemID uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM menu_items WHERE id = $1`, itemID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrItemNotFound
	}

	return nil
}

// ReadAllMenuItems is the bootstrap read. It goes straight to the database so
// a resyncing client always sees committed state, never a cached copy.
func (r *MenuRepository) ReadAllMenuItems(canteenID uuid.UUID) ([]*domain.MenuItem, error) {
	query := `
		SELECT id, canteen_id, name, description, category, is_veg, price, image_url,
			   available_quantity, is_available, disabled, rating, total_ratings,
			   created_at, updated_at
		FROM menu_items
		WHERE canteen_id = $1
		ORDER BY category, name
	`

	rows, err := r.db.Query(query, canteenID)
	if err != nil {
		return nil, fmt.Errorf("menu query error: %v", err)
	}
	defer rows.Close()

	var items []*domain.MenuItem
	for rows.Next() {
		item := &domain.MenuItem{}
		err := rows.Scan(
			&item.ID,
			&item.CanteenID,
			&item.Name,
			&item.Description,
			&item.Category,
			&item.IsVeg,
			&item.Price,
			&item.ImageURL,
			&item.AvailableQuantity,
			&item.IsAvailable,
			&item.Disabled,
			&item.Rating,
			&item.TotalRatings,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return items, rows.Err()
}
