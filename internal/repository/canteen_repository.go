package repository

import (
	"database/sql"

	"github.com/campus-eats/canteen-platform/internal/domain"
	"github.com/google/uuid"
)

type CanteenRepository struct {
	db *sql.DB
}

func NewCanteenRepository(db *sql.DB) *CanteenRepository {
	return &CanteenRepository{db: db}
}

func (r *CanteenRepository) ReadCanteen(canteenID uuid.UUID) (*domain.Canteen, error) {
	query := `
		SELECT id, name, location, is_open, created_at, updated_at
		FROM canteens
		WHERE id = $1
	`

	canteen := &domain.Canteen{}
	err := r.db.QueryRow(query, canteenID).Scan(
		&canteen.ID,
		&canteen.Name,
		&canteen.Location,
		&canteen.IsOpen,
		&canteen.CreatedAt,
		&canteen.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, domain.ErrCanteenNotFound
	}

	return canteen, err
}

func (r *CanteenRepository) WriteCanteen(canteen *domain.Canteen) error {
	query := `
		UPDATE canteens
		SET name = $2, location = $3, is_open = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.Exec(
		query,
		canteen.ID,
		canteen.Name,
		canteen.Location,
		canteen.IsOpen,
		canteen.UpdatedAt,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrCanteenNotFound
	}

	return nil
}

func (r *CanteenRepository) ListCanteens() ([]*domain.Canteen, error) {
	query := `
		SELECT id, name, location, is_open, created_at, updated_at
		FROM canteens
		ORDER BY name
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var canteens []*domain.Canteen
	for rows.Next() {
		canteen := &domain.Canteen{}
		err := rows.Scan(
			&canteen.ID,
			&canteen.Name,
			&canteen.Location,
			&canteen.IsOpen,
			&canteen.CreatedAt,
			&canteen.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		canteens = append(canteens, canteen)
	}

	return canteens, rows.Err()
}
