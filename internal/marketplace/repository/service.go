package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aguayolabs/aguayo-api/internal/marketplace/model"
)

// ErrServiceNotFound is returned when a catalog lookup finds no matching service.
var ErrServiceNotFound = errors.New("service not found")

// ServiceRepository reads the pre-seeded service catalog.
type ServiceRepository struct {
	db *pgxpool.Pool
}

// NewServiceRepository creates a new ServiceRepository.
func NewServiceRepository(db *pgxpool.Pool) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// List returns the full catalog ordered by title.
func (r *ServiceRepository) List(ctx context.Context) ([]model.Service, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, description, category FROM services ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	services := []model.Service{}
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.Category); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// GetByID returns a single catalog entry.
func (r *ServiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	var s model.Service
	err := r.db.QueryRow(ctx,
		`SELECT id, title, description, category FROM services WHERE id = $1`, id,
	).Scan(&s.ID, &s.Title, &s.Description, &s.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("query service: %w", err)
	}
	return &s, nil
}

// CountByIDs returns how many of the given IDs exist in the catalog. Used to
// validate a provider's service selection in one round trip.
func (r *ServiceRepository) CountByIDs(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM services WHERE id = ANY($1)`, ids,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count services: %w", err)
	}
	return count, nil
}
