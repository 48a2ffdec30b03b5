package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aguayolabs/aguayo-api/internal/marketplace/model"
)

// ErrPublicationNotFound is returned when a publication lookup finds no matching record.
var ErrPublicationNotFound = errors.New("publication not found")

// PublicationFilter narrows a publication listing. The zero value lists
// every active, non-deleted publication.
type PublicationFilter struct {
	ProviderID      *uuid.UUID
	IncludeInactive bool
	IncludeDeleted  bool
}

// PublicationRepository provides publication persistence against PostgreSQL.
type PublicationRepository struct {
	db *pgxpool.Pool
}

// NewPublicationRepository creates a new PublicationRepository.
func NewPublicationRepository(db *pgxpool.Pool) *PublicationRepository {
	return &PublicationRepository{db: db}
}

// Create inserts a new publication. Sets ID, IsActive, CreatedAt, UpdatedAt.
func (r *PublicationRepository) Create(ctx context.Context, p *model.Publication) error {
	p.ID = uuid.New()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.IsActive = true
	if p.Images == nil {
		p.Images = []string{}
	}

	q := `
		INSERT INTO publications (id, provider_id, service_id, title, description,
			price, price_type, images, is_active, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.Exec(ctx, q,
		p.ID, p.ProviderID, p.ServiceID, p.Title, p.Description,
		p.Price, p.PriceType, p.Images, p.IsActive, p.IsDeleted,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert publication: %w", err)
	}
	return nil
}

// GetByID retrieves a publication without its embedded relations.
func (r *PublicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Publication, error) {
	var p model.Publication
	err := r.db.QueryRow(ctx, `
		SELECT id, provider_id, service_id, title, description, price, price_type,
			images, is_active, is_deleted, created_at, updated_at
		FROM publications WHERE id = $1`, id,
	).Scan(
		&p.ID, &p.ProviderID, &p.ServiceID, &p.Title, &p.Description,
		&p.Price, &p.PriceType, &p.Images, &p.IsActive, &p.IsDeleted,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPublicationNotFound
		}
		return nil, fmt.Errorf("query publication: %w", err)
	}
	return &p, nil
}

// List returns publications newest-first, embedding the referenced service
// and a provider summary for each row.
func (r *PublicationRepository) List(ctx context.Context, f PublicationFilter) ([]*model.Publication, error) {
	q := `
		SELECT p.id, p.provider_id, p.service_id, p.title, p.description, p.price,
			p.price_type, p.images, p.is_active, p.is_deleted, p.created_at, p.updated_at,
			s.id, s.title,
			pr.id, pr.full_name, pr.profile_image, pr.location, pr.email
		FROM publications p
		JOIN services s ON s.id = p.service_id
		JOIN profiles pr ON pr.id = p.provider_id
		WHERE ($1::uuid IS NULL OR p.provider_id = $1)
		  AND ($2 OR p.is_active)
		  AND ($3 OR NOT p.is_deleted)
		ORDER BY p.created_at DESC`
	rows, err := r.db.Query(ctx, q, f.ProviderID, f.IncludeInactive, f.IncludeDeleted)
	if err != nil {
		return nil, fmt.Errorf("query publications: %w", err)
	}
	defer rows.Close()

	pubs := []*model.Publication{}
	for rows.Next() {
		var p model.Publication
		var svc model.ServiceRef
		var prov model.ProviderSummary
		if err := rows.Scan(
			&p.ID, &p.ProviderID, &p.ServiceID, &p.Title, &p.Description, &p.Price,
			&p.PriceType, &p.Images, &p.IsActive, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt,
			&svc.ID, &svc.Title,
			&prov.ID, &prov.FullName, &prov.ProfileImage, &prov.Location, &prov.Email,
		); err != nil {
			return nil, fmt.Errorf("scan publication: %w", err)
		}
		p.Service = &svc
		p.Provider = &prov
		pubs = append(pubs, &p)
	}
	return pubs, rows.Err()
}

// SoftDelete marks a publication deleted without removing the row.
func (r *PublicationRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE publications SET is_deleted = true, is_active = false, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("soft delete publication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPublicationNotFound
	}
	return nil
}

// OffersService reports whether a provider profile offers the given service.
func (r *PublicationRepository) OffersService(ctx context.Context, profileID, serviceID uuid.UUID) (bool, error) {
	var offered bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM profile_services WHERE profile_id = $1 AND service_id = $2)`,
		profileID, serviceID,
	).Scan(&offered)
	if err != nil {
		return false, fmt.Errorf("check service offering: %w", err)
	}
	return offered, nil
}
