package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aguayolabs/aguayo-api/internal/identity"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/model"
)

// ErrProfileNotFound is returned when a profile lookup finds no matching record.
var ErrProfileNotFound = errors.New("profile not found")

// ErrProfileExists is returned when a creation collides with the unique
// auth-user constraint — the caller already completed onboarding. The
// constraint is the sole concurrency guard: of two concurrent terminal
// submissions, exactly one insert wins and the other surfaces this error.
var ErrProfileExists = errors.New("profile already exists for this user")

const profileColumns = `id, auth_user_id, email, role, full_name, birth_date,
	phone_number, location, COALESCE(bio, ''), profile_image,
	COALESCE(id_front, ''), COALESCE(id_back, ''), gallery, created_at, updated_at`

// ProfileRepository provides profile persistence against PostgreSQL,
// including the profile↔service association table.
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts the profile and its service associations in one transaction.
// Sets ID, CreatedAt, UpdatedAt on the profile and reloads Services.
func (r *ProfileRepository) Create(ctx context.Context, p *model.Profile, serviceIDs []uuid.UUID) error {
	p.ID = uuid.New()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Gallery == nil {
		p.Gallery = []string{}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	q := `
		INSERT INTO profiles (id, auth_user_id, email, role, full_name, birth_date,
			phone_number, location, bio, profile_image, id_front, id_back, gallery,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, NULLIF($11, ''), NULLIF($12, ''), $13, $14, $15)`
	_, err = tx.Exec(ctx, q,
		p.ID, p.AuthUserID, p.Email, p.Role, p.FullName, p.BirthDate,
		p.PhoneNumber, p.Location, p.Bio, p.ProfileImage, p.IDFront, p.IDBack,
		p.Gallery, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrProfileExists
		}
		return fmt.Errorf("insert profile: %w", err)
	}

	for _, sid := range serviceIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO profile_services (profile_id, service_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, p.ID, sid,
		); err != nil {
			return fmt.Errorf("link service %s: %w", sid, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	services, err := r.servicesFor(ctx, p.ID)
	if err != nil {
		return err
	}
	p.Services = services
	return nil
}

// GetByAuthUser retrieves a profile, with its offered services, by the
// owning auth user ID.
func (r *ProfileRepository) GetByAuthUser(ctx context.Context, authUserID uuid.UUID) (*model.Profile, error) {
	p, err := r.scanOne(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE auth_user_id = $1`, authUserID)
	if err != nil {
		return nil, err
	}
	p.Services, err = r.servicesFor(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// LookupProfile implements identity.ProfileLookup for session augmentation.
// Returns (nil, nil) when the user has no profile.
func (r *ProfileRepository) LookupProfile(ctx context.Context, authUserID uuid.UUID) (*identity.ProfileRef, error) {
	var ref identity.ProfileRef
	err := r.db.QueryRow(ctx,
		`SELECT id, role FROM profiles WHERE auth_user_id = $1`, authUserID,
	).Scan(&ref.ID, &ref.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup profile: %w", err)
	}
	return &ref, nil
}

// ExistsByAuthUser reports whether the user already completed onboarding.
func (r *ProfileRepository) ExistsByAuthUser(ctx context.Context, authUserID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM profiles WHERE auth_user_id = $1)`, authUserID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check profile existence: %w", err)
	}
	return exists, nil
}

// Update rewrites the mutable profile fields and adjusts the service set in
// one transaction. Role and auth_user_id are never touched. Reloads Services.
func (r *ProfileRepository) Update(ctx context.Context, p *model.Profile, connect, disconnect []uuid.UUID) error {
	p.UpdatedAt = time.Now().UTC()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	q := `
		UPDATE profiles
		SET full_name = $2, birth_date = $3, phone_number = $4, location = $5,
			bio = NULLIF($6, ''), profile_image = $7, id_front = NULLIF($8, ''),
			id_back = NULLIF($9, ''), gallery = $10, updated_at = $11
		WHERE id = $1`
	tag, err := tx.Exec(ctx, q,
		p.ID, p.FullName, p.BirthDate, p.PhoneNumber, p.Location,
		p.Bio, p.ProfileImage, p.IDFront, p.IDBack, p.Gallery, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	for _, sid := range connect {
		if _, err := tx.Exec(ctx,
			`INSERT INTO profile_services (profile_id, service_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, p.ID, sid,
		); err != nil {
			return fmt.Errorf("link service %s: %w", sid, err)
		}
	}
	for _, sid := range disconnect {
		if _, err := tx.Exec(ctx,
			`DELETE FROM profile_services WHERE profile_id = $1 AND service_id = $2`, p.ID, sid,
		); err != nil {
			return fmt.Errorf("unlink service %s: %w", sid, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	p.Services, err = r.servicesFor(ctx, p.ID)
	return err
}

func (r *ProfileRepository) servicesFor(ctx context.Context, profileID uuid.UUID) ([]model.ServiceRef, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.title
		FROM services s
		JOIN profile_services ps ON ps.service_id = s.id
		WHERE ps.profile_id = $1
		ORDER BY s.title`, profileID)
	if err != nil {
		return nil, fmt.Errorf("query profile services: %w", err)
	}
	defer rows.Close()

	refs := []model.ServiceRef{}
	for rows.Next() {
		var ref model.ServiceRef
		if err := rows.Scan(&ref.ID, &ref.Title); err != nil {
			return nil, fmt.Errorf("scan service ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *ProfileRepository) scanOne(ctx context.Context, q string, args ...any) (*model.Profile, error) {
	var p model.Profile
	err := r.db.QueryRow(ctx, q, args...).Scan(
		&p.ID, &p.AuthUserID, &p.Email, &p.Role, &p.FullName, &p.BirthDate,
		&p.PhoneNumber, &p.Location, &p.Bio, &p.ProfileImage,
		&p.IDFront, &p.IDBack, &p.Gallery, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	if p.Gallery == nil {
		p.Gallery = []string{}
	}
	return &p, nil
}
