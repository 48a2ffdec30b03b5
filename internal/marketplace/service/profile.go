package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aguayolabs/aguayo-api/internal/identity"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/model"
	"github.com/aguayolabs/aguayo-api/internal/storage"
)

// profileRepo is the storage interface consumed by ProfileService.
type profileRepo interface {
	GetByAuthUser(ctx context.Context, authUserID uuid.UUID) (*model.Profile, error)
	Update(ctx context.Context, p *model.Profile, connect, disconnect []uuid.UUID) error
}

// ProfileUpdateInput carries a partial profile update. Empty text fields and
// nil files mean "leave unchanged"; ServiceIDs is applied only when non-nil,
// so an omitted selection keeps the current service set.
type ProfileUpdateInput struct {
	FullName    string
	BirthDate   string // 2006-01-02, empty to keep
	PhoneNumber string
	Location    string
	Bio         *string // nil to keep, pointer so bio can be cleared
	ServiceIDs  []string

	ProfileImage *FileUpload
	IDFront      *FileUpload
	IDBack       *FileUpload
	Gallery      []*FileUpload
}

// ProfileService implements reads and edits of existing profiles. Creation
// belongs exclusively to OnboardingService.
type ProfileService struct {
	profiles profileRepo
	catalog  catalogRepo
	store    mediaStore
	logger   *zap.Logger
}

// NewProfileService creates a new ProfileService.
func NewProfileService(profiles profileRepo, catalog catalogRepo, store mediaStore, logger *zap.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, catalog: catalog, store: store, logger: logger}
}

// Get returns the profile owned by the given auth user.
func (s *ProfileService) Get(ctx context.Context, authUserID uuid.UUID) (*model.Profile, error) {
	return s.profiles.GetByAuthUser(ctx, authUserID)
}

// Update applies a partial edit to the caller's profile. Singleton media are
// replaced at their deterministic paths only when a new file is supplied;
// gallery files are appended, never replaced wholesale; the service set is
// diffed against the current one. Role and the owning identity never change.
func (s *ProfileService) Update(ctx context.Context, sess *identity.Session, in ProfileUpdateInput) (*model.Profile, error) {
	p, err := s.profiles.GetByAuthUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	if in.FullName != "" {
		p.FullName = in.FullName
	}
	if in.PhoneNumber != "" {
		p.PhoneNumber = in.PhoneNumber
	}
	if in.Location != "" {
		p.Location = in.Location
	}
	if in.Bio != nil {
		p.Bio = *in.Bio
	}
	if in.BirthDate != "" {
		bd, err := time.Parse(birthDateLayout, in.BirthDate)
		if err != nil {
			return nil, validationf("birth_date", "must be a valid %s date", birthDateLayout)
		}
		p.BirthDate = bd
	}

	// Validate every new file before uploading any of them.
	if in.ProfileImage != nil {
		if err := validateImage("profile_image", in.ProfileImage); err != nil {
			return nil, err
		}
	}
	if p.Role == model.RoleProvider {
		if in.IDFront != nil {
			if err := validateImage("id_front", in.IDFront); err != nil {
				return nil, err
			}
		}
		if in.IDBack != nil {
			if err := validateImage("id_back", in.IDBack); err != nil {
				return nil, err
			}
		}
		for _, g := range in.Gallery {
			if err := validateImage("gallery", g); err != nil {
				return nil, err
			}
		}
	}

	var connect, disconnect []uuid.UUID
	if p.Role == model.RoleProvider && in.ServiceIDs != nil {
		wanted, err := parseServiceIDs(in.ServiceIDs)
		if err != nil {
			return nil, err
		}
		if len(wanted) > 0 {
			count, err := s.catalog.CountByIDs(ctx, wanted)
			if err != nil {
				return nil, fmt.Errorf("validate services: %w", err)
			}
			if count != len(wanted) {
				return nil, validationf("service_ids", "one or more selected services do not exist")
			}
		}
		connect, disconnect = diffServices(p.Services, wanted)
	}

	if in.ProfileImage != nil {
		if p.ProfileImage, err = s.uploadFileWithVariants(ctx, storage.ProfileImagePath(p.AuthUserID), in.ProfileImage); err != nil {
			return nil, err
		}
	}
	if p.Role == model.RoleProvider {
		if in.IDFront != nil {
			if p.IDFront, err = s.uploadFile(ctx, storage.IDFrontPath(p.AuthUserID), in.IDFront); err != nil {
				return nil, err
			}
		}
		if in.IDBack != nil {
			if p.IDBack, err = s.uploadFile(ctx, storage.IDBackPath(p.AuthUserID), in.IDBack); err != nil {
				return nil, err
			}
		}
		for _, g := range in.Gallery {
			key, err := s.uploadFile(ctx, storage.GalleryPath(p.AuthUserID, g.Name), g)
			if err != nil {
				return nil, err
			}
			p.Gallery = append(p.Gallery, key)
		}
	}

	if err := s.profiles.Update(ctx, p, connect, disconnect); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", zap.String("profile_id", p.ID.String()))
	return p, nil
}

func (s *ProfileService) uploadFile(ctx context.Context, objectName string, f *FileUpload) (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %q: %w", f.Name, err)
	}
	defer r.Close()
	return s.store.Put(ctx, objectName, r, f.Size, f.ContentType)
}

func (s *ProfileService) uploadFileWithVariants(ctx context.Context, objectName string, f *FileUpload) (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %q: %w", f.Name, err)
	}
	defer r.Close()
	return s.store.PutImageWithVariants(ctx, objectName, r, f.ContentType)
}

// diffServices splits the wanted set into additions and removals relative to
// the currently offered services.
func diffServices(current []model.ServiceRef, wanted []uuid.UUID) (connect, disconnect []uuid.UUID) {
	have := make(map[uuid.UUID]bool, len(current))
	for _, ref := range current {
		have[ref.ID] = true
	}
	want := make(map[uuid.UUID]bool, len(wanted))
	for _, id := range wanted {
		want[id] = true
		if !have[id] {
			connect = append(connect, id)
		}
	}
	for _, ref := range current {
		if !want[ref.ID] {
			disconnect = append(disconnect, ref.ID)
		}
	}
	return connect, disconnect
}
