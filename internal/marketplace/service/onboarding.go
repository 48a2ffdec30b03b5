package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aguayolabs/aguayo-api/internal/identity"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/model"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/repository"
	"github.com/aguayolabs/aguayo-api/internal/storage"
)

const birthDateLayout = "2006-01-02"

// onboardingProfileRepo is the profile storage interface consumed by OnboardingService.
type onboardingProfileRepo interface {
	Create(ctx context.Context, p *model.Profile, serviceIDs []uuid.UUID) error
	ExistsByAuthUser(ctx context.Context, authUserID uuid.UUID) (bool, error)
}

// catalogRepo validates provider service selections against the catalog.
type catalogRepo interface {
	CountByIDs(ctx context.Context, ids []uuid.UUID) (int, error)
}

// draftIssuer signs and verifies the caller-held onboarding drafts.
// Satisfied by *identity.TokenIssuer.
type draftIssuer interface {
	IssueDraft(userID, role string, personal *identity.DraftPersonal) (string, error)
	VerifyDraft(tokenStr, userID string) (*identity.SessionClaims, error)
}

// mediaStore is the media storage interface consumed by the marketplace
// services. Satisfied by *storage.ObjectStore.
type mediaStore interface {
	Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error)
	PutImageWithVariants(ctx context.Context, objectName string, r io.Reader, contentType string) (string, error)
}

// PersonalInput carries the fields of the personal onboarding step.
type PersonalInput struct {
	FullName    string
	BirthDate   string // 2006-01-02
	PhoneNumber string
	Location    string
	Bio         string
	ServiceIDs  []string
}

// CompletionFiles carries the media captured at the terminal onboarding step.
type CompletionFiles struct {
	ProfileImage *FileUpload
	IDFront      *FileUpload
	IDBack       *FileUpload
	Gallery      []*FileUpload
}

// OnboardingService drives the signup wizard: role → personal → documents →
// finish. The server holds no state between steps; everything accumulated so
// far rides in a signed draft token the caller sends back with each request.
// The terminal step performs the only durable write — a single profile
// insert — after uploading the captured media.
type OnboardingService struct {
	profiles onboardingProfileRepo
	catalog  catalogRepo
	drafts   draftIssuer
	store    mediaStore
	logger   *zap.Logger
}

// NewOnboardingService creates a new OnboardingService.
func NewOnboardingService(
	profiles onboardingProfileRepo,
	catalog catalogRepo,
	drafts draftIssuer,
	store mediaStore,
	logger *zap.Logger,
) *OnboardingService {
	return &OnboardingService{
		profiles: profiles,
		catalog:  catalog,
		drafts:   drafts,
		store:    store,
		logger:   logger,
	}
}

// SelectRole starts (or restarts) the wizard. The returned draft carries only
// the role: re-selecting a role after progressing further deliberately
// discards any previously accumulated personal data, so a CLIENT run cannot
// inherit fields from an abandoned PROVIDER run.
func (s *OnboardingService) SelectRole(ctx context.Context, sess *identity.Session, role string) (string, error) {
	if sess.HasProfile {
		return "", repository.ErrProfileExists
	}
	if !model.Role(role).Valid() {
		return "", validationf("role", "must be %s or %s", model.RoleProvider, model.RoleClient)
	}
	return s.drafts.IssueDraft(sess.UserID.String(), role, nil)
}

// SubmitPersonal validates the personal step and folds it into a new draft.
// No durable write happens here.
func (s *OnboardingService) SubmitPersonal(ctx context.Context, sess *identity.Session, draftToken string, in PersonalInput) (string, error) {
	if sess.HasProfile {
		return "", repository.ErrProfileExists
	}

	claims, err := s.drafts.VerifyDraft(draftToken, sess.UserID.String())
	if err != nil || claims.Role == "" {
		return "", &StepError{Step: StepRole}
	}
	role := model.Role(claims.Role)

	if in.FullName == "" {
		return "", validationf("full_name", "is required")
	}
	if in.PhoneNumber == "" {
		return "", validationf("phone_number", "is required")
	}
	if in.Location == "" {
		return "", validationf("location", "is required")
	}
	if _, err := time.Parse(birthDateLayout, in.BirthDate); err != nil {
		return "", validationf("birth_date", "must be a valid %s date", birthDateLayout)
	}

	personal := &identity.DraftPersonal{
		FullName:    in.FullName,
		BirthDate:   in.BirthDate,
		PhoneNumber: in.PhoneNumber,
		Location:    in.Location,
	}

	// Service selection and bio are provider-only; for clients they are
	// dropped rather than rejected, matching the wizard UI which never
	// offers them.
	if role == model.RoleProvider {
		personal.Bio = in.Bio
		ids, err := parseServiceIDs(in.ServiceIDs)
		if err != nil {
			return "", err
		}
		if len(ids) > 0 {
			count, err := s.catalog.CountByIDs(ctx, ids)
			if err != nil {
				return "", fmt.Errorf("validate services: %w", err)
			}
			if count != len(ids) {
				return "", validationf("service_ids", "one or more selected services do not exist")
			}
		}
		personal.ServiceIDs = in.ServiceIDs
	}

	return s.drafts.IssueDraft(sess.UserID.String(), claims.Role, personal)
}

// Complete is the terminal transition: it validates the accumulated draft and
// the captured files, uploads the media, and creates the profile with exactly
// one insert.
//
// All validation happens before the first upload so a rejected submission
// leaves no orphaned objects. If some uploads succeed and the insert then
// fails, the uploaded objects are not rolled back — the draft stays valid and
// a retry overwrites the singleton paths.
func (s *OnboardingService) Complete(ctx context.Context, sess *identity.Session, draftToken string, files CompletionFiles) (*model.Profile, error) {
	if sess.HasProfile {
		return nil, repository.ErrProfileExists
	}

	claims, err := s.drafts.VerifyDraft(draftToken, sess.UserID.String())
	if err != nil || claims.Role == "" {
		return nil, &StepError{Step: StepRole}
	}
	if claims.Personal == nil {
		return nil, &StepError{Step: StepPersonal}
	}
	role := model.Role(claims.Role)

	if files.ProfileImage == nil {
		return nil, validationf("profile_image", "a profile photo is required")
	}
	if err := validateImage("profile_image", files.ProfileImage); err != nil {
		return nil, err
	}
	if role == model.RoleProvider {
		if files.IDFront == nil || files.IDBack == nil {
			return nil, validationf("id_front", "both identity document images are required for providers")
		}
		if err := validateImage("id_front", files.IDFront); err != nil {
			return nil, err
		}
		if err := validateImage("id_back", files.IDBack); err != nil {
			return nil, err
		}
		for _, g := range files.Gallery {
			if err := validateImage("gallery", g); err != nil {
				return nil, err
			}
		}
	}

	birthDate, err := time.Parse(birthDateLayout, claims.Personal.BirthDate)
	if err != nil {
		return nil, &StepError{Step: StepPersonal}
	}
	serviceIDs, err := parseServiceIDs(claims.Personal.ServiceIDs)
	if err != nil {
		return nil, err
	}

	profileImage, err := s.uploadWithVariants(ctx, storage.ProfileImagePath(sess.UserID), files.ProfileImage)
	if err != nil {
		return nil, err
	}

	p := &model.Profile{
		AuthUserID:   sess.UserID,
		Email:        sess.Email,
		Role:         role,
		FullName:     claims.Personal.FullName,
		BirthDate:    birthDate,
		PhoneNumber:  claims.Personal.PhoneNumber,
		Location:     claims.Personal.Location,
		Bio:          claims.Personal.Bio,
		ProfileImage: profileImage,
		Gallery:      []string{},
	}

	if role == model.RoleProvider {
		if p.IDFront, err = s.upload(ctx, storage.IDFrontPath(sess.UserID), files.IDFront); err != nil {
			return nil, err
		}
		if p.IDBack, err = s.upload(ctx, storage.IDBackPath(sess.UserID), files.IDBack); err != nil {
			return nil, err
		}
		for _, g := range files.Gallery {
			key, err := s.upload(ctx, storage.GalleryPath(sess.UserID, g.Name), g)
			if err != nil {
				return nil, err
			}
			p.Gallery = append(p.Gallery, key)
		}
	} else {
		serviceIDs = nil
	}

	if err := s.profiles.Create(ctx, p, serviceIDs); err != nil {
		return nil, err
	}

	s.logger.Info("profile created",
		zap.String("profile_id", p.ID.String()),
		zap.String("auth_user_id", p.AuthUserID.String()),
		zap.String("role", string(p.Role)),
	)
	return p, nil
}

// State reports the step the caller should be on, given their draft. Used by
// the wizard entry point to resume a partially completed run.
func (s *OnboardingService) State(ctx context.Context, sess *identity.Session, draftToken string) (Step, error) {
	if sess.HasProfile {
		return StepFinished, nil
	}
	if draftToken == "" {
		return StepRole, nil
	}
	claims, err := s.drafts.VerifyDraft(draftToken, sess.UserID.String())
	if err != nil || claims.Role == "" {
		return StepRole, nil
	}
	if claims.Personal == nil {
		return StepPersonal, nil
	}
	return StepDocuments, nil
}

func (s *OnboardingService) upload(ctx context.Context, objectName string, f *FileUpload) (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %q: %w", f.Name, err)
	}
	defer r.Close()
	return s.store.Put(ctx, objectName, r, f.Size, f.ContentType)
}

func (s *OnboardingService) uploadWithVariants(ctx context.Context, objectName string, f *FileUpload) (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %q: %w", f.Name, err)
	}
	defer r.Close()
	return s.store.PutImageWithVariants(ctx, objectName, r, f.ContentType)
}

func parseServiceIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, validationf("service_ids", "%q is not a valid service ID", r)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
