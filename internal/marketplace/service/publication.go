package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aguayolabs/aguayo-api/internal/identity"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/model"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/repository"
)

// publicationRepo is the storage interface consumed by PublicationService.
type publicationRepo interface {
	Create(ctx context.Context, p *model.Publication) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Publication, error)
	List(ctx context.Context, f repository.PublicationFilter) ([]*model.Publication, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	OffersService(ctx context.Context, profileID, serviceID uuid.UUID) (bool, error)
}

// serviceCatalog resolves catalog entries referenced by publications.
type serviceCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Service, error)
}

// PublicationInput carries a publication creation request.
type PublicationInput struct {
	Title       string
	Description string
	ServiceID   string
	Price       *float64
	PriceType   string
	Images      []string
}

// PublicationService implements the rules around provider listings: only a
// provider may publish, only for a service their profile offers, and the
// price must fit the price type.
type PublicationService struct {
	pubs    publicationRepo
	catalog serviceCatalog
	logger  *zap.Logger
}

// NewPublicationService creates a new PublicationService.
func NewPublicationService(pubs publicationRepo, catalog serviceCatalog, logger *zap.Logger) *PublicationService {
	return &PublicationService{pubs: pubs, catalog: catalog, logger: logger}
}

// Create validates and stores a new publication for the calling provider.
func (s *PublicationService) Create(ctx context.Context, sess *identity.Session, in PublicationInput) (*model.Publication, error) {
	if !sess.HasProfile || sess.Role != string(model.RoleProvider) {
		return nil, ErrNotProvider
	}

	if in.Title == "" {
		return nil, validationf("title", "is required")
	}
	if in.Description == "" {
		return nil, validationf("description", "is required")
	}
	priceType := model.PriceType(in.PriceType)
	if !priceType.Valid() {
		return nil, validationf("price_type", "must be %s, %s or %s",
			model.PriceFixed, model.PriceHourly, model.PriceNegotiable)
	}
	serviceID, err := uuid.Parse(in.ServiceID)
	if err != nil {
		return nil, validationf("service_id", "is not a valid service ID")
	}

	svc, err := s.catalog.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	offered, err := s.pubs.OffersService(ctx, sess.ProfileID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("check service offering: %w", err)
	}
	if !offered {
		return nil, validationf("service_id", "service %q is not offered by your profile", svc.Title)
	}

	price := in.Price
	if priceType == model.PriceNegotiable {
		price = nil
	} else {
		if price == nil {
			return nil, validationf("price", "is required unless the price type is %s", model.PriceNegotiable)
		}
		if *price <= 0 {
			return nil, validationf("price", "must be greater than zero")
		}
	}

	p := &model.Publication{
		ProviderID:  sess.ProfileID,
		ServiceID:   serviceID,
		Title:       in.Title,
		Description: in.Description,
		Price:       price,
		PriceType:   priceType,
		Images:      in.Images,
	}
	if err := s.pubs.Create(ctx, p); err != nil {
		return nil, err
	}
	p.Service = &model.ServiceRef{ID: svc.ID, Title: svc.Title}

	s.logger.Info("publication created",
		zap.String("publication_id", p.ID.String()),
		zap.String("provider_id", p.ProviderID.String()),
	)
	return p, nil
}

// List returns publications matching the filter, newest first.
func (s *PublicationService) List(ctx context.Context, f repository.PublicationFilter) ([]*model.Publication, error) {
	return s.pubs.List(ctx, f)
}

// Delete soft-deletes a publication owned by the calling provider.
func (s *PublicationService) Delete(ctx context.Context, sess *identity.Session, id uuid.UUID) error {
	p, err := s.pubs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !sess.HasProfile || p.ProviderID != sess.ProfileID {
		return ErrNotOwner
	}
	return s.pubs.SoftDelete(ctx, id)
}
