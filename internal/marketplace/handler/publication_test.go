package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aguayolabs/aguayo-api/internal/identity"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/handler"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/model"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/repository"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/service"
)

type stubPublicationSvc struct {
	pub        *model.Publication
	list       []*model.Publication
	err        error
	lastFilter repository.PublicationFilter
}

func (s *stubPublicationSvc) Create(_ context.Context, _ *identity.Session, _ service.PublicationInput) (*model.Publication, error) {
	return s.pub, s.err
}

func (s *stubPublicationSvc) List(_ context.Context, f repository.PublicationFilter) ([]*model.Publication, error) {
	s.lastFilter = f
	return s.list, s.err
}

func (s *stubPublicationSvc) Delete(_ context.Context, _ *identity.Session, _ uuid.UUID) error {
	return s.err
}

func setupPublications(t *testing.T, svc *stubPublicationSvc, ref *identity.ProfileRef) *sessionEnv {
	t.Helper()
	env := newSessionEnv(t, ref)
	h := handler.NewPublicationHandler(svc, zap.NewNop())
	h.Register(env.v1)
	// Browse route is public, mounted outside the session group.
	h.RegisterPublic(env.router.Group("/api/v1"))
	return env
}

func providerRef() *identity.ProfileRef {
	return &identity.ProfileRef{ID: uuid.New(), Role: "PROVIDER"}
}

func TestPublicationCreateHTTP_created(t *testing.T) {
	svc := &stubPublicationSvc{pub: &model.Publication{ID: uuid.New(), Title: "Limpieza"}}
	env := setupPublications(t, svc, providerRef())

	w := env.do(http.MethodPost, "/api/v1/publications", jsonBody(t, gin.H{
		"title":       "Limpieza",
		"description": "Limpieza profunda",
		"service_id":  uuid.New().String(),
		"price":       150,
		"price_type":  "FIXED",
	}), "application/json")

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPublicationCreateHTTP_clientForbidden(t *testing.T) {
	svc := &stubPublicationSvc{err: service.ErrNotProvider}
	env := setupPublications(t, svc, &identity.ProfileRef{ID: uuid.New(), Role: "CLIENT"})

	w := env.do(http.MethodPost, "/api/v1/publications", jsonBody(t, gin.H{
		"title": "x", "description": "y", "service_id": uuid.New().String(), "price_type": "FIXED",
	}), "application/json")

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPublicationCreateHTTP_unknownService(t *testing.T) {
	svc := &stubPublicationSvc{err: repository.ErrServiceNotFound}
	env := setupPublications(t, svc, providerRef())

	w := env.do(http.MethodPost, "/api/v1/publications", jsonBody(t, gin.H{
		"title": "x", "description": "y", "service_id": uuid.New().String(), "price_type": "FIXED",
	}), "application/json")

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPublicationListHTTP_publicWithFilters(t *testing.T) {
	providerID := uuid.New()
	svc := &stubPublicationSvc{list: []*model.Publication{{ID: uuid.New()}}}
	env := setupPublications(t, svc, nil)

	// No Authorization header: browsing is public.
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/publications?provider_id="+providerID.String()+"&include_inactive=true", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.lastFilter.ProviderID == nil || *svc.lastFilter.ProviderID != providerID {
		t.Errorf("provider filter not forwarded: %+v", svc.lastFilter)
	}
	if !svc.lastFilter.IncludeInactive || svc.lastFilter.IncludeDeleted {
		t.Errorf("flag filters not forwarded: %+v", svc.lastFilter)
	}
}

func TestPublicationListHTTP_badProviderID(t *testing.T) {
	env := setupPublications(t, &stubPublicationSvc{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/publications?provider_id=nope", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPublicationListHTTP_emptyIsArray(t *testing.T) {
	env := setupPublications(t, &stubPublicationSvc{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/publications", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var resp struct {
		Publications []any `json:"publications"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Publications == nil {
		t.Error("empty result must encode as [] not null")
	}
}

func TestPublicationDeleteHTTP_notOwner(t *testing.T) {
	svc := &stubPublicationSvc{err: service.ErrNotOwner}
	env := setupPublications(t, svc, providerRef())

	w := env.do(http.MethodDelete, "/api/v1/publications/"+uuid.New().String(), nil, "")

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestPublicationDeleteHTTP_success(t *testing.T) {
	env := setupPublications(t, &stubPublicationSvc{}, providerRef())

	w := env.do(http.MethodDelete, "/api/v1/publications/"+uuid.New().String(), nil, "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestProfileGetHTTP_foreignProfileForbidden(t *testing.T) {
	env := newSessionEnv(t, &identity.ProfileRef{ID: uuid.New(), Role: "CLIENT"})
	handler.NewProfileHandler(&stubProfileSvc{}, zap.NewNop()).Register(env.v1)

	w := env.do(http.MethodGet, "/api/v1/profiles/"+uuid.New().String(), nil, "")

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestProfileGetHTTP_ownProfile(t *testing.T) {
	env := newSessionEnv(t, &identity.ProfileRef{ID: uuid.New(), Role: "CLIENT"})
	svc := &stubProfileSvc{profile: &model.Profile{ID: uuid.New(), FullName: "Ana Pérez"}}
	handler.NewProfileHandler(svc, zap.NewNop()).Register(env.v1)

	w := env.do(http.MethodGet, "/api/v1/profiles/"+env.userID.String(), nil, "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

type stubProfileSvc struct {
	profile *model.Profile
	err     error
}

func (s *stubProfileSvc) Get(_ context.Context, _ uuid.UUID) (*model.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.profile == nil {
		return nil, repository.ErrProfileNotFound
	}
	return s.profile, nil
}

func (s *stubProfileSvc) Update(_ context.Context, _ *identity.Session, _ service.ProfileUpdateInput) (*model.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.profile, nil
}
