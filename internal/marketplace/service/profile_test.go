package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aguayolabs/aguayo-api/internal/identity"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/model"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/repository"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/service"
)

type stubProfileStore struct {
	profile    *model.Profile
	updated    *model.Profile
	connect    []uuid.UUID
	disconnect []uuid.UUID
}

func (s *stubProfileStore) GetByAuthUser(_ context.Context, authUserID uuid.UUID) (*model.Profile, error) {
	if s.profile == nil || s.profile.AuthUserID != authUserID {
		return nil, repository.ErrProfileNotFound
	}
	cp := *s.profile
	cp.Services = append([]model.ServiceRef(nil), s.profile.Services...)
	cp.Gallery = append([]string(nil), s.profile.Gallery...)
	return &cp, nil
}

func (s *stubProfileStore) Update(_ context.Context, p *model.Profile, connect, disconnect []uuid.UUID) error {
	s.updated = p
	s.connect = connect
	s.disconnect = disconnect
	return nil
}

func strptr(v string) *string { return &v }

type profileFixture struct {
	svc       *service.ProfileService
	repo      *stubProfileStore
	store     *stubStore
	sess      *identity.Session
	serviceID uuid.UUID
}

func newProfileFixture(t *testing.T, role model.Role) *profileFixture {
	t.Helper()
	userID := uuid.New()
	svcID := uuid.New()
	profile := &model.Profile{
		ID:           uuid.New(),
		AuthUserID:   userID,
		Email:        "ana@example.com",
		Role:         role,
		FullName:     "Ana Pérez",
		BirthDate:    time.Date(1992, 3, 14, 0, 0, 0, 0, time.UTC),
		PhoneNumber:  "+59171234567",
		Location:     "La Paz",
		Bio:          "Limpieza a domicilio",
		ProfileImage: userID.String() + "/profile.jpg",
		Gallery:      []string{userID.String() + "/gallery/1-old.jpg"},
	}
	if role == model.RoleProvider {
		profile.IDFront = userID.String() + "/id-front.jpg"
		profile.IDBack = userID.String() + "/id-back.jpg"
		profile.Services = []model.ServiceRef{{ID: svcID, Title: "Limpieza"}}
	}
	repo := &stubProfileStore{profile: profile}
	store := newStubStore()
	catalog := &stubCatalog{known: map[uuid.UUID]bool{svcID: true}}
	return &profileFixture{
		svc:       service.NewProfileService(repo, catalog, store, zap.NewNop()),
		repo:      repo,
		store:     store,
		sess:      &identity.Session{UserID: userID, Email: "ana@example.com", HasProfile: true},
		serviceID: svcID,
	}
}

func TestProfileGet_notFound(t *testing.T) {
	f := newProfileFixture(t, model.RoleClient)

	_, err := f.svc.Get(context.Background(), uuid.New())
	if !errors.Is(err, repository.ErrProfileNotFound) {
		t.Fatalf("got %v, want ErrProfileNotFound", err)
	}
}

func TestProfileUpdate_bioOnlyKeepsEverythingElse(t *testing.T) {
	f := newProfileFixture(t, model.RoleProvider)

	p, err := f.svc.Update(context.Background(), f.sess, service.ProfileUpdateInput{
		Bio: strptr("Ahora también jardinería"),
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	orig := f.repo.profile
	if p.Bio != "Ahora también jardinería" {
		t.Errorf("Bio: got %q", p.Bio)
	}
	if p.FullName != orig.FullName || p.PhoneNumber != orig.PhoneNumber || p.Location != orig.Location {
		t.Errorf("text fields changed: %+v", p)
	}
	if p.ProfileImage != orig.ProfileImage || p.IDFront != orig.IDFront || p.IDBack != orig.IDBack {
		t.Errorf("media references changed: %+v", p)
	}
	if len(p.Gallery) != 1 || len(p.Services) != 1 {
		t.Errorf("gallery/services changed: %v %v", p.Gallery, p.Services)
	}
	if f.store.count() != 0 {
		t.Errorf("no files supplied, yet %d objects uploaded", f.store.count())
	}
	if f.repo.connect != nil || f.repo.disconnect != nil {
		t.Errorf("service links changed: connect=%v disconnect=%v", f.repo.connect, f.repo.disconnect)
	}
}

func TestProfileUpdate_clearBio(t *testing.T) {
	f := newProfileFixture(t, model.RoleClient)

	p, err := f.svc.Update(context.Background(), f.sess, service.ProfileUpdateInput{Bio: strptr("")})
	if err != nil {
		t.Fatal(err)
	}
	if p.Bio != "" {
		t.Errorf("Bio: got %q, want cleared", p.Bio)
	}
}

func TestProfileUpdate_replacesProfileImageInPlace(t *testing.T) {
	f := newProfileFixture(t, model.RoleClient)

	p, err := f.svc.Update(context.Background(), f.sess, service.ProfileUpdateInput{
		ProfileImage: testFile("new-face.png", "image/png"),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := f.sess.UserID.String() + "/profile.jpg"
	if p.ProfileImage != want {
		t.Errorf("ProfileImage: got %q, want deterministic path %q", p.ProfileImage, want)
	}
	if _, ok := f.store.objects[want]; !ok {
		t.Error("replacement was not uploaded")
	}
}

func TestProfileUpdate_appendsGallery(t *testing.T) {
	f := newProfileFixture(t, model.RoleProvider)

	p, err := f.svc.Update(context.Background(), f.sess, service.ProfileUpdateInput{
		Gallery: []*service.FileUpload{testFile("work2.jpg", "image/jpeg")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Gallery) != 2 {
		t.Fatalf("Gallery: got %v, want existing entry plus one", p.Gallery)
	}
	if p.Gallery[0] != f.repo.profile.Gallery[0] {
		t.Error("existing gallery entry was dropped")
	}
}

func TestProfileUpdate_diffsServices(t *testing.T) {
	f := newProfileFixture(t, model.RoleProvider)
	ctx := context.Background()

	newSvc := uuid.New()
	f.svc = service.NewProfileService(f.repo,
		&stubCatalog{known: map[uuid.UUID]bool{f.serviceID: true, newSvc: true}},
		f.store, zap.NewNop())

	_, err := f.svc.Update(ctx, f.sess, service.ProfileUpdateInput{
		ServiceIDs: []string{newSvc.String()},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(f.repo.connect) != 1 || f.repo.connect[0] != newSvc {
		t.Errorf("connect: got %v", f.repo.connect)
	}
	if len(f.repo.disconnect) != 1 || f.repo.disconnect[0] != f.serviceID {
		t.Errorf("disconnect: got %v", f.repo.disconnect)
	}
}

func TestProfileUpdate_emptyServiceListDisconnectsAll(t *testing.T) {
	f := newProfileFixture(t, model.RoleProvider)

	_, err := f.svc.Update(context.Background(), f.sess, service.ProfileUpdateInput{
		ServiceIDs: []string{},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(f.repo.connect) != 0 || len(f.repo.disconnect) != 1 {
		t.Errorf("connect=%v disconnect=%v", f.repo.connect, f.repo.disconnect)
	}
}

func TestProfileUpdate_rejectsUnknownService(t *testing.T) {
	f := newProfileFixture(t, model.RoleProvider)

	_, err := f.svc.Update(context.Background(), f.sess, service.ProfileUpdateInput{
		ServiceIDs: []string{uuid.New().String()},
	})
	var verr *service.ValidationError
	if !errors.As(err, &verr) || verr.Field != "service_ids" {
		t.Fatalf("expected ValidationError on service_ids, got %v", err)
	}
	if f.repo.updated != nil {
		t.Error("rejected update must not persist")
	}
}

func TestProfileUpdate_ignoresProviderMediaForClients(t *testing.T) {
	f := newProfileFixture(t, model.RoleClient)

	p, err := f.svc.Update(context.Background(), f.sess, service.ProfileUpdateInput{
		IDFront: testFile("front.jpg", "image/jpeg"),
		Gallery: []*service.FileUpload{testFile("pic.jpg", "image/jpeg")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.IDFront != "" {
		t.Errorf("client acquired a document reference: %q", p.IDFront)
	}
	if f.store.count() != 0 {
		t.Errorf("provider-only media must not be uploaded for clients, got %d objects", f.store.count())
	}
}

func TestProfileUpdate_invalidFileUploadsNothing(t *testing.T) {
	f := newProfileFixture(t, model.RoleProvider)

	_, err := f.svc.Update(context.Background(), f.sess, service.ProfileUpdateInput{
		ProfileImage: testFile("face.jpg", "image/jpeg"),
		IDFront:      testFile("front.txt", "text/plain"),
	})
	var verr *service.ValidationError
	if !errors.As(err, &verr) || verr.Field != "id_front" {
		t.Fatalf("expected ValidationError on id_front, got %v", err)
	}
	if f.store.count() != 0 {
		t.Errorf("partial validation failure must upload nothing, got %d objects", f.store.count())
	}
}
