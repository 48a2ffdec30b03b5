package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aguayolabs/aguayo-api/internal/identity"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/model"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/repository"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/service"
)

// ── Stubs ─────────────────────────────────────────────────────────────────

type stubProfiles struct {
	mu       sync.Mutex
	created  []*model.Profile
	existing map[uuid.UUID]bool
	failWith error
}

func newStubProfiles() *stubProfiles {
	return &stubProfiles{existing: map[uuid.UUID]bool{}}
}

func (s *stubProfiles) Create(_ context.Context, p *model.Profile, serviceIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if s.existing[p.AuthUserID] {
		return repository.ErrProfileExists
	}
	p.ID = uuid.New()
	for _, sid := range serviceIDs {
		p.Services = append(p.Services, model.ServiceRef{ID: sid, Title: "Limpieza"})
	}
	s.existing[p.AuthUserID] = true
	s.created = append(s.created, p)
	return nil
}

func (s *stubProfiles) ExistsByAuthUser(_ context.Context, authUserID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existing[authUserID], nil
}

type stubCatalog struct {
	known map[uuid.UUID]bool
}

func (s *stubCatalog) CountByIDs(_ context.Context, ids []uuid.UUID) (int, error) {
	n := 0
	for _, id := range ids {
		if s.known[id] {
			n++
		}
	}
	return n, nil
}

type stubStore struct {
	mu      sync.Mutex
	objects map[string]string // object name → content type
}

func newStubStore() *stubStore {
	return &stubStore{objects: map[string]string{}}
}

func (s *stubStore) Put(_ context.Context, name string, _ io.Reader, _ int64, ct string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = ct
	return name, nil
}

func (s *stubStore) PutImageWithVariants(ctx context.Context, name string, r io.Reader, ct string) (string, error) {
	return s.Put(ctx, name, r, 0, ct)
}

func (s *stubStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// ── Helpers ───────────────────────────────────────────────────────────────

func newDraftIssuer(t *testing.T) *identity.TokenIssuer {
	t.Helper()
	km := identity.NewKeyManager(t.TempDir())
	if err := km.LoadOrCreate(); err != nil {
		t.Fatal(err)
	}
	return identity.NewTokenIssuer(km.Key(), "https://api.aguayo.test", time.Hour)
}

func testFile(name, contentType string) *service.FileUpload {
	return &service.FileUpload{
		Name:        name,
		Size:        1024,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("img-bytes")), nil
		},
	}
}

func testSession() *identity.Session {
	return &identity.Session{
		UserID: uuid.New(),
		Email:  "juan@example.com",
	}
}

type onboardingFixture struct {
	svc       *service.OnboardingService
	profiles  *stubProfiles
	store     *stubStore
	serviceID uuid.UUID
}

func newOnboardingFixture(t *testing.T) *onboardingFixture {
	t.Helper()
	profiles := newStubProfiles()
	store := newStubStore()
	svcID := uuid.New()
	catalog := &stubCatalog{known: map[uuid.UUID]bool{svcID: true}}
	svc := service.NewOnboardingService(profiles, catalog, newDraftIssuer(t), store, zap.NewNop())
	return &onboardingFixture{svc: svc, profiles: profiles, store: store, serviceID: svcID}
}

func personalInput() service.PersonalInput {
	return service.PersonalInput{
		FullName:    "Ana Pérez",
		BirthDate:   "1992-03-14",
		PhoneNumber: "+59171234567",
		Location:    "La Paz",
	}
}

// advance runs the wizard up to the documents step and returns the draft.
func advance(t *testing.T, f *onboardingFixture, sess *identity.Session, role string, in service.PersonalInput) string {
	t.Helper()
	ctx := context.Background()
	draft, err := f.svc.SelectRole(ctx, sess, role)
	if err != nil {
		t.Fatalf("SelectRole() error: %v", err)
	}
	draft, err = f.svc.SubmitPersonal(ctx, sess, draft, in)
	if err != nil {
		t.Fatalf("SubmitPersonal() error: %v", err)
	}
	return draft
}

// ── Tests ─────────────────────────────────────────────────────────────────

func TestSelectRole_invalidRole(t *testing.T) {
	f := newOnboardingFixture(t)

	_, err := f.svc.SelectRole(context.Background(), testSession(), "ADMIN")
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSelectRole_discardsPersonalData(t *testing.T) {
	f := newOnboardingFixture(t)
	sess := testSession()
	ctx := context.Background()

	advance(t, f, sess, "PROVIDER", personalInput())

	// Restarting role selection yields a draft with no personal data:
	// the next step after it must be "personal", not "documents".
	draft, err := f.svc.SelectRole(ctx, sess, "CLIENT")
	if err != nil {
		t.Fatal(err)
	}
	step, err := f.svc.State(ctx, sess, draft)
	if err != nil {
		t.Fatal(err)
	}
	if step != service.StepPersonal {
		t.Errorf("after role restart: step = %q, want %q", step, service.StepPersonal)
	}
}

func TestSubmitPersonal_withoutRole(t *testing.T) {
	f := newOnboardingFixture(t)

	_, err := f.svc.SubmitPersonal(context.Background(), testSession(), "not-a-draft", personalInput())
	var serr *service.StepError
	if !errors.As(err, &serr) || serr.Step != service.StepRole {
		t.Fatalf("expected StepError{role}, got %v", err)
	}
}

func TestSubmitPersonal_missingFields(t *testing.T) {
	f := newOnboardingFixture(t)
	sess := testSession()
	ctx := context.Background()

	draft, err := f.svc.SelectRole(ctx, sess, "CLIENT")
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		field  string
		mutate func(*service.PersonalInput)
	}{
		{"full_name", func(in *service.PersonalInput) { in.FullName = "" }},
		{"phone_number", func(in *service.PersonalInput) { in.PhoneNumber = "" }},
		{"location", func(in *service.PersonalInput) { in.Location = "" }},
		{"birth_date", func(in *service.PersonalInput) { in.BirthDate = "not-a-date" }},
	} {
		in := personalInput()
		tc.mutate(&in)
		_, err := f.svc.SubmitPersonal(ctx, sess, draft, in)
		var verr *service.ValidationError
		if !errors.As(err, &verr) || verr.Field != tc.field {
			t.Errorf("%s: expected ValidationError on that field, got %v", tc.field, err)
		}
	}
}

func TestSubmitPersonal_unknownService(t *testing.T) {
	f := newOnboardingFixture(t)
	sess := testSession()
	ctx := context.Background()

	draft, err := f.svc.SelectRole(ctx, sess, "PROVIDER")
	if err != nil {
		t.Fatal(err)
	}

	in := personalInput()
	in.ServiceIDs = []string{uuid.New().String()}
	_, err = f.svc.SubmitPersonal(ctx, sess, draft, in)
	var verr *service.ValidationError
	if !errors.As(err, &verr) || verr.Field != "service_ids" {
		t.Fatalf("expected ValidationError on service_ids, got %v", err)
	}
}

func TestComplete_consumerWithoutDocuments(t *testing.T) {
	f := newOnboardingFixture(t)
	sess := testSession()
	draft := advance(t, f, sess, "CLIENT", personalInput())

	p, err := f.svc.Complete(context.Background(), sess, draft, service.CompletionFiles{
		ProfileImage: testFile("me.jpg", "image/jpeg"),
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if p.Role != model.RoleClient {
		t.Errorf("Role: got %q", p.Role)
	}
	if p.IDFront != "" || p.IDBack != "" {
		t.Errorf("client profile must not carry document references: %q %q", p.IDFront, p.IDBack)
	}
}

func TestComplete_roundTripPersonalData(t *testing.T) {
	f := newOnboardingFixture(t)
	sess := testSession()

	in := service.PersonalInput{
		FullName:    "Ana Pérez",
		BirthDate:   "1992-03-14",
		PhoneNumber: "+59171234567",
		Location:    "La Paz",
	}
	draft := advance(t, f, sess, "CLIENT", in)

	p, err := f.svc.Complete(context.Background(), sess, draft, service.CompletionFiles{
		ProfileImage: testFile("me.jpg", "image/jpeg"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.FullName != "Ana Pérez" || p.PhoneNumber != "+59171234567" || p.Location != "La Paz" {
		t.Errorf("personal data did not survive the wizard: %+v", p)
	}
	if p.BirthDate.Format("2006-01-02") != "1992-03-14" {
		t.Errorf("BirthDate: got %s", p.BirthDate)
	}
	if p.Email != "juan@example.com" {
		t.Errorf("Email: got %q", p.Email)
	}
}

func TestComplete_providerFullRun(t *testing.T) {
	f := newOnboardingFixture(t)
	sess := testSession()

	in := service.PersonalInput{
		FullName:    "Juan Soto",
		BirthDate:   "1990-05-02",
		PhoneNumber: "+59170000000",
		Location:    "Cochabamba",
		Bio:         "Plomero con 10 años de experiencia",
		ServiceIDs:  []string{f.serviceID.String()},
	}
	draft := advance(t, f, sess, "PROVIDER", in)

	p, err := f.svc.Complete(context.Background(), sess, draft, service.CompletionFiles{
		ProfileImage: testFile("me.jpg", "image/jpeg"),
		IDFront:      testFile("front.jpg", "image/jpeg"),
		IDBack:       testFile("back.jpg", "image/png"),
		Gallery:      []*service.FileUpload{testFile("work1.jpg", "image/jpeg")},
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	if p.Role != model.RoleProvider {
		t.Errorf("Role: got %q", p.Role)
	}
	if len(p.Services) != 1 || p.Services[0].ID != f.serviceID {
		t.Errorf("Services: got %+v", p.Services)
	}
	userPrefix := sess.UserID.String() + "/"
	if p.ProfileImage != userPrefix+"profile.jpg" {
		t.Errorf("ProfileImage: got %q", p.ProfileImage)
	}
	if p.IDFront != userPrefix+"id-front.jpg" || p.IDBack != userPrefix+"id-back.jpg" {
		t.Errorf("document paths: %q %q", p.IDFront, p.IDBack)
	}
	if len(p.Gallery) != 1 || !strings.HasPrefix(p.Gallery[0], userPrefix+"gallery/") {
		t.Errorf("Gallery: got %v", p.Gallery)
	}
	for _, key := range []string{p.ProfileImage, p.IDFront, p.IDBack, p.Gallery[0]} {
		if _, ok := f.store.objects[key]; !ok {
			t.Errorf("object %q was not uploaded", key)
		}
	}
}

func TestComplete_providerMissingIDFront(t *testing.T) {
	f := newOnboardingFixture(t)
	sess := testSession()
	draft := advance(t, f, sess, "PROVIDER", personalInput())

	_, err := f.svc.Complete(context.Background(), sess, draft, service.CompletionFiles{
		ProfileImage: testFile("me.jpg", "image/jpeg"),
		IDBack:       testFile("back.jpg", "image/jpeg"),
	})
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if f.store.count() != 0 {
		t.Errorf("validation failure must upload nothing; %d objects uploaded", f.store.count())
	}
	if len(f.profiles.created) != 0 {
		t.Error("validation failure must create no profile")
	}
}

func TestComplete_rejectsBadFileType(t *testing.T) {
	f := newOnboardingFixture(t)
	sess := testSession()
	draft := advance(t, f, sess, "CLIENT", personalInput())

	_, err := f.svc.Complete(context.Background(), sess, draft, service.CompletionFiles{
		ProfileImage: testFile("me.pdf", "application/pdf"),
	})
	var verr *service.ValidationError
	if !errors.As(err, &verr) || verr.Field != "profile_image" {
		t.Fatalf("expected ValidationError on profile_image, got %v", err)
	}
	if f.store.count() != 0 {
		t.Error("rejected file type must upload nothing")
	}
}

func TestComplete_missingPrerequisites(t *testing.T) {
	f := newOnboardingFixture(t)
	sess := testSession()
	ctx := context.Background()

	// No draft at all → back to role selection.
	_, err := f.svc.Complete(ctx, sess, "", service.CompletionFiles{})
	var serr *service.StepError
	if !errors.As(err, &serr) || serr.Step != service.StepRole {
		t.Fatalf("no draft: expected StepError{role}, got %v", err)
	}

	// Role selected but personal step skipped → back to personal.
	draft, err := f.svc.SelectRole(ctx, sess, "CLIENT")
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.Complete(ctx, sess, draft, service.CompletionFiles{
		ProfileImage: testFile("me.jpg", "image/jpeg"),
	})
	if !errors.As(err, &serr) || serr.Step != service.StepPersonal {
		t.Fatalf("no personal data: expected StepError{personal}, got %v", err)
	}
}

func TestComplete_concurrentSubmissions(t *testing.T) {
	f := newOnboardingFixture(t)
	sess := testSession()
	draft := advance(t, f, sess, "CLIENT", personalInput())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Complete(context.Background(), sess, draft, service.CompletionFiles{
				ProfileImage: testFile("me.jpg", "image/jpeg"),
			})
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, repository.ErrProfileExists):
			conflict++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflict != 1 {
		t.Errorf("want exactly one success and one conflict, got %d/%d", ok, conflict)
	}
	if len(f.profiles.created) != 1 {
		t.Errorf("exactly one profile must exist, got %d", len(f.profiles.created))
	}
}

func TestComplete_preservesDraftOnUpstreamFailure(t *testing.T) {
	f := newOnboardingFixture(t)
	sess := testSession()
	draft := advance(t, f, sess, "CLIENT", personalInput())

	f.profiles.failWith = errors.New("connection refused")
	_, err := f.svc.Complete(context.Background(), sess, draft, service.CompletionFiles{
		ProfileImage: testFile("me.jpg", "image/jpeg"),
	})
	if err == nil {
		t.Fatal("expected upstream failure to surface")
	}

	// The same draft must still work on retry.
	f.profiles.failWith = nil
	if _, err := f.svc.Complete(context.Background(), sess, draft, service.CompletionFiles{
		ProfileImage: testFile("me.jpg", "image/jpeg"),
	}); err != nil {
		t.Fatalf("retry with preserved draft failed: %v", err)
	}
}

func TestOnboarding_blockedOnceProfileExists(t *testing.T) {
	f := newOnboardingFixture(t)
	sess := testSession()
	draft := advance(t, f, sess, "CLIENT", personalInput())
	ctx := context.Background()

	if _, err := f.svc.Complete(ctx, sess, draft, service.CompletionFiles{
		ProfileImage: testFile("me.jpg", "image/jpeg"),
	}); err != nil {
		t.Fatal(err)
	}

	// Session augmentation would now carry HasProfile=true.
	sess.HasProfile = true

	if _, err := f.svc.SelectRole(ctx, sess, "CLIENT"); !errors.Is(err, repository.ErrProfileExists) {
		t.Errorf("SelectRole after onboarding: got %v", err)
	}
	step, err := f.svc.State(ctx, sess, "")
	if err != nil {
		t.Fatal(err)
	}
	if step != service.StepFinished {
		t.Errorf("State after onboarding: got %q, want %q", step, service.StepFinished)
	}
}

func TestState_progression(t *testing.T) {
	f := newOnboardingFixture(t)
	sess := testSession()
	ctx := context.Background()

	step, _ := f.svc.State(ctx, sess, "")
	if step != service.StepRole {
		t.Errorf("fresh user: step = %q", step)
	}

	draft, err := f.svc.SelectRole(ctx, sess, "PROVIDER")
	if err != nil {
		t.Fatal(err)
	}
	step, _ = f.svc.State(ctx, sess, draft)
	if step != service.StepPersonal {
		t.Errorf("after role: step = %q", step)
	}

	draft, err = f.svc.SubmitPersonal(ctx, sess, draft, personalInput())
	if err != nil {
		t.Fatal(err)
	}
	step, _ = f.svc.State(ctx, sess, draft)
	if step != service.StepDocuments {
		t.Errorf("after personal: step = %q", step)
	}
}
