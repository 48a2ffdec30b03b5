package identity_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aguayolabs/aguayo-api/internal/identity"
)

func newTestIssuer(t *testing.T) *identity.TokenIssuer {
	t.Helper()
	km := identity.NewKeyManager(t.TempDir())
	if err := km.LoadOrCreate(); err != nil {
		t.Fatalf("LoadOrCreate() error: %v", err)
	}
	return identity.NewTokenIssuer(km.Key(), "https://api.aguayo.test", time.Hour)
}

func TestTokenIssuer_Issue(t *testing.T) {
	ti := newTestIssuer(t)

	token, err := ti.Issue("9f3c2a10-0000-0000-0000-000000000001", "ana@example.com", "Ana")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Errorf("expected 3-part JWT, got %d parts", len(parts))
	}
}

func TestTokenIssuer_Verify_valid(t *testing.T) {
	ti := newTestIssuer(t)

	token, err := ti.Issue("9f3c2a10-0000-0000-0000-000000000001", "ana@example.com", "Ana")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if claims.Email != "ana@example.com" {
		t.Errorf("Email: got %q, want %q", claims.Email, "ana@example.com")
	}
	if claims.UserID != "9f3c2a10-0000-0000-0000-000000000001" {
		t.Errorf("UserID: got %q", claims.UserID)
	}
}

func TestTokenIssuer_Verify_expired(t *testing.T) {
	km := identity.NewKeyManager(t.TempDir())
	if err := km.LoadOrCreate(); err != nil {
		t.Fatal(err)
	}
	ti := identity.NewTokenIssuer(km.Key(), "https://api.aguayo.test", time.Nanosecond)

	token, err := ti.Issue("9f3c2a10-0000-0000-0000-000000000001", "ana@example.com", "Ana")
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(2 * time.Millisecond)

	if _, err := ti.Verify(token); err == nil {
		t.Error("expected error for expired token, got nil")
	}
}

func TestTokenIssuer_Verify_rejectsDraftToken(t *testing.T) {
	ti := newTestIssuer(t)

	draft, err := ti.IssueDraft("9f3c2a10-0000-0000-0000-000000000001", "PROVIDER", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ti.Verify(draft); err == nil {
		t.Error("expected session verification to reject a draft token")
	}
}

func TestTokenIssuer_Draft_roundTrip(t *testing.T) {
	ti := newTestIssuer(t)
	userID := "9f3c2a10-0000-0000-0000-000000000001"

	personal := &identity.DraftPersonal{
		FullName:    "Juan Soto",
		BirthDate:   "1990-05-02",
		PhoneNumber: "+59170000000",
		Location:    "Cochabamba",
		ServiceIDs:  []string{"svc-clean"},
	}

	draft, err := ti.IssueDraft(userID, "PROVIDER", personal)
	if err != nil {
		t.Fatalf("IssueDraft() error: %v", err)
	}

	claims, err := ti.VerifyDraft(draft, userID)
	if err != nil {
		t.Fatalf("VerifyDraft() error: %v", err)
	}
	if claims.Role != "PROVIDER" {
		t.Errorf("Role: got %q, want PROVIDER", claims.Role)
	}
	if claims.Personal == nil || claims.Personal.FullName != "Juan Soto" {
		t.Errorf("Personal: got %+v", claims.Personal)
	}
	if len(claims.Personal.ServiceIDs) != 1 || claims.Personal.ServiceIDs[0] != "svc-clean" {
		t.Errorf("ServiceIDs: got %v", claims.Personal.ServiceIDs)
	}
}

func TestTokenIssuer_Draft_wrongUser(t *testing.T) {
	ti := newTestIssuer(t)

	draft, err := ti.IssueDraft("9f3c2a10-0000-0000-0000-000000000001", "CLIENT", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ti.VerifyDraft(draft, "9f3c2a10-0000-0000-0000-000000000002"); err == nil {
		t.Error("expected draft bound to another user to be rejected")
	}
}

func TestTokenIssuer_Draft_tampered(t *testing.T) {
	ti := newTestIssuer(t)
	userID := "9f3c2a10-0000-0000-0000-000000000001"

	draft, err := ti.IssueDraft(userID, "CLIENT", nil)
	if err != nil {
		t.Fatal(err)
	}

	// Corrupt a character in the payload segment.
	parts := strings.Split(draft, ".")
	payload := []byte(parts[1])
	if payload[10] == 'A' {
		payload[10] = 'B'
	} else {
		payload[10] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := ti.VerifyDraft(tampered, userID); err == nil {
		t.Error("expected tampered draft to be rejected")
	}
}

func TestTokenIssuer_Draft_foreignKey(t *testing.T) {
	ti := newTestIssuer(t)
	other := newTestIssuer(t)
	userID := "9f3c2a10-0000-0000-0000-000000000001"

	draft, err := other.IssueDraft(userID, "CLIENT", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ti.VerifyDraft(draft, userID); err == nil {
		t.Error("expected draft signed by a different key to be rejected")
	}
}

func TestTokenIssuer_OAuthState(t *testing.T) {
	ti := newTestIssuer(t)

	state, err := ti.IssueOAuthState("google")
	if err != nil {
		t.Fatalf("IssueOAuthState() error: %v", err)
	}

	provider, err := ti.VerifyOAuthState(state)
	if err != nil {
		t.Fatalf("VerifyOAuthState() error: %v", err)
	}
	if provider != "google" {
		t.Errorf("provider: got %q, want google", provider)
	}

	// A session token must not pass as OAuth state.
	sess, _ := ti.Issue("9f3c2a10-0000-0000-0000-000000000001", "ana@example.com", "Ana")
	if _, err := ti.VerifyOAuthState(sess); err == nil {
		t.Error("expected session token to be rejected as oauth state")
	}
}
