package identity

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DraftPersonal is the personal-data slice of an onboarding draft token.
// It mirrors the fields collected in the personal step of the signup wizard.
type DraftPersonal struct {
	FullName    string   `json:"full_name"`
	BirthDate   string   `json:"birth_date"` // 2006-01-02
	PhoneNumber string   `json:"phone_number"`
	Location    string   `json:"location"`
	Bio         string   `json:"bio,omitempty"`
	ServiceIDs  []string `json:"service_ids,omitempty"`
}

// SessionClaims are the JWT claims for an Aguayo session token.
//
// The same claims type also carries OAuth state tokens (Type "oauth-state")
// and onboarding draft tokens (Type "onboarding-draft"); the Type field keeps
// the three kinds from being interchangeable.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID      string         `json:"user_id"`
	Email       string         `json:"email,omitempty"`
	DisplayName string         `json:"display_name,omitempty"`
	Type        string         `json:"type"`
	Role        string         `json:"role,omitempty"`     // draft tokens: selected signup role
	Personal    *DraftPersonal `json:"personal,omitempty"` // draft tokens: accumulated personal data
}

// TokenIssuer issues and verifies session, OAuth-state, and onboarding draft
// JWTs using the service signing key.
type TokenIssuer struct {
	key    *rsa.PrivateKey
	pub    *rsa.PublicKey
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer.
//
//	issuerURL — the "iss" claim value; matches the API's base URL.
//	ttl       — session token lifetime (default: 30 days, matching the
//	            session duration of the web frontend).
func NewTokenIssuer(key *rsa.PrivateKey, issuerURL string, ttl time.Duration) *TokenIssuer {
	if ttl == 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &TokenIssuer{
		key:    key,
		pub:    &key.PublicKey,
		issuer: issuerURL,
		ttl:    ttl,
	}
}

// Issue creates a signed session token for an authenticated user.
func (t *TokenIssuer) Issue(userID, email, displayName string) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.New().String(),
		},
		UserID:      userID,
		Email:       email,
		DisplayName: displayName,
		Type:        "session",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token, returning its claims.
func (t *TokenIssuer) Verify(tokenStr string) (*SessionClaims, error) {
	claims, err := t.parse(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("verify session token: %w", err)
	}
	if claims.Type != "session" {
		return nil, fmt.Errorf("not a session token")
	}
	return claims, nil
}

// IssueOAuthState creates a short-lived JWT used as the OAuth state
// parameter. The provider name is embedded so the callback can verify it.
func (t *TokenIssuer) IssueOAuthState(provider string) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   "oauth-state",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
			ID:        uuid.New().String(),
		},
		UserID: provider, // provider rides in the UserID field
		Type:   "oauth-state",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign oauth state: %w", err)
	}
	return signed, nil
}

// VerifyOAuthState validates an OAuth state JWT and returns the embedded
// provider name.
func (t *TokenIssuer) VerifyOAuthState(tokenStr string) (provider string, err error) {
	claims, err := t.parse(tokenStr)
	if err != nil {
		return "", fmt.Errorf("invalid oauth state: %w", err)
	}
	if claims.Type != "oauth-state" {
		return "", fmt.Errorf("not an oauth state token")
	}
	return claims.UserID, nil
}

// IssueDraft creates a signed onboarding draft token.
//
// The draft is the caller-held state of the signup wizard: the selected role
// and, after the personal step, the validated personal data. Because it is
// signed, the server can stay stateless between steps without trusting the
// client's accumulated state. A draft is bound to the user it was issued for.
func (t *TokenIssuer) IssueDraft(userID, role string, personal *DraftPersonal) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			ID:        uuid.New().String(),
		},
		UserID:   userID,
		Type:     "onboarding-draft",
		Role:     role,
		Personal: personal,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign onboarding draft: %w", err)
	}
	return signed, nil
}

// VerifyDraft validates an onboarding draft token and checks it belongs to
// the given user, so one user's draft cannot be replayed by another.
func (t *TokenIssuer) VerifyDraft(tokenStr, userID string) (*SessionClaims, error) {
	claims, err := t.parse(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("invalid onboarding draft: %w", err)
	}
	if claims.Type != "onboarding-draft" {
		return nil, fmt.Errorf("not an onboarding draft token")
	}
	if claims.UserID != userID {
		return nil, fmt.Errorf("onboarding draft belongs to a different user")
	}
	return claims, nil
}

func (t *TokenIssuer) parse(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&SessionClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return t.pub, nil
		},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
