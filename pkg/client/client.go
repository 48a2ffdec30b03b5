// Package client provides the Aguayo Go SDK for talking to the marketplace
// HTTP API: accounts, the signup wizard, profiles, the service catalog, and
// publications.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrAlreadyOnboarded is returned by wizard calls once the account owns a
// profile.
var ErrAlreadyOnboarded = errors.New("account already has a profile")

// StepRequired is returned by CompleteSignup when an earlier wizard step is
// missing; Step names the step to return to.
type StepRequired struct {
	Step string
}

func (e *StepRequired) Error() string {
	return "signup prerequisite missing; return to step " + e.Step
}

// Session is the augmented session view returned by GET /api/v1/session.
type Session struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	HasProfile  bool   `json:"has_profile"`
	Role        string `json:"role,omitempty"`
	ProfileID   string `json:"profile_id,omitempty"`
}

// Service is one catalog entry.
type Service struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

// Profile is the marketplace profile record.
type Profile struct {
	ID           string    `json:"id"`
	AuthUserID   string    `json:"auth_user_id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	FullName     string    `json:"full_name"`
	BirthDate    time.Time `json:"birth_date"`
	PhoneNumber  string    `json:"phone_number"`
	Location     string    `json:"location"`
	Bio          string    `json:"bio,omitempty"`
	ProfileImage string    `json:"profile_image"`
	Gallery      []string  `json:"gallery"`
	Services     []Service `json:"services_offered,omitempty"`
}

// Publication is one provider listing.
type Publication struct {
	ID          string   `json:"id"`
	ProviderID  string   `json:"provider_id"`
	ServiceID   string   `json:"service_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       *float64 `json:"price,omitempty"`
	PriceType   string   `json:"price_type"`
	Images      []string `json:"images,omitempty"`
	IsActive    bool     `json:"is_active"`
}

// PersonalData is the payload for the personal wizard step.
type PersonalData struct {
	FullName    string   `json:"full_name"`
	BirthDate   string   `json:"birth_date"`
	PhoneNumber string   `json:"phone_number"`
	Location    string   `json:"location"`
	Bio         string   `json:"bio,omitempty"`
	ServiceIDs  []string `json:"service_ids,omitempty"`
}

// NewPublication is the payload for CreatePublication.
type NewPublication struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ServiceID   string   `json:"service_id"`
	Price       *float64 `json:"price,omitempty"`
	PriceType   string   `json:"price_type"`
	Images      []string `json:"images,omitempty"`
}

// Client is the Aguayo SDK entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *catalogCache

	mu    sync.Mutex
	token string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithToken attaches a pre-obtained session token to every request.
func WithToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// WithCatalogCacheTTL enables in-memory caching of the service catalog with
// the given TTL. The catalog is seeded server-side and changes rarely.
func WithCatalogCacheTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		c.cache = newCatalogCache(ttl)
		return nil
	}
}

// New creates a Client connected to baseURL.
//
//	c, err := client.New("https://api.aguayo.app",
//	    client.WithCatalogCacheTTL(time.Minute),
//	)
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Token returns the current session token, empty before login.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// ─── Accounts ─────────────────────────────────────────────────────────────

// Signup creates a local account and stores the returned session token on
// the client.
func (c *Client) Signup(ctx context.Context, email, password, displayName string) (*Session, error) {
	return c.authCall(ctx, "/api/v1/auth/signup", map[string]string{
		"email": email, "password": password, "display_name": displayName,
	})
}

// Login authenticates with email/password and stores the returned session
// token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	return c.authCall(ctx, "/api/v1/auth/login", map[string]string{
		"email": email, "password": password,
	})
}

func (c *Client) authCall(ctx context.Context, path string, payload map[string]string) (*Session, error) {
	body, err := c.postJSON(ctx, path, payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID          string `json:"id"`
			Email       string `json:"email"`
			DisplayName string `json:"display_name"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}

	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()

	return &Session{
		UserID:      resp.User.ID,
		Email:       resp.User.Email,
		DisplayName: resp.User.DisplayName,
	}, nil
}

// GetSession fetches the augmented session view, including whether the
// account has completed onboarding.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	body, err := c.getJSON(ctx, "/api/v1/session")
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// ─── Signup wizard ────────────────────────────────────────────────────────

// SelectRole starts (or restarts) the signup wizard and returns the draft
// token for the next step. Restarting discards previously submitted personal
// data.
func (c *Client) SelectRole(ctx context.Context, role string) (draft string, err error) {
	body, err := c.postJSON(ctx, "/api/v1/signup/role", map[string]string{"role": role})
	if err != nil {
		return "", err
	}
	return draftFrom(body)
}

// SubmitPersonal submits the personal step and returns the next draft token.
func (c *Client) SubmitPersonal(ctx context.Context, draft string, data PersonalData) (string, error) {
	payload := struct {
		Draft string `json:"draft"`
		PersonalData
	}{Draft: draft, PersonalData: data}

	body, err := c.postJSON(ctx, "/api/v1/signup/personal", payload)
	if err != nil {
		return "", err
	}
	return draftFrom(body)
}

// SignupFiles names the image files submitted with the terminal wizard step.
// ProfileImage is required; IDFront/IDBack are required for providers;
// Gallery is optional and provider-only.
type SignupFiles struct {
	ProfileImage string
	IDFront      string
	IDBack       string
	Gallery      []string
}

// CompleteSignup submits the terminal wizard step with the accumulated draft
// and the named image files, and returns the created profile.
func (c *Client) CompleteSignup(ctx context.Context, draft string, files SignupFiles) (*Profile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("draft", draft); err != nil {
		return nil, err
	}
	singles := map[string]string{
		"profile_image": files.ProfileImage,
		"id_front":      files.IDFront,
		"id_back":       files.IDBack,
	}
	for field, path := range singles {
		if path == "" {
			continue
		}
		if err := attachFile(mw, field, path); err != nil {
			return nil, err
		}
	}
	for _, path := range files.Gallery {
		if err := attachFile(mw, "gallery", path); err != nil {
			return nil, err
		}
	}
	mw.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/signup/complete", &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Profile Profile `json:"profile"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &resp.Profile, nil
}

// SignupState reports the wizard step the caller should resume on.
func (c *Client) SignupState(ctx context.Context, draft string) (step string, hasProfile bool, err error) {
	body, err := c.getJSON(ctx, "/api/v1/signup/state?draft="+draft)
	if err != nil {
		return "", false, err
	}
	var resp struct {
		Step       string `json:"step"`
		HasProfile bool   `json:"has_profile"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false, fmt.Errorf("decode state: %w", err)
	}
	return resp.Step, resp.HasProfile, nil
}

// ─── Catalog, profiles, publications ──────────────────────────────────────

// ListServices returns the service catalog, from cache when enabled.
func (c *Client) ListServices(ctx context.Context) ([]Service, error) {
	if c.cache != nil {
		if services, ok := c.cache.get(); ok {
			return services, nil
		}
	}

	body, err := c.getJSON(ctx, "/api/v1/services")
	if err != nil {
		return nil, err
	}
	var resp struct {
		Services []Service `json:"services"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}

	if c.cache != nil {
		c.cache.set(resp.Services)
	}
	return resp.Services, nil
}

// GetProfile fetches the caller's own profile by auth user ID.
func (c *Client) GetProfile(ctx context.Context, authUserID string) (*Profile, error) {
	body, err := c.getJSON(ctx, "/api/v1/profiles/"+authUserID)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Profile Profile `json:"profile"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &resp.Profile, nil
}

// CreatePublication posts a new listing for the calling provider.
func (c *Client) CreatePublication(ctx context.Context, pub NewPublication) (*Publication, error) {
	body, err := c.postJSON(ctx, "/api/v1/publications", pub)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Publication Publication `json:"publication"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode publication: %w", err)
	}
	return &resp.Publication, nil
}

// ListPublications returns listings, optionally filtered by provider.
func (c *Client) ListPublications(ctx context.Context, providerID string) ([]Publication, error) {
	path := "/api/v1/publications"
	if providerID != "" {
		path += "?provider_id=" + providerID
	}
	body, err := c.getJSON(ctx, path)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Publications []Publication `json:"publications"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode publications: %w", err)
	}
	return resp.Publications, nil
}

// DeletePublication soft-deletes one of the caller's listings.
func (c *Client) DeletePublication(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/v1/publications/"+id, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	_, err = c.do(req)
	return err
}

// ─── HTTP plumbing ────────────────────────────────────────────────────────

func draftFrom(body []byte) (string, error) {
	var resp struct {
		Draft string `json:"draft"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode draft response: %w", err)
	}
	return resp.Draft, nil
}

func attachFile(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	fw, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, f)
	return err
}

func (c *Client) getJSON(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

// do executes an HTTP request, attaching the session token if present, and
// translates the API's error taxonomy into SDK errors.
func (c *Client) do(req *http.Request) ([]byte, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 300 {
		return body, nil
	}

	var apiErr struct {
		Error string `json:"error"`
		Field string `json:"field"`
		Step  string `json:"step"`
	}
	_ = json.Unmarshal(body, &apiErr)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("unauthorized: %s", apiErr.Error)
	case http.StatusForbidden:
		return nil, fmt.Errorf("forbidden: %s", apiErr.Error)
	case http.StatusNotFound:
		return nil, fmt.Errorf("not found: %s", req.URL.Path)
	case http.StatusConflict:
		if apiErr.Step != "" {
			return nil, &StepRequired{Step: apiErr.Step}
		}
		return nil, ErrAlreadyOnboarded
	default:
		if apiErr.Field != "" {
			return nil, fmt.Errorf("invalid %s: %s", apiErr.Field, apiErr.Error)
		}
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}
}

// ─── catalog cache ────────────────────────────────────────────────────────

type catalogCache struct {
	mu        sync.RWMutex
	services  []Service
	expiresAt time.Time
	ttl       time.Duration
}

func newCatalogCache(ttl time.Duration) *catalogCache {
	return &catalogCache{ttl: ttl}
}

func (cc *catalogCache) get() ([]Service, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	if cc.services == nil || time.Now().After(cc.expiresAt) {
		return nil, false
	}
	return cc.services, true
}

func (cc *catalogCache) set(services []Service) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.services = services
	cc.expiresAt = time.Now().Add(cc.ttl)
}
