package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrWeakPassword is returned by Signup when the password fails the
// minimum-length policy.
var ErrWeakPassword = errors.New("password must be at least 8 characters")

// userRepo is the storage interface consumed by UserService.
type userRepo interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByOAuth(ctx context.Context, provider, providerID string) (*User, error)
	LinkOAuth(ctx context.Context, userID uuid.UUID, provider, providerID string) error
	UpdateDisplay(ctx context.Context, userID uuid.UUID, displayName, avatarURL string) error
}

// UserService implements business logic for account management.
type UserService struct {
	repo   userRepo
	logger *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo userRepo, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

// Signup creates a new account with email/password authentication.
func (s *UserService) Signup(ctx context.Context, emailAddr, password, displayName string) (*User, error) {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if emailAddr == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if displayName == "" {
		displayName = emailAddr[:strings.Index(emailAddr, "@")+1]
		displayName = strings.TrimSuffix(displayName, "@")
	}

	u := &User{
		Email:        emailAddr,
		PasswordHash: string(hash),
		DisplayName:  displayName,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login verifies email/password credentials and returns the user on success.
func (s *UserService) Login(ctx context.Context, emailAddr, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(emailAddr)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if u.PasswordHash == "" {
		return nil, fmt.Errorf("account uses OAuth login; password not set")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	return u, nil
}

// GetOrCreateFromOAuth resolves a federated login to a local account.
//
// Resolution order: existing OAuth link → existing account with the same
// email (link added) → new account. The bool result reports whether a new
// account was created.
func (s *UserService) GetOrCreateFromOAuth(ctx context.Context, provider, providerID, emailAddr, displayName, avatarURL string) (*User, bool, error) {
	if providerID == "" {
		return nil, false, fmt.Errorf("oauth provider returned no stable ID")
	}
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))

	u, err := s.repo.GetByOAuth(ctx, provider, providerID)
	if err == nil {
		s.refreshDisplay(ctx, u, displayName, avatarURL)
		return u, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("lookup oauth account: %w", err)
	}

	if emailAddr != "" {
		u, err = s.repo.GetByEmail(ctx, emailAddr)
		if err == nil {
			if linkErr := s.repo.LinkOAuth(ctx, u.ID, provider, providerID); linkErr != nil {
				return nil, false, fmt.Errorf("link oauth account: %w", linkErr)
			}
			return u, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, fmt.Errorf("lookup user by email: %w", err)
		}
	}

	if displayName == "" {
		displayName = provider + " user"
	}
	u = &User{
		Email:       emailAddr,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, false, fmt.Errorf("create oauth user: %w", err)
	}
	if err := s.repo.LinkOAuth(ctx, u.ID, provider, providerID); err != nil {
		return nil, false, fmt.Errorf("link oauth account: %w", err)
	}

	s.logger.Info("created account from oauth login",
		zap.String("provider", provider),
		zap.String("user_id", u.ID.String()),
	)
	return u, true, nil
}

// refreshDisplay picks up display-name and avatar changes the user made at
// the provider since the account was linked. Best effort: a failed refresh
// never blocks login.
func (s *UserService) refreshDisplay(ctx context.Context, u *User, displayName, avatarURL string) {
	if displayName == "" {
		displayName = u.DisplayName
	}
	if avatarURL == "" {
		avatarURL = u.AvatarURL
	}
	if displayName == u.DisplayName && avatarURL == u.AvatarURL {
		return
	}
	if err := s.repo.UpdateDisplay(ctx, u.ID, displayName, avatarURL); err != nil {
		s.logger.Warn("refresh oauth display failed", zap.Error(err))
		return
	}
	u.DisplayName = displayName
	u.AvatarURL = avatarURL
}
