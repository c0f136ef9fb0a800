// Package auth implements user authentication: JWT access tokens,
// rotating refresh tokens, and the HTTP middleware that resolves the
// current user for request handlers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/parley/internal/observability"
	"github.com/haasonsaas/parley/pkg/models"
)

var (
	// ErrAuthDisabled is returned when no JWT secret is configured.
	ErrAuthDisabled = errors.New("authentication is disabled")

	// ErrInvalidToken is returned for expired, malformed, or forged tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidCredentials is returned when email or password do not match.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrEmailTaken is returned when registering an already-known email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUserNotFound is returned when a user lookup finds nothing.
	ErrUserNotFound = errors.New("user not found")
)

// TokenPair is the result of a successful login: a short-lived access
// token plus a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Service ties together the JWT signer, the user store, and the refresh
// token store.
type Service struct {
	jwt           *JWTService
	users         UserStore
	tokens        RefreshTokenStore
	refreshExpiry time.Duration
	logger        *observability.Logger
}

// NewService builds the auth service. An empty secret disables
// authentication entirely: every operation returns ErrAuthDisabled and
// the middleware falls back to the default user.
func NewService(secret string, accessExpiry, refreshExpiry time.Duration, users UserStore, tokens RefreshTokenStore, logger *observability.Logger) *Service {
	return &Service{
		jwt:           NewJWTService(secret, accessExpiry),
		users:         users,
		tokens:        tokens,
		refreshExpiry: refreshExpiry,
		logger:        logger,
	}
}

// Enabled reports whether a signing secret is configured.
func (s *Service) Enabled() bool { return s.jwt.Enabled() }

// Register creates a new user account.
func (s *Service) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	user, err := s.users.Create(ctx, email, password, name)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user registered", "email", email)
	return user, nil
}

// Login authenticates by email and password and issues a token pair. The
// refresh token is stored hashed; the raw value is only ever returned to
// the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Warn(ctx, "login failed", "email", email)
		return nil, ErrInvalidCredentials
	}

	access, err := s.jwt.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	refresh, err := s.tokens.Issue(ctx, user.ID, s.refreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("issuing refresh token: %w", err)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return &TokenPair{AccessToken: access, TokenType: "bearer", RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The used
// refresh token is revoked and a replacement issued, so each refresh
// token works exactly once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}

	userID, err := s.tokens.Validate(ctx, refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		s.logger.Warn(ctx, "failed to revoke used refresh token", "error", err)
	}

	access, err := s.jwt.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	next, err := s.tokens.Issue(ctx, user.ID, s.refreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("issuing refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, TokenType: "bearer", RefreshToken: next}, nil
}

// Logout revokes a refresh token. Revocation failures are swallowed so
// the endpoint cannot be used to probe which tokens exist.
func (s *Service) Logout(ctx context.Context, refreshToken string) {
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		s.logger.Debug(ctx, "logout revocation failed", "error", err)
	}
}

// LogoutAll revokes every refresh token belonging to the user.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	return s.tokens.RevokeAll(ctx, userID)
}

// UserFromToken validates an access token and loads the user it names.
func (s *Service) UserFromToken(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// UserIDFromToken validates an access token without touching the user
// store. Chat handlers only need the subject, not the full profile.
func (s *Service) UserIDFromToken(token string) (string, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
