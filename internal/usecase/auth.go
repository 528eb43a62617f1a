package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eaeoz/shortcuts-app/internal/core/domain"
	"github.com/eaeoz/shortcuts-app/internal/core/port"
	"github.com/eaeoz/shortcuts-app/internal/infra/logger"
	"github.com/eaeoz/shortcuts-app/internal/infra/security"
	"github.com/eaeoz/shortcuts-app/internal/repository"
)

// AuthService handles password login and session-token introspection.
type AuthService struct {
	users    port.UserRepository
	sessions *security.SessionIssuer
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(users port.UserRepository, sessions *security.SessionIssuer, log *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		logger:   log.Named("auth"),
		now:      time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	s.now = clock
	return s
}

// Login verifies the credentials and returns the user together with a fresh
// session token. Unknown emails and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("look up user: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, "", fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}

	if !user.IsVerified {
		return nil, "", ErrAccountUnverified
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("stamp last login", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}

	token, _, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue session: %w", err)
	}

	s.logger.Info("login succeeded",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(email)))
	return user, token, nil
}

// CurrentUser loads the account behind an authenticated session.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}
	return user, nil
}

// ExchangeToken validates a bearer token and returns its user. It backs the
// cookie-exchange endpoint used after provider redirects.
func (s *AuthService) ExchangeToken(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.sessions.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("verify session token: %w", err)
	}
	return s.CurrentUser(ctx, userID)
}
