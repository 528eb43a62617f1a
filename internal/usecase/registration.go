package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eaeoz/shortcuts-app/internal/core/domain"
	"github.com/eaeoz/shortcuts-app/internal/core/port"
	"github.com/eaeoz/shortcuts-app/internal/infra/config"
	"github.com/eaeoz/shortcuts-app/internal/infra/logger"
	"github.com/eaeoz/shortcuts-app/internal/infra/mailer"
	"github.com/eaeoz/shortcuts-app/internal/infra/security"
	"github.com/eaeoz/shortcuts-app/internal/repository"
)

// RegistrationService drives the two-step registration flow: stage a
// candidate account behind a one-time code, then mint the account once the
// code is proven.
type RegistrationService struct {
	users    port.UserRepository
	codes    port.PendingCodeStore
	sessions *security.SessionIssuer
	mail     *mailer.CodeMailer
	policy   config.VerificationSettings
	logger   *zap.Logger
	now      func() time.Time
}

func NewRegistrationService(
	users port.UserRepository,
	codes port.PendingCodeStore,
	sessions *security.SessionIssuer,
	mail *mailer.CodeMailer,
	policy config.VerificationSettings,
	log *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		users:    users,
		codes:    codes,
		sessions: sessions,
		mail:     mail,
		policy:   policy,
		logger:   log.Named("registration"),
		now:      time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *RegistrationService) WithClock(clock func() time.Time) *RegistrationService {
	s.now = clock
	return s
}

// StartRegistration validates the candidate account, stages it behind a
// freshly generated code, and dispatches the code by email. A repeated call
// for the same email replaces the previous pending record, which also resets
// its attempt counter.
func (s *RegistrationService) StartRegistration(ctx context.Context, username, email, password string) error {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if len(username) < s.policy.MinUsernameLength {
		return fmt.Errorf("%w: username must be at least %d characters", ErrInvalidInput, s.policy.MinUsernameLength)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if len(password) < s.policy.MinPasswordLength {
		return ErrPasswordTooShort
	}

	existing, err := s.users.GetByUsernameOrEmail(ctx, username, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return ErrUserExists
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	code, err := security.GenerateNumericCode(s.policy.RegistrationCodeDigits)
	if err != nil {
		return fmt.Errorf("generate verification code: %w", err)
	}

	now := s.now()
	record := domain.PendingCode{
		Code:         code,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.policy.CodeTTL),
	}
	if err := s.codes.Put(ctx, domain.PurposeRegistration, email, record); err != nil {
		return fmt.Errorf("stage registration: %w", err)
	}

	s.mail.SendVerificationCode(email, username, code, s.policy.CodeTTL, s.policy.MaxAttempts)

	s.logger.Info("registration staged",
		zap.String("email", logger.MaskEmail(email)),
		zap.Time("expires_at", record.ExpiresAt))
	return nil
}

// VerifyRegistration checks the submitted code against the pending record.
// On success it creates the verified account, destroys the record, and
// returns the new user with a fresh session token. A mismatch burns one
// attempt; exhausting the ceiling destroys the record.
func (s *RegistrationService) VerifyRegistration(ctx context.Context, email, code string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	record, err := s.codes.Get(ctx, domain.PurposeRegistration, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrCodeNotFound
		}
		return nil, "", fmt.Errorf("load pending registration: %w", err)
	}

	if record.Attempts >= s.policy.MaxAttempts {
		if err := s.codes.Delete(ctx, domain.PurposeRegistration, email); err != nil {
			s.logger.Warn("delete exhausted registration code", zap.Error(err))
		}
		return nil, "", ErrTooManyAttempts
	}

	if record.Code != code {
		attempts, err := s.codes.IncrementAttempts(ctx, domain.PurposeRegistration, email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, "", ErrCodeNotFound
			}
			return nil, "", fmt.Errorf("count failed attempt: %w", err)
		}
		remaining := s.policy.MaxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		return nil, "", &InvalidCodeError{Remaining: remaining}
	}

	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     record.Username,
		Email:        email,
		PasswordHash: record.PasswordHash,
		Role:         domain.RoleUser,
		IsVerified:   true,
		CreatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	if err := s.codes.Delete(ctx, domain.PurposeRegistration, email); err != nil {
		s.logger.Warn("delete consumed registration code", zap.Error(err))
	}

	token, _, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue session: %w", err)
	}

	s.logger.Info("registration verified",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(email)))
	return &user, token, nil
}
