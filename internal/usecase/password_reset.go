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
	"github.com/eaeoz/shortcuts-app/internal/infra/config"
	"github.com/eaeoz/shortcuts-app/internal/infra/logger"
	"github.com/eaeoz/shortcuts-app/internal/infra/mailer"
	"github.com/eaeoz/shortcuts-app/internal/infra/security"
	"github.com/eaeoz/shortcuts-app/internal/repository"
)

// PasswordResetService drives the forgotten-password flow: a one-time code
// proves control of the mailbox, then a single atomic step replaces the
// password. No session is issued on success.
type PasswordResetService struct {
	users  port.UserRepository
	codes  port.PendingCodeStore
	mail   *mailer.CodeMailer
	policy config.VerificationSettings
	logger *zap.Logger
	now    func() time.Time
}

func NewPasswordResetService(
	users port.UserRepository,
	codes port.PendingCodeStore,
	mail *mailer.CodeMailer,
	policy config.VerificationSettings,
	log *zap.Logger,
) *PasswordResetService {
	return &PasswordResetService{
		users:  users,
		codes:  codes,
		mail:   mail,
		policy: policy,
		logger: log.Named("password_reset"),
		now:    time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *PasswordResetService) WithClock(clock func() time.Time) *PasswordResetService {
	s.now = clock
	return s
}

// RequestReset stages a reset code for the account, if one exists. The
// result is indistinguishable for known and unknown emails so the endpoint
// cannot be used to enumerate accounts.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("reset requested for unknown email",
				zap.String("email", logger.MaskEmail(email)))
			return nil
		}
		return fmt.Errorf("look up user: %w", err)
	}

	code, err := security.GenerateNumericCode(s.policy.ResetCodeDigits)
	if err != nil {
		return fmt.Errorf("generate reset code: %w", err)
	}

	now := s.now()
	record := domain.PendingCode{
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.policy.CodeTTL),
	}
	if err := s.codes.Put(ctx, domain.PurposePasswordReset, email, record); err != nil {
		return fmt.Errorf("stage password reset: %w", err)
	}

	s.mail.SendResetCode(email, code, s.policy.CodeTTL, s.policy.MaxAttempts)

	s.logger.Info("password reset staged",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(email)))
	return nil
}

// VerifyReset checks the submitted code and, on success, replaces the
// account password and destroys the pending record. Mismatches burn
// attempts under the same ceiling as registration.
func (s *PasswordResetService) VerifyReset(ctx context.Context, email, code, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	if len(newPassword) < s.policy.MinPasswordLength {
		return ErrPasswordTooShort
	}

	record, err := s.codes.Get(ctx, domain.PurposePasswordReset, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCodeNotFound
		}
		return fmt.Errorf("load pending reset: %w", err)
	}

	if record.Attempts >= s.policy.MaxAttempts {
		if err := s.codes.Delete(ctx, domain.PurposePasswordReset, email); err != nil {
			s.logger.Warn("delete exhausted reset code", zap.Error(err))
		}
		return ErrTooManyAttempts
	}

	if record.Code != code {
		attempts, err := s.codes.IncrementAttempts(ctx, domain.PurposePasswordReset, email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrCodeNotFound
			}
			return fmt.Errorf("count failed attempt: %w", err)
		}
		remaining := s.policy.MaxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		return &InvalidCodeError{Remaining: remaining}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("look up user: %w", err)
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.codes.Delete(ctx, domain.PurposePasswordReset, email); err != nil {
		s.logger.Warn("delete consumed reset code", zap.Error(err))
	}

	s.logger.Info("password reset completed",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(email)))
	return nil
}
