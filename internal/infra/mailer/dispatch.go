package mailer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eaeoz/shortcuts-app/internal/core/port"
	"github.com/eaeoz/shortcuts-app/internal/infra/logger"
)

const dispatchTimeout = 15 * time.Second

// CodeMailer renders and dispatches one-time code emails. Delivery is
// best-effort and fire-and-forget: each send runs on its own goroutine with
// its own timeout, and failures are logged, never returned to the flow that
// triggered them.
type CodeMailer struct {
	sender port.EmailSender
	logger *zap.Logger
}

// NewCodeMailer constructs a CodeMailer over the given sender.
func NewCodeMailer(sender port.EmailSender, log *zap.Logger) *CodeMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &CodeMailer{sender: sender, logger: log}
}

// SendVerificationCode dispatches the registration verification email.
func (m *CodeMailer) SendVerificationCode(email, username, code string, ttl time.Duration, attempts int) {
	msg := port.EmailMessage{
		To:       email,
		Subject:  "Email Verification Code",
		BodyText: verificationText(username, code, ttl, attempts),
		BodyHTML: codeBodyHTML("Email Verification", "Please use the code below to verify your email address:", code, ttl, attempts),
	}
	m.dispatch(msg)
}

// SendResetCode dispatches the password reset email.
func (m *CodeMailer) SendResetCode(email, code string, ttl time.Duration, attempts int) {
	msg := port.EmailMessage{
		To:       email,
		Subject:  "Password Reset Code",
		BodyText: resetText(code, ttl, attempts),
		BodyHTML: codeBodyHTML("Password Reset Request", "We received a request to reset your password. Use the code below to proceed:", code, ttl, attempts),
	}
	m.dispatch(msg)
}

func (m *CodeMailer) dispatch(msg port.EmailMessage) {
	if m.sender == nil {
		return
	}

	// Detached from the request context so a stalled mail channel cannot
	// block or fail the outer flow.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		if err := m.sender.SendEmail(ctx, msg); err != nil {
			m.logger.Warn("email delivery failed",
				zap.String("to", logger.MaskEmail(msg.To)),
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
			return
		}

		m.logger.Info("email delivered",
			zap.String("to", logger.MaskEmail(msg.To)),
			zap.String("subject", msg.Subject),
		)
	}()
}

func verificationText(username, code string, ttl time.Duration, attempts int) string {
	return fmt.Sprintf(`Welcome to Shortcuts!

Hello %s,

Thank you for signing up! Your email verification code is:

%s

This code is valid for %d minutes.
You have %d attempts to enter the correct code.

If you didn't create an account, please ignore this email.
`, username, code, int(ttl.Minutes()), attempts)
}

func resetText(code string, ttl time.Duration, attempts int) string {
	return fmt.Sprintf(`Password Reset Request

You requested to reset your password for Shortcuts App.

Your reset code: %s

This code is valid for %d minutes.
You have %d attempts to enter the correct code.

If you didn't request this, please ignore this email.
`, code, int(ttl.Minutes()), attempts)
}

func codeBodyHTML(title, intro, code string, ttl time.Duration, attempts int) string {
	return fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; color: #333;">
<h2>%s</h2>
<p>%s</p>
<div style="font-size: 32px; font-weight: bold; letter-spacing: 8px; padding: 20px; text-align: center;">%s</div>
<p>This code is valid for %d minutes. You have %d attempts to enter the correct code. Never share this code with anyone.</p>
<p style="color: #6b7280; font-size: 13px;">This is an automated message from Shortcuts App. Do not reply to this email.</p>
</body></html>`, title, intro, code, int(ttl.Minutes()), attempts)
}
