package port

import "context"

// EmailMessage carries a rendered outbound email.
type EmailMessage struct {
	To       string
	Subject  string
	BodyHTML string
	BodyText string
}

// EmailSender delivers a single message. Implementations are expected to be
// safe for concurrent use; callers treat delivery as best-effort.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}
