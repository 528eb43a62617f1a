package mailer

import (
	"context"
	"fmt"

	mail "github.com/wneessen/go-mail"

	"github.com/eaeoz/shortcuts-app/internal/core/port"
	"github.com/eaeoz/shortcuts-app/internal/infra/config"
)

// SMTPSender delivers email over SMTP using the configured credentials.
type SMTPSender struct {
	cfg  config.SMTPSettings
	from string
}

// NewSMTPSender constructs an SMTP-backed sender.
func NewSMTPSender(cfg config.SMTPSettings) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}

	from := cfg.From
	if from == "" {
		from = cfg.User
	}

	return &SMTPSender{cfg: cfg, from: from}, nil
}

// SendEmail delivers a single message, honouring the caller's context.
func (s *SMTPSender) SendEmail(ctx context.Context, msg port.EmailMessage) error {
	m := mail.NewMsg()
	if err := m.FromFormat("Shortcuts App", s.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.BodyText)
	if msg.BodyHTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.BodyHTML)
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.User),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	return nil
}
