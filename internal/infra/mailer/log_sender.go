package mailer

import (
	"context"

	"go.uber.org/zap"

	"github.com/eaeoz/shortcuts-app/internal/core/port"
	"github.com/eaeoz/shortcuts-app/internal/infra/logger"
)

// LogSender records outbound email through structured logging instead of
// delivering it. Used when SMTP is not configured (development, tests).
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a sender backed by structured logging.
func NewLogSender(log *zap.Logger) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{logger: log}
}

func (s *LogSender) SendEmail(_ context.Context, msg port.EmailMessage) error {
	s.logger.Info("email delivery skipped, smtp not configured",
		zap.String("to", logger.MaskEmail(msg.To)),
		zap.String("subject", msg.Subject),
	)
	return nil
}
