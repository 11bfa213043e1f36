package notifications

import (
	"context"

	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
)

// Email is an outbound message.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers transactional email. The worker binary picks the
// implementation; tests and local runs use the log mailer.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// LogMailer writes the email to the structured log instead of sending it.
type LogMailer struct {
	logg *logger.Logger
}

func NewLogMailer(logg *logger.Logger) *LogMailer {
	return &LogMailer{logg: logg}
}

func (m *LogMailer) Send(ctx context.Context, email Email) error {
	if m.logg == nil {
		return nil
	}
	logCtx := m.logg.WithFields(ctx, map[string]any{
		"to":      email.To,
		"subject": email.Subject,
	})
	m.logg.Info(logCtx, "email delivered to log sink")
	return nil
}
