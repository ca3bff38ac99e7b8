package notify

import (
	"context"

	"github.com/diewo77/go-timesheets/internal/logger"
)

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Email struct {
	From        string
	To          []string
	CC          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers an email. Implementations must be safe for concurrent
// use.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// LogMailer logs emails instead of delivering them.
type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{log: log.Named("mailer")}
}

func (m *LogMailer) Send(_ context.Context, e Email) error {
	names := make([]string, len(e.Attachments))
	for i, a := range e.Attachments {
		names[i] = a.Filename
	}
	m.log.Infow("email",
		"from", e.From,
		"to", e.To,
		"cc", e.CC,
		"subject", e.Subject,
		"attachments", names,
	)
	return nil
}
