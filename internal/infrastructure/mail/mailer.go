// Package mail implements the Mailer port. Actual delivery is an external
// collaborator; the log mailer records the outbound message and is the
// default in development and tests.
package mail

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/shogunlabs/reports-api/internal/core/ports"
)

// LogMailer writes outbound mail to the structured log instead of
// delivering it.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, mail ports.Mail) error {
	m.log.Info().
		Str("to", mail.To).
		Str("subject", mail.Subject).
		Int("body_bytes", len(mail.Body)).
		Msg("outbound mail")
	return nil
}
