package mail

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/signatech/account-service/internal/core/ports"
)

// LogMailer writes emails to the log instead of sending them. It is used
// when no SMTP host is configured.
type LogMailer struct {
	log zerolog.Logger
}

var _ ports.Mailer = (*LogMailer)(nil)

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log.With().Str("component", "log_mailer").Logger()}
}

func (m *LogMailer) SendVerificationCode(_ context.Context, to, name, code string) error {
	return m.write(to, kindVerificationCode, templateData{Name: name, Code: code, TTLMinutes: codeTTLMinutes()})
}

func (m *LogMailer) SendPasswordResetCode(_ context.Context, to, code string) error {
	return m.write(to, kindPasswordResetCode, templateData{Code: code, TTLMinutes: codeTTLMinutes()})
}

func (m *LogMailer) SendWelcome(_ context.Context, to, name string) error {
	return m.write(to, kindWelcome, templateData{Name: name})
}

func (m *LogMailer) SendPasswordChanged(_ context.Context, to, name string) error {
	return m.write(to, kindPasswordChanged, templateData{Name: name})
}

func (m *LogMailer) write(to string, kind messageKind, data templateData) error {
	body, err := render(kind, data)
	if err != nil {
		return err
	}
	m.log.Info().
		Str("to", to).
		Str("subject", body.Subject).
		Str("code", data.Code).
		Msg("email not sent, no smtp host configured")
	return nil
}
