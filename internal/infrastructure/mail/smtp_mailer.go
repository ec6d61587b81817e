package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
)

// Config holds SMTP settings.
type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	ClientURL string
}

// SMTPMailer delivers account emails through an SMTP relay.
type SMTPMailer struct {
	client *gomail.Client
	from   string
	url    string
}

var _ ports.Mailer = (*SMTPMailer)(nil)

func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From, url: cfg.ClientURL}, nil
}

func (m *SMTPMailer) SendVerificationCode(ctx context.Context, to, name, code string) error {
	return m.send(ctx, to, kindVerificationCode, templateData{Name: name, Code: code, TTLMinutes: codeTTLMinutes()})
}

func (m *SMTPMailer) SendPasswordResetCode(ctx context.Context, to, code string) error {
	return m.send(ctx, to, kindPasswordResetCode, templateData{Code: code, TTLMinutes: codeTTLMinutes()})
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, to, name string) error {
	return m.send(ctx, to, kindWelcome, templateData{Name: name, ClientURL: m.url})
}

func (m *SMTPMailer) SendPasswordChanged(ctx context.Context, to, name string) error {
	return m.send(ctx, to, kindPasswordChanged, templateData{Name: name})
}

func (m *SMTPMailer) send(ctx context.Context, to string, kind messageKind, data templateData) error {
	body, err := render(kind, data)
	if err != nil {
		return err
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(body.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, body.Text)
	msg.AddAlternativeString(gomail.TypeTextHTML, body.HTML)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail send: %w", err)
	}
	return nil
}

func codeTTLMinutes() int {
	return int(domain.CodeTTL.Minutes())
}
