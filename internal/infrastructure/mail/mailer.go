// Package mail sends the marketplace's transactional email.
package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/b2bmarket/backend/internal/infrastructure/config"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Email is one rendered message
type Email struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers email
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// NewMailer returns the mailer selected by cfg.Driver
func NewMailer(cfg config.MailConfig, logger *zap.Logger) (Mailer, error) {
	switch cfg.Driver {
	case "smtp":
		return NewSMTPMailer(cfg, logger)
	case "log", "":
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("unsupported mail driver %q", cfg.Driver)
	}
}

// SMTPMailer sends through an SMTP relay
type SMTPMailer struct {
	client *gomail.Client
	from   string
	logger *zap.Logger
}

func tlsPolicy(s string) gomail.TLSPolicy {
	switch strings.ToLower(s) {
	case "none":
		return gomail.NoTLS
	case "opportunistic":
		return gomail.TLSOpportunistic
	default:
		return gomail.TLSMandatory
	}
}

// NewSMTPMailer creates an SMTP mailer. Authentication is used when a
// username is configured.
func NewSMTPMailer(cfg config.MailConfig, logger *zap.Logger) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(tlsPolicy(cfg.TLS)),
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
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From, logger: logger}, nil
}

func (m *SMTPMailer) build(email Email) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(email.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, email.Text)
	if email.HTML != "" {
		msg.AddAlternativeString(gomail.TypeTextHTML, email.HTML)
	}
	return msg, nil
}

// Send implements Mailer
func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	if len(email.To) == 0 {
		return nil
	}
	msg, err := m.build(email)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	m.logger.Debug("Email sent",
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject),
	)
	return nil
}

// LogMailer writes emails to the log instead of sending them
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a log mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send implements Mailer
func (m *LogMailer) Send(_ context.Context, email Email) error {
	m.logger.Info("Email (log driver)",
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("body", email.Text),
	)
	return nil
}
