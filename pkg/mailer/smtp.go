package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

type SMTPSender struct {
	host    string
	options []mail.Option
}

func NewSMTPSender(cfg Config) (*SMTPSender, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("smtp host is required")
	}

	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	options := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(tlsPolicy(cfg.SMTPTLSPolicy)),
		mail.WithTimeout(timeout),
	}
	// unauthenticated relays are allowed
	if cfg.SMTPUsername != "" && cfg.SMTPPassword != "" {
		options = append(options,
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
		)
	}

	return &SMTPSender{host: cfg.SMTPHost, options: options}, nil
}

func tlsPolicy(name string) mail.TLSPolicy {
	switch strings.ToLower(name) {
	case "mandatory":
		return mail.TLSMandatory
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}

	msg := mail.NewMsg(mail.WithNoDefaultUserAgent())
	if err := msg.FromFormat(m.FromName, m.FromEmail); err != nil {
		return "", fmt.Errorf("failed to set email from address: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return "", fmt.Errorf("failed to set email recipient: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextHTML, m.HTML)
	if m.Text != "" {
		msg.AddAlternativeString(mail.TypeTextPlain, m.Text)
	}

	client, err := mail.NewClient(s.host, s.options...)
	if err != nil {
		return "", fmt.Errorf("failed to create SMTP client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("failed to send email via smtp: %w", err)
	}
	return msg.GetMessageID(), nil
}
