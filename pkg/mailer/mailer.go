package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"github.com/wholesail/wholesail/pkg/logger"
)

//go:generate mockgen -destination=../../internal/domain/mocks/mock_sender.go -package=mocks github.com/wholesail/wholesail/pkg/mailer Sender

const (
	ProviderSMTP     = "smtp"
	ProviderSES      = "ses"
	ProviderPostmark = "postmark"
	ProviderResend   = "resend"
	ProviderLog      = "log"
)

var ErrInvalidMessage = errors.New("invalid message")

// Message is a single outbound email. HTML is required; Text is the optional plain alternative.
type Message struct {
	FromEmail string
	FromName  string
	To        string
	Subject   string
	HTML      string
	Text      string
	Tag       string
}

func (m Message) Validate() error {
	switch {
	case !govalidator.IsEmail(m.FromEmail):
		return fmt.Errorf("%w: from address %q", ErrInvalidMessage, m.FromEmail)
	case !govalidator.IsEmail(m.To):
		return fmt.Errorf("%w: recipient %q", ErrInvalidMessage, m.To)
	case strings.TrimSpace(m.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	case m.HTML == "":
		return fmt.Errorf("%w: html body is required", ErrInvalidMessage)
	}
	return nil
}

// From renders the RFC 5322 display form used by the HTTP API providers.
func (m Message) From() string {
	if m.FromName == "" {
		return m.FromEmail
	}
	return fmt.Sprintf("%q <%s>", m.FromName, m.FromEmail)
}

// Sender delivers a message and returns the provider's message id when one is available.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Config selects and configures a delivery provider.
type Config struct {
	Provider string
	Timeout  time.Duration

	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPTLSPolicy string

	SESRegion    string
	SESAccessKey string
	SESSecretKey string

	PostmarkServerToken  string
	PostmarkAccountToken string

	ResendAPIKey string
}

// New builds the Sender named by cfg.Provider.
func New(cfg Config, log logger.Logger) (Sender, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderSMTP:
		return NewSMTPSender(cfg)
	case ProviderSES:
		return NewSESSender(cfg)
	case ProviderPostmark:
		return NewPostmarkSender(cfg)
	case ProviderResend:
		return NewResendSender(cfg)
	case ProviderLog, "":
		return NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.Provider)
	}
}
