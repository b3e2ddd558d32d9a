package mailer

import (
	"context"
	"fmt"

	"github.com/resendlabs/resend-go"
)

type ResendSender struct {
	send func(req *resend.SendEmailRequest) (string, error)
}

func NewResendSender(cfg Config) (*ResendSender, error) {
	if cfg.ResendAPIKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	client := resend.NewClient(cfg.ResendAPIKey)
	return &ResendSender{
		send: func(req *resend.SendEmailRequest) (string, error) {
			res, err := client.Emails.Send(req)
			if err != nil {
				return "", err
			}
			return res.Id, nil
		},
	}, nil
}

// Send does not observe ctx cancellation mid-request; the client has no context-aware call.
func (s *ResendSender) Send(ctx context.Context, m Message) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id, err := s.send(&resend.SendEmailRequest{
		From:    m.From(),
		To:      []string{m.To},
		Subject: m.Subject,
		Html:    m.HTML,
		Text:    m.Text,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send email via resend: %w", err)
	}
	return id, nil
}
