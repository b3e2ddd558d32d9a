package mailer

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"
)

type PostmarkSender struct {
	send func(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

func NewPostmarkSender(cfg Config) (*PostmarkSender, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("postmark server token is required")
	}
	client := postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken)
	return &PostmarkSender{send: client.SendEmail}, nil
}

func (s *PostmarkSender) Send(ctx context.Context, m Message) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}

	resp, err := s.send(ctx, postmark.Email{
		From:       m.From(),
		To:         m.To,
		Subject:    m.Subject,
		Tag:        m.Tag,
		HTMLBody:   m.HTML,
		TextBody:   m.Text,
		TrackOpens: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send email via postmark: %w", err)
	}
	if resp.ErrorCode > 0 {
		return "", fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
	}
	return resp.MessageID, nil
}
