package mailer

import (
	"context"

	"github.com/google/uuid"

	"github.com/wholesail/wholesail/pkg/logger"
)

// LogSender writes messages to the log instead of delivering them. Development only.
type LogSender struct {
	logger logger.Logger
}

func NewLogSender(l logger.Logger) *LogSender {
	return &LogSender{logger: l}
}

func (s *LogSender) Send(ctx context.Context, m Message) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	id := "log-" + uuid.NewString()
	s.logger.WithFields(map[string]interface{}{
		"message_id": id,
		"from":       m.From(),
		"to":         m.To,
		"subject":    m.Subject,
		"html_bytes": len(m.HTML),
		"tag":        m.Tag,
	}).Info("Email not delivered (log provider)")
	return id, nil
}
