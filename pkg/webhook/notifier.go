// Package webhook delivers signed event notifications in the Standard Webhooks format.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	svix "github.com/standard-webhooks/standard-webhooks/libraries/go"

	"github.com/wholesail/wholesail/pkg/logger"
	"github.com/wholesail/wholesail/pkg/tracing"
)

// Event is the JSON body posted to the endpoint.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type Notifier struct {
	url    string
	wh     *svix.Webhook
	client *http.Client
	logger logger.Logger
	now    func() time.Time
}

// NewNotifier builds a notifier for url. secret uses the "whsec_<base64>" form.
func NewNotifier(url, secret string, client *http.Client, log logger.Logger) (*Notifier, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook signer: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Notifier{
		url:    url,
		wh:     wh,
		client: tracing.WrapHTTPClient(client),
		logger: log,
		now:    time.Now,
	}, nil
}

// Notify posts one signed event. Any non-2xx response is an error.
func (n *Notifier) Notify(ctx context.Context, eventType string, data interface{}) error {
	ts := n.now().UTC().Truncate(time.Second)
	payload, err := json.Marshal(Event{Type: eventType, Timestamp: ts, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	msgID := "msg_" + uuid.NewString()
	signature, err := n.wh.Sign(msgID, ts, payload)
	if err != nil {
		return fmt.Errorf("failed to sign webhook event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("webhook-id", msgID)
	req.Header.Set("webhook-timestamp", strconv.FormatInt(ts.Unix(), 10))
	req.Header.Set("webhook-signature", signature)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}

	n.logger.WithFields(map[string]interface{}{
		"event":      eventType,
		"webhook_id": msgID,
	}).Debug("Webhook delivered")
	return nil
}
