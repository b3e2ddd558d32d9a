package emailblocks

import (
	"context"
	"fmt"
	"time"

	"github.com/osteele/liquid"
)

const (
	DefaultPersonalizeTimeout = 5 * time.Second
	DefaultMaxTemplateSize    = 512 * 1024
)

// Recipient is the per-message data exposed to merge tags.
type Recipient struct {
	Email          string
	Name           string
	UnsubscribeURL string
}

func (r Recipient) bindings() map[string]interface{} {
	return map[string]interface{}{
		"subscriber": map[string]interface{}{
			"email": r.Email,
			"name":  r.Name,
		},
		"unsubscribe_url": r.UnsubscribeURL,
	}
}

// Personalizer expands Liquid merge tags in rendered HTML, bounded in time and input size.
type Personalizer struct {
	engine  *liquid.Engine
	timeout time.Duration
	maxSize int
}

func NewPersonalizer() *Personalizer {
	return NewPersonalizerWithLimits(DefaultPersonalizeTimeout, DefaultMaxTemplateSize)
}

func NewPersonalizerWithLimits(timeout time.Duration, maxSize int) *Personalizer {
	return &Personalizer{
		engine:  liquid.NewEngine(),
		timeout: timeout,
		maxSize: maxSize,
	}
}

// Personalize renders content for one recipient.
func (p *Personalizer) Personalize(ctx context.Context, content string, to Recipient) (string, error) {
	if len(content) > p.maxSize {
		return "", fmt.Errorf("template size (%d bytes) exceeds maximum allowed size (%d bytes)", len(content), p.maxSize)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: fmt.Errorf("panic during liquid rendering: %v", rec)}
			}
		}()
		out, err := p.engine.ParseAndRenderString(content, to.bindings())
		if err != nil {
			done <- result{err: fmt.Errorf("liquid rendering failed: %w", err)}
			return
		}
		done <- result{out: out}
	}()

	select {
	case res := <-done:
		return res.out, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("liquid rendering aborted: %w", ctx.Err())
	}
}
