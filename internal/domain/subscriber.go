package domain

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/asaskevich/govalidator"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:generate mockgen -destination mocks/mock_subscriber_service.go -package mocks github.com/wholesail/wholesail/internal/domain SubscriberService
//go:generate mockgen -destination mocks/mock_subscriber_repository.go -package mocks github.com/wholesail/wholesail/internal/domain SubscriberRepository

type SubscriberStatus string

const (
	SubscriberStatusActive       SubscriberStatus = "active"
	SubscriberStatusUnsubscribed SubscriberStatus = "unsubscribed"
)

func (s SubscriberStatus) Valid() bool {
	return s == SubscriberStatusActive || s == SubscriberStatusUnsubscribed
}

// Subscriber is a newsletter recipient. Email is unique and stored lowercase.
type Subscriber struct {
	ID             string           `json:"id"`
	Email          string           `json:"email"`
	Name           string           `json:"name"`
	Status         SubscriberStatus `json:"status"`
	Source         string           `json:"source,omitempty"`
	SubscribedAt   time.Time        `json:"subscribed_at"`
	UnsubscribedAt *time.Time       `json:"unsubscribed_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayNameFromEmail derives a name from the local part of an address:
// "john.smith@x.com" becomes "John Smith", "info@x.com" becomes "Info".
// Digit-only fragments are dropped.
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	caser := cases.Title(language.Und)
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.IndexFunc(p, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
			continue
		}
		words = append(words, caser.String(p))
	}
	return strings.Join(words, " ")
}

type SubscribeRequest struct {
	Email  string `json:"email"`
	Source string `json:"source,omitempty"`
}

// Validate normalizes the email in place.
func (r *SubscribeRequest) Validate() error {
	r.Email = NormalizeEmail(r.Email)
	if r.Email == "" {
		return NewValidationError("email is required")
	}
	if len(r.Email) > 254 || !govalidator.IsEmail(r.Email) {
		return NewValidationError("email is not a valid address")
	}
	r.Source = strings.TrimSpace(r.Source)
	if r.Source == "" {
		r.Source = "website"
	}
	if len(r.Source) > 50 {
		return NewValidationError("source length must be between 1 and 50")
	}
	return nil
}

type SubscribeResult struct {
	Subscriber        *Subscriber `json:"subscriber"`
	AlreadySubscribed bool        `json:"already_subscribed"`
	Resubscribed      bool        `json:"resubscribed"`
}

type UnsubscribeRequest struct {
	Email     string
	Signature string
}

type SubscriberFilter struct {
	Status SubscriberStatus `json:"status,omitempty"`
	Query  string           `json:"q,omitempty"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

func (f *SubscriberFilter) FromURLParams(q url.Values) error {
	f.Status = SubscriberStatus(q.Get("status"))
	if f.Status != "" && !f.Status.Valid() {
		return fmt.Errorf("invalid subscriber filter: unknown status %q", f.Status)
	}
	f.Query = strings.TrimSpace(q.Get("q"))

	limit, offset, err := pageParams(q)
	if err != nil {
		return fmt.Errorf("invalid subscriber filter: %w", err)
	}
	f.Limit, f.Offset = limit, offset
	return nil
}

type SubscriberPage struct {
	Subscribers []*Subscriber `json:"subscribers"`
	Total       int           `json:"total"`
}

type UpdateSubscriberStatusRequest struct {
	ID     string           `json:"id"`
	Status SubscriberStatus `json:"status"`
}

func (r *UpdateSubscriberStatusRequest) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("invalid update subscriber request: id is required")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid update subscriber request: unknown status %q", r.Status)
	}
	return nil
}

type SubscriberRepository interface {
	GetByEmail(ctx context.Context, email string) (*Subscriber, error)
	Create(ctx context.Context, subscriber *Subscriber) error
	// UpdateStatus moves a subscriber to status, stamping the matching timestamp with at.
	UpdateStatus(ctx context.Context, id string, status SubscriberStatus, at time.Time) error
	List(ctx context.Context, filter SubscriberFilter) ([]*Subscriber, int, error)
	ListActive(ctx context.Context) ([]*Subscriber, error)
	Delete(ctx context.Context, id string) error
}

type SubscriberService interface {
	Subscribe(ctx context.Context, req SubscribeRequest) (*SubscribeResult, error)
	Unsubscribe(ctx context.Context, req UnsubscribeRequest) error
	List(ctx context.Context, filter SubscriberFilter) (*SubscriberPage, error)
	UpdateStatus(ctx context.Context, req UpdateSubscriberStatusRequest) error
	Delete(ctx context.Context, id string) error
}
