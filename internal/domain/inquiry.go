package domain

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
)

//go:generate mockgen -destination mocks/mock_inquiry_service.go -package mocks github.com/wholesail/wholesail/internal/domain InquiryService
//go:generate mockgen -destination mocks/mock_inquiry_repository.go -package mocks github.com/wholesail/wholesail/internal/domain InquiryRepository
//go:generate mockgen -destination mocks/mock_event_notifier.go -package mocks github.com/wholesail/wholesail/internal/domain EventNotifier

type InquiryStatus string

const (
	InquiryStatusNew       InquiryStatus = "new"
	InquiryStatusContacted InquiryStatus = "contacted"
	InquiryStatusQuoted    InquiryStatus = "quoted"
	InquiryStatusClosed    InquiryStatus = "closed"
)

func (s InquiryStatus) Valid() bool {
	switch s {
	case InquiryStatusNew, InquiryStatusContacted, InquiryStatusQuoted, InquiryStatusClosed:
		return true
	}
	return false
}

const EventInquiryCreated = "inquiry.created"

// Inquiry is a wholesale quote request from a prospective buyer.
type Inquiry struct {
	ID          string        `json:"id"`
	CompanyName string        `json:"company_name"`
	ContactName string        `json:"contact_name"`
	Email       string        `json:"email"`
	Phone       string        `json:"phone,omitempty"`
	Message     string        `json:"message"`
	ProductID   *string       `json:"product_id,omitempty"`
	Quantity    int           `json:"quantity"`
	Status      InquiryStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type CreateInquiryRequest struct {
	CompanyName string `json:"company_name"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Message     string `json:"message"`
	ProductID   string `json:"product_id"`
	Quantity    int    `json:"quantity"`
}

func (r *CreateInquiryRequest) Validate() (*Inquiry, error) {
	inq := &Inquiry{
		CompanyName: strings.TrimSpace(r.CompanyName),
		ContactName: strings.TrimSpace(r.ContactName),
		Email:       NormalizeEmail(r.Email),
		Phone:       strings.TrimSpace(r.Phone),
		Message:     strings.TrimSpace(r.Message),
		Quantity:    r.Quantity,
		Status:      InquiryStatusNew,
	}

	switch {
	case inq.CompanyName == "":
		return nil, NewValidationError("company_name is required")
	case len(inq.CompanyName) > 200:
		return nil, NewValidationError("company_name length must be between 1 and 200")
	case inq.ContactName == "":
		return nil, NewValidationError("contact_name is required")
	case len(inq.ContactName) > 200:
		return nil, NewValidationError("contact_name length must be between 1 and 200")
	case inq.Email == "":
		return nil, NewValidationError("email is required")
	case !govalidator.IsEmail(inq.Email):
		return nil, NewValidationError("email is not a valid address")
	case len(inq.Phone) > 40:
		return nil, NewValidationError("phone length must not exceed 40")
	case inq.Message == "":
		return nil, NewValidationError("message is required")
	case len(inq.Message) > 5000:
		return nil, NewValidationError("message length must not exceed 5000")
	case inq.Quantity < 0:
		return nil, NewValidationError("quantity must not be negative")
	}

	if id := strings.TrimSpace(r.ProductID); id != "" {
		if !govalidator.IsUUID(id) {
			return nil, NewValidationError("product_id must be a UUID")
		}
		inq.ProductID = &id
	}
	return inq, nil
}

type InquiryFilter struct {
	Status InquiryStatus `json:"status,omitempty"`
	Query  string        `json:"q,omitempty"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func (f *InquiryFilter) FromURLParams(q url.Values) error {
	f.Status = InquiryStatus(q.Get("status"))
	if f.Status != "" && !f.Status.Valid() {
		return fmt.Errorf("invalid inquiry filter: unknown status %q", f.Status)
	}
	f.Query = strings.TrimSpace(q.Get("q"))

	limit, offset, err := pageParams(q)
	if err != nil {
		return fmt.Errorf("invalid inquiry filter: %w", err)
	}
	f.Limit, f.Offset = limit, offset
	return nil
}

type InquiryPage struct {
	Inquiries []*Inquiry `json:"inquiries"`
	Total     int        `json:"total"`
}

type UpdateInquiryStatusRequest struct {
	ID     string        `json:"id"`
	Status InquiryStatus `json:"status"`
}

func (r *UpdateInquiryStatusRequest) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("invalid update inquiry request: id is required")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid update inquiry request: unknown status %q", r.Status)
	}
	return nil
}

type InquiryRepository interface {
	Create(ctx context.Context, inquiry *Inquiry) error
	GetByID(ctx context.Context, id string) (*Inquiry, error)
	List(ctx context.Context, filter InquiryFilter) ([]*Inquiry, int, error)
	UpdateStatus(ctx context.Context, id string, status InquiryStatus, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type InquiryService interface {
	Create(ctx context.Context, req CreateInquiryRequest) (*Inquiry, error)
	List(ctx context.Context, filter InquiryFilter) (*InquiryPage, error)
	UpdateStatus(ctx context.Context, req UpdateInquiryStatusRequest) error
	Delete(ctx context.Context, id string) error
}

// EventNotifier pushes domain events to an outside endpoint.
type EventNotifier interface {
	Notify(ctx context.Context, eventType string, data interface{}) error
}
