package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wholesail/wholesail/pkg/emailblocks"
)

//go:generate mockgen -destination mocks/mock_template_service.go -package mocks github.com/wholesail/wholesail/internal/domain TemplateService
//go:generate mockgen -destination mocks/mock_template_repository.go -package mocks github.com/wholesail/wholesail/internal/domain TemplateRepository

// EmailTemplate is a reusable block document. HTMLContent caches the rendered
// output and is regenerated on every write.
type EmailTemplate struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Subject     string             `json:"subject"`
	Preheader   string             `json:"preheader"`
	Content     emailblocks.Blocks `json:"content"`
	HTMLContent string             `json:"html_content"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func (t *EmailTemplate) Document() emailblocks.Document {
	return emailblocks.Document{
		SubjectLine:   t.Subject,
		PreheaderText: t.Preheader,
		Blocks:        t.Content,
	}
}

func (t *EmailTemplate) Validate() error {
	if t.Name == "" {
		return NewValidationError("name is required")
	}
	if len(t.Name) > 255 {
		return NewValidationError("name length must be between 1 and 255")
	}
	if len(t.Subject) > 255 {
		return NewValidationError("subject length must not exceed 255")
	}
	if len(t.Preheader) > 255 {
		return NewValidationError("preheader length must not exceed 255")
	}
	return ValidateBlocks(t.Content)
}

// ValidateBlocks reports block problems as a ValidationError naming the block.
func ValidateBlocks(blocks emailblocks.Blocks) error {
	if err := blocks.Validate(); err != nil {
		return NewValidationError(err.Error())
	}
	return nil
}

type CreateTemplateRequest struct {
	Name      string             `json:"name"`
	Subject   string             `json:"subject"`
	Preheader string             `json:"preheader"`
	Content   emailblocks.Blocks `json:"content"`
}

func (r *CreateTemplateRequest) Validate() (*EmailTemplate, error) {
	t := &EmailTemplate{
		Name:      strings.TrimSpace(r.Name),
		Subject:   strings.TrimSpace(r.Subject),
		Preheader: strings.TrimSpace(r.Preheader),
		Content:   r.Content.WithIDs(),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTemplateRequest carries the updated_at the client read; the update is
// rejected with a conflict when the row changed since.
type UpdateTemplateRequest struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Subject   string             `json:"subject"`
	Preheader string             `json:"preheader"`
	Content   emailblocks.Blocks `json:"content"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (r *UpdateTemplateRequest) Validate() (*EmailTemplate, error) {
	if r.ID == "" {
		return nil, NewValidationError("id is required")
	}
	if r.UpdatedAt.IsZero() {
		return nil, NewValidationError("updated_at is required")
	}
	c := CreateTemplateRequest{Name: r.Name, Subject: r.Subject, Preheader: r.Preheader, Content: r.Content}
	t, err := c.Validate()
	if err != nil {
		return nil, err
	}
	t.ID = r.ID
	return t, nil
}

type CompileFormat string

const (
	CompileFormatHTML CompileFormat = "html"
	CompileFormatMJML CompileFormat = "mjml"
)

type CompileTemplateRequest struct {
	Document emailblocks.Document `json:"document"`
	Format   CompileFormat        `json:"format"`
}

func (r *CompileTemplateRequest) Validate() error {
	switch r.Format {
	case "":
		r.Format = CompileFormatHTML
	case CompileFormatHTML, CompileFormatMJML:
	default:
		return NewValidationError(fmt.Sprintf("unsupported format %q", r.Format))
	}
	return ValidateBlocks(r.Document.Blocks)
}

type CompileTemplateResponse struct {
	HTML string `json:"html"`
	MJML string `json:"mjml,omitempty"`
	Text string `json:"text"`
}

type TemplateRepository interface {
	List(ctx context.Context) ([]*EmailTemplate, error)
	GetByID(ctx context.Context, id string) (*EmailTemplate, error)
	Create(ctx context.Context, template *EmailTemplate) error
	// Update writes template only if the stored updated_at equals expectedUpdatedAt.
	Update(ctx context.Context, template *EmailTemplate, expectedUpdatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type TemplateService interface {
	List(ctx context.Context) ([]*EmailTemplate, error)
	Get(ctx context.Context, id string) (*EmailTemplate, error)
	Create(ctx context.Context, req CreateTemplateRequest) (*EmailTemplate, error)
	Update(ctx context.Context, req UpdateTemplateRequest) (*EmailTemplate, error)
	Delete(ctx context.Context, id string) error
	Compile(ctx context.Context, req CompileTemplateRequest) (*CompileTemplateResponse, error)
}
