package domain

import (
	"context"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"github.com/wholesail/wholesail/pkg/emailblocks"
)

//go:generate mockgen -destination mocks/mock_campaign_service.go -package mocks github.com/wholesail/wholesail/internal/domain CampaignService
//go:generate mockgen -destination mocks/mock_campaign_repository.go -package mocks github.com/wholesail/wholesail/internal/domain CampaignRepository
//go:generate mockgen -destination mocks/mock_draft_service.go -package mocks github.com/wholesail/wholesail/internal/domain DraftService
//go:generate mockgen -destination mocks/mock_draft_store.go -package mocks github.com/wholesail/wholesail/internal/domain DraftStore

// CampaignDraft is the in-progress campaign of one admin session. It is
// created when the wizard starts, overwritten by each editor save and
// discarded after a successful send.
type CampaignDraft struct {
	SubjectLine   string             `json:"subjectLine"`
	PreheaderText string             `json:"preheaderText"`
	Blocks        emailblocks.Blocks `json:"blocks"`
	TemplateID    string             `json:"templateId,omitempty"`
}

func NewCampaignDraft() *CampaignDraft {
	return &CampaignDraft{Blocks: emailblocks.Blocks{}}
}

func (d *CampaignDraft) Document() emailblocks.Document {
	return emailblocks.Document{
		SubjectLine:   d.SubjectLine,
		PreheaderText: d.PreheaderText,
		Blocks:        d.Blocks,
	}
}

func (d *CampaignDraft) Validate() error {
	if len(d.SubjectLine) > 255 {
		return NewValidationError("subjectLine length must not exceed 255")
	}
	if len(d.PreheaderText) > 255 {
		return NewValidationError("preheaderText length must not exceed 255")
	}
	return ValidateBlocks(d.Blocks)
}

// IsEmpty reports whether nothing has been written to the draft yet.
func (d *CampaignDraft) IsEmpty() bool {
	return d.SubjectLine == "" && d.PreheaderText == "" && len(d.Blocks) == 0 && d.TemplateID == ""
}

// DraftStore keeps one draft per admin session.
type DraftStore interface {
	// Save replaces the whole draft for sessionID.
	Save(ctx context.Context, sessionID string, draft *CampaignDraft) error
	// Load returns the last saved draft, or an empty draft when none exists.
	Load(ctx context.Context, sessionID string) (*CampaignDraft, error)
	Clear(ctx context.Context, sessionID string) error
}

type CampaignStatus string

const (
	CampaignStatusSending CampaignStatus = "sending"
	CampaignStatusSent    CampaignStatus = "sent"
	CampaignStatusFailed  CampaignStatus = "failed"
)

// Campaign records one dispatch of a draft to the active subscriber list.
type Campaign struct {
	ID             string         `json:"id"`
	IdempotencyKey string         `json:"idempotency_key"`
	Subject        string         `json:"subject"`
	Preheader      string         `json:"preheader"`
	HTMLContent    string         `json:"html_content,omitempty"`
	Status         CampaignStatus `json:"status"`
	RecipientCount int            `json:"recipient_count"`
	SentCount      int            `json:"sent_count"`
	FailedCount    int            `json:"failed_count"`
	CreatedAt      time.Time      `json:"created_at"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
}

type SendCampaignRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	TestRecipient  string `json:"test_recipient,omitempty"`
}

func (r *SendCampaignRequest) Validate() error {
	r.TestRecipient = NormalizeEmail(r.TestRecipient)
	if r.TestRecipient != "" {
		if !govalidator.IsEmail(r.TestRecipient) {
			return NewValidationError("test_recipient is not a valid address")
		}
		return nil
	}
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	if r.IdempotencyKey == "" {
		return NewValidationError("idempotency_key is required")
	}
	if len(r.IdempotencyKey) > 128 {
		return NewValidationError("idempotency_key length must not exceed 128")
	}
	return nil
}

type SendCampaignResult struct {
	Campaign  *Campaign `json:"campaign,omitempty"`
	Duplicate bool      `json:"duplicate"`
	TestSent  bool      `json:"test_sent"`
}

type PreviewResult struct {
	HTML   string                   `json:"html"`
	Text   string                   `json:"text"`
	Issues []emailblocks.BlockIssue `json:"issues"`
}

type CampaignRepository interface {
	// Create inserts campaign unless its idempotency key exists, in which case
	// it returns the stored campaign and created=false.
	Create(ctx context.Context, campaign *Campaign) (stored *Campaign, created bool, err error)
	GetByID(ctx context.Context, id string) (*Campaign, error)
	// GetByIdempotencyKey returns *ErrNotFound when no campaign used key.
	GetByIdempotencyKey(ctx context.Context, key string) (*Campaign, error)
	List(ctx context.Context, limit, offset int) ([]*Campaign, error)
	Finish(ctx context.Context, id string, status CampaignStatus, sent, failed int, at time.Time) error
}

type CampaignService interface {
	Preview(ctx context.Context, draft *CampaignDraft) (*PreviewResult, error)
	Send(ctx context.Context, sessionID string, req SendCampaignRequest) (*SendCampaignResult, error)
	List(ctx context.Context) ([]*Campaign, error)
	Get(ctx context.Context, id string) (*Campaign, error)
}

type DraftService interface {
	Get(ctx context.Context, sessionID string) (*CampaignDraft, error)
	Save(ctx context.Context, sessionID string, draft *CampaignDraft) (*CampaignDraft, error)
	StartFromTemplate(ctx context.Context, sessionID, templateID string) (*CampaignDraft, error)
	Clear(ctx context.Context, sessionID string) error
}
