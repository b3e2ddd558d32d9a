package service

import (
	"context"
	"fmt"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/pkg/logger"
)

// DraftService guards the session draft store: nothing invalid is saved.
type DraftService struct {
	store     domain.DraftStore
	templates domain.TemplateRepository
	logger    logger.Logger
}

func NewDraftService(store domain.DraftStore, templates domain.TemplateRepository, logger logger.Logger) *DraftService {
	return &DraftService{
		store:     store,
		templates: templates,
		logger:    logger,
	}
}

func (s *DraftService) Get(ctx context.Context, sessionID string) (*domain.CampaignDraft, error) {
	draft, err := s.store.Load(ctx, sessionID)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to load draft: %v", err))
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return draft, nil
}

// Save replaces the whole draft. Blocks without an id are assigned one.
func (s *DraftService) Save(ctx context.Context, sessionID string, draft *domain.CampaignDraft) (*domain.CampaignDraft, error) {
	if draft == nil {
		return nil, domain.NewValidationError("draft is required")
	}
	d := *draft
	d.Blocks = d.Blocks.WithIDs()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, sessionID, &d); err != nil {
		s.logger.Error(fmt.Sprintf("Failed to save draft: %v", err))
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return &d, nil
}

// StartFromTemplate replaces the session draft with a copy of a saved template.
func (s *DraftService) StartFromTemplate(ctx context.Context, sessionID, templateID string) (*domain.CampaignDraft, error) {
	t, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	draft := &domain.CampaignDraft{
		SubjectLine:   t.Subject,
		PreheaderText: t.Preheader,
		Blocks:        append(t.Content[:0:0], t.Content...),
		TemplateID:    t.ID,
	}
	return s.Save(ctx, sessionID, draft)
}

func (s *DraftService) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.Clear(ctx, sessionID); err != nil {
		s.logger.Error(fmt.Sprintf("Failed to clear draft: %v", err))
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}
