package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/pkg/emailblocks"
	"github.com/wholesail/wholesail/pkg/logger"
	"github.com/wholesail/wholesail/pkg/tracing"
)

type TemplateService struct {
	repo     domain.TemplateRepository
	renderer *emailblocks.Renderer
	logger   logger.Logger
}

func NewTemplateService(repo domain.TemplateRepository, renderer *emailblocks.Renderer, logger logger.Logger) *TemplateService {
	return &TemplateService{
		repo:     repo,
		renderer: renderer,
		logger:   logger,
	}
}

func (s *TemplateService) List(ctx context.Context) ([]*domain.EmailTemplate, error) {
	templates, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to list templates: %v", err))
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

func (s *TemplateService) Get(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		s.logger.WithField("template_id", id).Error(fmt.Sprintf("Failed to get template: %v", err))
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return t, nil
}

// render refreshes the cached html_content of t.
func (s *TemplateService) render(t *domain.EmailTemplate) error {
	html, err := s.renderer.Render(t.Document())
	if err != nil {
		return domain.NewValidationError(err.Error())
	}
	t.HTMLContent = html
	return nil
}

func (s *TemplateService) Create(ctx context.Context, req domain.CreateTemplateRequest) (*domain.EmailTemplate, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "TemplateService", "Create")
	defer span.End()

	t, err := req.Validate()
	if err != nil {
		return nil, err
	}
	if err := s.render(t); err != nil {
		return nil, err
	}
	t.ID = uuid.New().String()

	if err := s.repo.Create(ctx, t); err != nil {
		tracing.MarkSpanError(ctx, err)
		s.logger.WithField("template_name", t.Name).Error(fmt.Sprintf("Failed to create template: %v", err))
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return t, nil
}

// Update fails with a conflict when the stored template changed after the
// client read req.UpdatedAt.
func (s *TemplateService) Update(ctx context.Context, req domain.UpdateTemplateRequest) (*domain.EmailTemplate, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "TemplateService", "Update")
	defer span.End()

	t, err := req.Validate()
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, t.ID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if err := s.render(t); err != nil {
		return nil, err
	}
	t.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, t, req.UpdatedAt); err != nil {
		tracing.MarkSpanError(ctx, err)
		if isDomainError(err) {
			return nil, err
		}
		s.logger.WithField("template_id", t.ID).Error(fmt.Sprintf("Failed to update template: %v", err))
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return t, nil
}

func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if domain.IsNotFound(err) {
			return err
		}
		s.logger.WithField("template_id", id).Error(fmt.Sprintf("Failed to delete template: %v", err))
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

// Compile renders an unsaved document. The mjml format returns the MJML
// source alongside the HTML the MJML compiler produced from it.
func (s *TemplateService) Compile(ctx context.Context, req domain.CompileTemplateRequest) (*domain.CompileTemplateResponse, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "TemplateService", "Compile")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp := &domain.CompileTemplateResponse{}
	switch req.Format {
	case domain.CompileFormatMJML:
		mjml, err := s.renderer.ToMJML(req.Document)
		if err != nil {
			return nil, domain.NewValidationError(err.Error())
		}
		html, err := emailblocks.CompileMJML(ctx, mjml)
		if err != nil {
			tracing.MarkSpanError(ctx, err)
			s.logger.Error(fmt.Sprintf("Failed to compile MJML: %v", err))
			return nil, fmt.Errorf("failed to compile template: %w", err)
		}
		resp.MJML, resp.HTML = mjml, html
	default:
		html, err := s.renderer.Render(req.Document)
		if err != nil {
			return nil, domain.NewValidationError(err.Error())
		}
		resp.HTML = html
	}

	text, err := emailblocks.PlainText(resp.HTML)
	if err != nil {
		return nil, fmt.Errorf("failed to derive plain text: %w", err)
	}
	resp.Text = text
	return resp, nil
}
