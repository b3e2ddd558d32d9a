package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/pkg/logger"
	"github.com/wholesail/wholesail/pkg/tracing"
)

type InquiryService struct {
	repo     domain.InquiryRepository
	notifier domain.EventNotifier
	logger   logger.Logger
}

// NewInquiryService creates the inquiry service. notifier may be nil when no
// sales webhook is configured.
func NewInquiryService(repo domain.InquiryRepository, notifier domain.EventNotifier, logger logger.Logger) *InquiryService {
	return &InquiryService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// Create stores the inquiry and then notifies the sales webhook. A failed
// notification is logged and does not fail the submission.
func (s *InquiryService) Create(ctx context.Context, req domain.CreateInquiryRequest) (inq *domain.Inquiry, err error) {
	ctx, span := tracing.StartServiceSpan(ctx, "InquiryService", "Create")
	defer func() {
		tracing.RecordSubmission(ctx, "inquiry", err)
		tracing.EndSpan(span, err)
	}()

	inq, err = req.Validate()
	if err != nil {
		return nil, err
	}
	inq.ID = uuid.New().String()

	if err := s.repo.Create(ctx, inq); err != nil {
		s.logger.WithField("company", inq.CompanyName).Error(fmt.Sprintf("Failed to create inquiry: %v", err))
		return nil, fmt.Errorf("failed to create inquiry: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, domain.EventInquiryCreated, inq); err != nil {
			s.logger.WithField("inquiry_id", inq.ID).Warn(fmt.Sprintf("Failed to notify sales webhook: %v", err))
		}
	}
	return inq, nil
}

func (s *InquiryService) List(ctx context.Context, filter domain.InquiryFilter) (*domain.InquiryPage, error) {
	inquiries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to list inquiries: %v", err))
		return nil, fmt.Errorf("failed to list inquiries: %w", err)
	}
	return &domain.InquiryPage{Inquiries: inquiries, Total: total}, nil
}

func (s *InquiryService) UpdateStatus(ctx context.Context, req domain.UpdateInquiryStatusRequest) error {
	if err := req.Validate(); err != nil {
		return invalid(err)
	}
	if err := s.repo.UpdateStatus(ctx, req.ID, req.Status, time.Now().UTC()); err != nil {
		if domain.IsNotFound(err) {
			return err
		}
		s.logger.WithField("inquiry_id", req.ID).Error(fmt.Sprintf("Failed to update inquiry status: %v", err))
		return fmt.Errorf("failed to update inquiry status: %w", err)
	}
	return nil
}

func (s *InquiryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if domain.IsNotFound(err) {
			return err
		}
		s.logger.WithField("inquiry_id", id).Error(fmt.Sprintf("Failed to delete inquiry: %v", err))
		return fmt.Errorf("failed to delete inquiry: %w", err)
	}
	return nil
}
