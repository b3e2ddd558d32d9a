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

type SubscriberService struct {
	repo             domain.SubscriberRepository
	signer           *UnsubscribeSigner
	requireSignature bool
	logger           logger.Logger
}

// NewSubscriberService creates the subscriber service. When requireSignature
// is set, Unsubscribe rejects requests without a valid signer signature.
func NewSubscriberService(repo domain.SubscriberRepository, signer *UnsubscribeSigner, requireSignature bool, logger logger.Logger) *SubscriberService {
	return &SubscriberService{
		repo:             repo,
		signer:           signer,
		requireSignature: requireSignature,
		logger:           logger,
	}
}

// Subscribe adds email to the newsletter. An unsubscribed address is
// reactivated in place; an active one is reported as already subscribed
// without any write.
func (s *SubscriberService) Subscribe(ctx context.Context, req domain.SubscribeRequest) (result *domain.SubscribeResult, err error) {
	ctx, span := tracing.StartServiceSpan(ctx, "SubscriberService", "Subscribe")
	defer func() {
		tracing.RecordSubmission(ctx, "subscribe", err)
		tracing.EndSpan(span, err)
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil && !domain.IsNotFound(err) {
		s.logger.WithField("email", req.Email).Error(fmt.Sprintf("Failed to look up subscriber: %v", err))
		return nil, fmt.Errorf("failed to look up subscriber: %w", err)
	}

	now := time.Now().UTC()
	if existing != nil {
		if existing.Status == domain.SubscriberStatusActive {
			return &domain.SubscribeResult{Subscriber: existing, AlreadySubscribed: true}, nil
		}
		if err := s.repo.UpdateStatus(ctx, existing.ID, domain.SubscriberStatusActive, now); err != nil {
			s.logger.WithField("subscriber_id", existing.ID).Error(fmt.Sprintf("Failed to resubscribe: %v", err))
			return nil, fmt.Errorf("failed to resubscribe: %w", err)
		}
		existing.Status = domain.SubscriberStatusActive
		existing.SubscribedAt = now
		existing.UnsubscribedAt = nil
		existing.UpdatedAt = now
		return &domain.SubscribeResult{Subscriber: existing, Resubscribed: true}, nil
	}

	sub := &domain.Subscriber{
		ID:           uuid.New().String(),
		Email:        req.Email,
		Name:         domain.DisplayNameFromEmail(req.Email),
		Status:       domain.SubscriberStatusActive,
		Source:       req.Source,
		SubscribedAt: now,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		// a concurrent request inserted the same address first
		if domain.IsConflict(err) {
			return &domain.SubscribeResult{Subscriber: sub, AlreadySubscribed: true}, nil
		}
		s.logger.WithField("email", req.Email).Error(fmt.Sprintf("Failed to create subscriber: %v", err))
		return nil, fmt.Errorf("failed to create subscriber: %w", err)
	}
	return &domain.SubscribeResult{Subscriber: sub}, nil
}

// Unsubscribe is idempotent: unknown and already unsubscribed addresses succeed.
func (s *SubscriberService) Unsubscribe(ctx context.Context, req domain.UnsubscribeRequest) error {
	email := domain.NormalizeEmail(req.Email)
	if email == "" {
		return domain.NewValidationError("email is required")
	}
	if req.Signature != "" || s.requireSignature {
		if !s.signer.Verify(email, req.Signature) {
			return domain.ErrInvalidSignature
		}
	}

	sub, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to look up subscriber: %w", err)
	}
	if sub.Status == domain.SubscriberStatusUnsubscribed {
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, sub.ID, domain.SubscriberStatusUnsubscribed, time.Now().UTC()); err != nil {
		s.logger.WithField("subscriber_id", sub.ID).Error(fmt.Sprintf("Failed to unsubscribe: %v", err))
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	s.logger.WithField("subscriber_id", sub.ID).Info("Subscriber unsubscribed")
	return nil
}

func (s *SubscriberService) List(ctx context.Context, filter domain.SubscriberFilter) (*domain.SubscriberPage, error) {
	subs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to list subscribers: %v", err))
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	return &domain.SubscriberPage{Subscribers: subs, Total: total}, nil
}

func (s *SubscriberService) UpdateStatus(ctx context.Context, req domain.UpdateSubscriberStatusRequest) error {
	if err := req.Validate(); err != nil {
		return invalid(err)
	}
	if err := s.repo.UpdateStatus(ctx, req.ID, req.Status, time.Now().UTC()); err != nil {
		if domain.IsNotFound(err) {
			return err
		}
		s.logger.WithField("subscriber_id", req.ID).Error(fmt.Sprintf("Failed to update subscriber status: %v", err))
		return fmt.Errorf("failed to update subscriber status: %w", err)
	}
	return nil
}

func (s *SubscriberService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if domain.IsNotFound(err) {
			return err
		}
		s.logger.WithField("subscriber_id", id).Error(fmt.Sprintf("Failed to delete subscriber: %v", err))
		return fmt.Errorf("failed to delete subscriber: %w", err)
	}
	return nil
}
