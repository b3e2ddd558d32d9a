package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/pkg/emailblocks"
	"github.com/wholesail/wholesail/pkg/logger"
	"github.com/wholesail/wholesail/pkg/mailer"
	"github.com/wholesail/wholesail/pkg/tracing"
)

const (
	defaultSendConcurrency = 8
	defaultSendTimeout     = 15 * time.Second
	campaignListLimit      = 100
)

// CampaignConfig carries the delivery settings of CampaignService.
type CampaignConfig struct {
	FromEmail   string
	FromName    string
	Provider    string
	Concurrency int
	SendTimeout time.Duration
}

type CampaignService struct {
	drafts       domain.DraftStore
	campaigns    domain.CampaignRepository
	subscribers  domain.SubscriberRepository
	sender       mailer.Sender
	renderer     *emailblocks.Renderer
	personalizer *emailblocks.Personalizer
	signer       *UnsubscribeSigner
	cfg          CampaignConfig
	logger       logger.Logger
}

func NewCampaignService(
	drafts domain.DraftStore,
	campaigns domain.CampaignRepository,
	subscribers domain.SubscriberRepository,
	sender mailer.Sender,
	renderer *emailblocks.Renderer,
	signer *UnsubscribeSigner,
	cfg CampaignConfig,
	logger logger.Logger,
) *CampaignService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultSendConcurrency
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	return &CampaignService{
		drafts:       drafts,
		campaigns:    campaigns,
		subscribers:  subscribers,
		sender:       sender,
		renderer:     renderer,
		personalizer: emailblocks.NewPersonalizer(),
		signer:       signer,
		cfg:          cfg,
		logger:       logger,
	}
}

// Preview renders draft leniently for the review screen.
func (s *CampaignService) Preview(ctx context.Context, draft *domain.CampaignDraft) (*domain.PreviewResult, error) {
	if draft == nil {
		draft = domain.NewCampaignDraft()
	}
	html, issues := s.renderer.RenderPreview(draft.Document())
	text, err := emailblocks.PlainText(html)
	if err != nil {
		return nil, fmt.Errorf("failed to derive plain text: %w", err)
	}
	if issues == nil {
		issues = []emailblocks.BlockIssue{}
	}
	return &domain.PreviewResult{HTML: html, Text: text, Issues: issues}, nil
}

// Send dispatches the session draft. With a test recipient a single message
// goes out and nothing is recorded. Otherwise a campaign row is created under
// the idempotency key; a key that was already used returns the stored
// campaign without sending anything.
func (s *CampaignService) Send(ctx context.Context, sessionID string, req domain.SendCampaignRequest) (result *domain.SendCampaignResult, err error) {
	ctx, span := tracing.StartServiceSpan(ctx, "CampaignService", "Send")
	defer func() { tracing.EndSpan(span, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	// a successful send clears the draft, so retries are answered before it is loaded
	if req.TestRecipient == "" {
		existing, err := s.campaigns.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		switch {
		case err == nil:
			s.logger.WithField("campaign_id", existing.ID).Info("Duplicate send request, campaign already dispatched")
			return &domain.SendCampaignResult{Campaign: existing, Duplicate: true}, nil
		case !domain.IsNotFound(err):
			s.logger.WithField("idempotency_key", req.IdempotencyKey).Error(fmt.Sprintf("Failed to look up campaign: %v", err))
			return nil, fmt.Errorf("failed to look up campaign: %w", err)
		}
	}

	draft, err := s.drafts.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if draft.SubjectLine == "" {
		return nil, domain.NewValidationError("subjectLine is required")
	}
	if len(draft.Blocks) == 0 {
		return nil, domain.NewValidationError("campaign has no content blocks")
	}

	html, err := s.renderer.Render(draft.Document())
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	if req.TestRecipient != "" {
		if err := s.deliver(ctx, html, draft.SubjectLine, req.TestRecipient, domain.DisplayNameFromEmail(req.TestRecipient), "test"); err != nil {
			return nil, fmt.Errorf("failed to send test email: %w", err)
		}
		return &domain.SendCampaignResult{TestSent: true}, nil
	}

	// merge tag errors are content errors; catch them before anything is recorded
	if _, err := s.personalizer.Personalize(ctx, html, emailblocks.Recipient{Email: "check@example.com"}); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	recipients, err := s.subscribers.ListActive(ctx)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to list active subscribers: %v", err))
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}

	campaign, created, err := s.campaigns.Create(ctx, &domain.Campaign{
		ID:             uuid.New().String(),
		IdempotencyKey: req.IdempotencyKey,
		Subject:        draft.SubjectLine,
		Preheader:      draft.PreheaderText,
		HTMLContent:    html,
		Status:         domain.CampaignStatusSending,
		RecipientCount: len(recipients),
	})
	if err != nil {
		s.logger.WithField("idempotency_key", req.IdempotencyKey).Error(fmt.Sprintf("Failed to create campaign: %v", err))
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	if !created {
		s.logger.WithField("campaign_id", campaign.ID).Info("Duplicate send request, campaign already dispatched")
		return &domain.SendCampaignResult{Campaign: campaign, Duplicate: true}, nil
	}

	sent, failed := s.fanOut(ctx, campaign, html, recipients)

	status := domain.CampaignStatusSent
	if failed > 0 && sent == 0 {
		status = domain.CampaignStatusFailed
	}
	finishedAt := time.Now().UTC()
	if err := s.campaigns.Finish(ctx, campaign.ID, status, sent, failed, finishedAt); err != nil {
		s.logger.WithField("campaign_id", campaign.ID).Error(fmt.Sprintf("Failed to record campaign result: %v", err))
		return nil, fmt.Errorf("failed to record campaign result: %w", err)
	}
	campaign.Status, campaign.SentCount, campaign.FailedCount, campaign.SentAt = status, sent, failed, &finishedAt

	if err := s.drafts.Clear(ctx, sessionID); err != nil {
		s.logger.WithField("campaign_id", campaign.ID).Warn(fmt.Sprintf("Failed to clear draft after send: %v", err))
	}

	s.logger.WithFields(map[string]interface{}{
		"campaign_id": campaign.ID,
		"sent":        sent,
		"failed":      failed,
	}).Info("Campaign dispatched")
	return &domain.SendCampaignResult{Campaign: campaign}, nil
}

// fanOut delivers to every recipient with at most cfg.Concurrency sends in
// flight. A failed recipient is counted and does not stop the others.
func (s *CampaignService) fanOut(ctx context.Context, campaign *domain.Campaign, html string, recipients []*domain.Subscriber) (sent, failed int) {
	var sentCount, failedCount int64

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, sub := range recipients {
		g.Go(func() error {
			if err := s.deliver(ctx, html, campaign.Subject, sub.Email, sub.Name, campaign.ID); err != nil {
				atomic.AddInt64(&failedCount, 1)
				s.logger.WithFields(map[string]interface{}{
					"campaign_id":   campaign.ID,
					"subscriber_id": sub.ID,
				}).Warn(fmt.Sprintf("Failed to deliver campaign email: %v", err))
				return nil
			}
			atomic.AddInt64(&sentCount, 1)
			return nil
		})
	}
	_ = g.Wait()

	return int(sentCount), int(failedCount)
}

func (s *CampaignService) deliver(ctx context.Context, html, subject, email, name, tag string) error {
	body, err := s.personalizer.Personalize(ctx, html, emailblocks.Recipient{
		Email:          email,
		Name:           name,
		UnsubscribeURL: s.signer.URL(email),
	})
	if err != nil {
		return fmt.Errorf("failed to personalize: %w", err)
	}
	text, err := emailblocks.PlainText(body)
	if err != nil {
		return fmt.Errorf("failed to derive plain text: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	start := time.Now()
	_, err = s.sender.Send(ctx, mailer.Message{
		FromEmail: s.cfg.FromEmail,
		FromName:  s.cfg.FromName,
		To:        email,
		Subject:   subject,
		HTML:      body,
		Text:      text,
		Tag:       tag,
	})
	tracing.RecordEmailSent(ctx, s.cfg.Provider, float64(time.Since(start).Milliseconds()), err)
	return err
}

func (s *CampaignService) List(ctx context.Context) ([]*domain.Campaign, error) {
	campaigns, err := s.campaigns.List(ctx, campaignListLimit, 0)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to list campaigns: %v", err))
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

func (s *CampaignService) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return c, nil
}
