package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/wholesail/wholesail/internal/domain"
)

var campaignColumns = []string{
	"id", "idempotency_key", "subject", "preheader", "html_content", "status",
	"recipient_count", "sent_count", "failed_count", "created_at", "sent_at",
}

type campaignRepository struct {
	db *sql.DB
}

// NewCampaignRepository creates a new PostgreSQL campaign repository
func NewCampaignRepository(db *sql.DB) domain.CampaignRepository {
	return &campaignRepository{db: db}
}

func scanCampaign(s scanner) (*domain.Campaign, error) {
	var (
		c      domain.Campaign
		sentAt sql.NullTime
	)
	if err := s.Scan(&c.ID, &c.IdempotencyKey, &c.Subject, &c.Preheader, &c.HTMLContent, &c.Status,
		&c.RecipientCount, &c.SentCount, &c.FailedCount, &c.CreatedAt, &sentAt); err != nil {
		return nil, err
	}
	if sentAt.Valid {
		c.SentAt = &sentAt.Time
	}
	return &c, nil
}

// Create relies on the unique idempotency_key: a conflicting insert returns
// no row and the existing campaign is loaded instead.
func (r *campaignRepository) Create(ctx context.Context, c *domain.Campaign) (*domain.Campaign, bool, error) {
	c.CreatedAt = time.Now().UTC()

	query, args, err := psql.Insert("campaigns").
		Columns(campaignColumns...).
		Values(c.ID, c.IdempotencyKey, c.Subject, c.Preheader, c.HTMLContent, c.Status,
			c.RecipientCount, c.SentCount, c.FailedCount, c.CreatedAt, c.SentAt).
		Suffix("ON CONFLICT (idempotency_key) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("failed to build query: %w", err)
	}

	var id string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == nil {
		return c, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create campaign: %w", err)
	}

	existing, err := r.GetByIdempotencyKey(ctx, c.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *campaignRepository) getOne(ctx context.Context, where sq.Eq, ref string) (*domain.Campaign, error) {
	query, args, err := psql.Select(campaignColumns...).
		From("campaigns").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	c, err := scanCampaign(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Entity: "campaign", ID: ref}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return c, nil
}

func (r *campaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	return r.getOne(ctx, sq.Eq{"id": id}, id)
}

func (r *campaignRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Campaign, error) {
	return r.getOne(ctx, sq.Eq{"idempotency_key": key}, key)
}

// List omits html_content; the list view never shows it.
func (r *campaignRepository) List(ctx context.Context, limit, offset int) ([]*domain.Campaign, error) {
	query, args, err := paginate(psql.Select(
		"id", "idempotency_key", "subject", "preheader", "''", "status",
		"recipient_count", "sent_count", "failed_count", "created_at", "sent_at",
	).From("campaigns").OrderBy("created_at DESC"), limit, offset).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := make([]*domain.Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaign rows: %w", err)
	}
	return campaigns, nil
}

func (r *campaignRepository) Finish(ctx context.Context, id string, status domain.CampaignStatus, sent, failed int, at time.Time) error {
	query, args, err := psql.Update("campaigns").
		Set("status", status).
		Set("sent_count", sent).
		Set("failed_count", failed).
		Set("sent_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to finish campaign: %w", err)
	}
	return expectAffected(result, "campaign", id)
}
