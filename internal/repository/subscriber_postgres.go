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

var subscriberColumns = []string{
	"id", "email", "name", "status", "source", "subscribed_at", "unsubscribed_at", "created_at", "updated_at",
}

type subscriberRepository struct {
	db *sql.DB
}

// NewSubscriberRepository creates a new PostgreSQL subscriber repository
func NewSubscriberRepository(db *sql.DB) domain.SubscriberRepository {
	return &subscriberRepository{db: db}
}

func scanSubscriber(s scanner) (*domain.Subscriber, error) {
	var (
		sub            domain.Subscriber
		unsubscribedAt sql.NullTime
	)
	if err := s.Scan(&sub.ID, &sub.Email, &sub.Name, &sub.Status, &sub.Source,
		&sub.SubscribedAt, &unsubscribedAt, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	if unsubscribedAt.Valid {
		sub.UnsubscribedAt = &unsubscribedAt.Time
	}
	return &sub, nil
}

func (r *subscriberRepository) GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	query, args, err := psql.Select(subscriberColumns...).
		From("subscribers").
		Where(sq.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	sub, err := scanSubscriber(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Entity: "subscriber", ID: email}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}
	return sub, nil
}

func (r *subscriberRepository) Create(ctx context.Context, sub *domain.Subscriber) error {
	now := time.Now().UTC()
	sub.CreatedAt, sub.UpdatedAt = now, now
	if sub.SubscribedAt.IsZero() {
		sub.SubscribedAt = now
	}

	query, args, err := psql.Insert("subscribers").
		Columns(subscriberColumns...).
		Values(sub.ID, sub.Email, sub.Name, sub.Status, sub.Source,
			sub.SubscribedAt, sub.UnsubscribedAt, sub.CreatedAt, sub.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return &domain.ErrConflict{Entity: "subscriber", Message: "email already subscribed"}
		}
		return fmt.Errorf("failed to create subscriber: %w", err)
	}
	return nil
}

func (r *subscriberRepository) UpdateStatus(ctx context.Context, id string, status domain.SubscriberStatus, at time.Time) error {
	b := psql.Update("subscribers").
		Set("status", status).
		Set("updated_at", at).
		Where(sq.Eq{"id": id})

	if status == domain.SubscriberStatusActive {
		b = b.Set("subscribed_at", at).Set("unsubscribed_at", nil)
	} else {
		b = b.Set("unsubscribed_at", at)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update subscriber status: %w", err)
	}
	return expectAffected(result, "subscriber", id)
}

func applySubscriberFilter(b sq.SelectBuilder, f domain.SubscriberFilter) sq.SelectBuilder {
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": f.Status})
	}
	if f.Query != "" {
		pattern := likePattern(f.Query)
		b = b.Where(sq.Or{sq.ILike{"email": pattern}, sq.ILike{"name": pattern}})
	}
	return b
}

func (r *subscriberRepository) List(ctx context.Context, filter domain.SubscriberFilter) ([]*domain.Subscriber, int, error) {
	countQuery, countArgs, err := applySubscriberFilter(psql.Select("COUNT(*)").From("subscribers"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count subscribers: %w", err)
	}

	query, args, err := paginate(applySubscriberFilter(psql.Select(subscriberColumns...).From("subscribers"), filter).
		OrderBy("created_at DESC", "id ASC"), filter.Limit, filter.Offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}

	subs, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (r *subscriberRepository) ListActive(ctx context.Context) ([]*domain.Subscriber, error) {
	query, args, err := psql.Select(subscriberColumns...).
		From("subscribers").
		Where(sq.Eq{"status": domain.SubscriberStatusActive}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.query(ctx, query, args...)
}

func (r *subscriberRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	subs := make([]*domain.Subscriber, 0)
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriber rows: %w", err)
	}
	return subs, nil
}

func (r *subscriberRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subscribers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscriber: %w", err)
	}
	return expectAffected(result, "subscriber", id)
}
