package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/wholesail/wholesail/internal/domain"
)

var templateColumns = []string{
	"id", "name", "subject", "preheader", "content", "html_content", "created_at", "updated_at",
}

type templateRepository struct {
	db *sql.DB
}

// NewTemplateRepository creates a new PostgreSQL email template repository
func NewTemplateRepository(db *sql.DB) domain.TemplateRepository {
	return &templateRepository{db: db}
}

func scanTemplate(s scanner) (*domain.EmailTemplate, error) {
	var (
		t       domain.EmailTemplate
		content []byte
	)
	if err := s.Scan(&t.ID, &t.Name, &t.Subject, &t.Preheader, &content, &t.HTMLContent, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &t.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal template content: %w", err)
		}
	}
	return &t, nil
}

func (r *templateRepository) List(ctx context.Context) ([]*domain.EmailTemplate, error) {
	query, args, err := psql.Select(templateColumns...).
		From("email_templates").
		OrderBy("updated_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	templates := make([]*domain.EmailTemplate, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating template rows: %w", err)
	}
	return templates, nil
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	query, args, err := psql.Select(templateColumns...).
		From("email_templates").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	t, err := scanTemplate(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Entity: "template", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return t, nil
}

// dbNow is truncated to microseconds so values round-trip through TIMESTAMPTZ
// and compare equal on the next optimistic update.
func dbNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (r *templateRepository) Create(ctx context.Context, t *domain.EmailTemplate) error {
	content, err := json.Marshal(t.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal template content: %w", err)
	}
	ts := dbNow()
	t.CreatedAt, t.UpdatedAt = ts, ts

	query, args, err := psql.Insert("email_templates").
		Columns(templateColumns...).
		Values(t.ID, t.Name, t.Subject, t.Preheader, content, t.HTMLContent, t.CreatedAt, t.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (r *templateRepository) Update(ctx context.Context, t *domain.EmailTemplate, expectedUpdatedAt time.Time) error {
	content, err := json.Marshal(t.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal template content: %w", err)
	}
	updatedAt := dbNow()

	query, args, err := psql.Update("email_templates").
		Set("name", t.Name).
		Set("subject", t.Subject).
		Set("preheader", t.Preheader).
		Set("content", content).
		Set("html_content", t.HTMLContent).
		Set("updated_at", updatedAt).
		Where(sq.Eq{"id": t.ID, "updated_at": expectedUpdatedAt.UTC().Truncate(time.Microsecond)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM email_templates WHERE id = $1)`, t.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check template: %w", err)
		}
		if !exists {
			return &domain.ErrNotFound{Entity: "template", ID: t.ID}
		}
		return &domain.ErrConflict{Entity: "template", Message: "template was modified by another session, reload and retry"}
	}

	t.UpdatedAt = updatedAt
	return nil
}

func (r *templateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM email_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return expectAffected(result, "template", id)
}
