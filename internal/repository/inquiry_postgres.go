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

var inquiryColumns = []string{
	"id", "company_name", "contact_name", "email", "phone", "message", "product_id",
	"quantity", "status", "created_at", "updated_at",
}

type inquiryRepository struct {
	db *sql.DB
}

// NewInquiryRepository creates a new PostgreSQL inquiry repository
func NewInquiryRepository(db *sql.DB) domain.InquiryRepository {
	return &inquiryRepository{db: db}
}

func scanInquiry(s scanner) (*domain.Inquiry, error) {
	var (
		inq       domain.Inquiry
		productID sql.NullString
	)
	if err := s.Scan(&inq.ID, &inq.CompanyName, &inq.ContactName, &inq.Email, &inq.Phone, &inq.Message,
		&productID, &inq.Quantity, &inq.Status, &inq.CreatedAt, &inq.UpdatedAt); err != nil {
		return nil, err
	}
	if productID.Valid {
		inq.ProductID = &productID.String
	}
	return &inq, nil
}

func (r *inquiryRepository) Create(ctx context.Context, inq *domain.Inquiry) error {
	now := time.Now().UTC()
	inq.CreatedAt, inq.UpdatedAt = now, now

	query, args, err := psql.Insert("inquiries").
		Columns(inquiryColumns...).
		Values(inq.ID, inq.CompanyName, inq.ContactName, inq.Email, inq.Phone, inq.Message,
			nullableString(inq.ProductID), inq.Quantity, inq.Status, inq.CreatedAt, inq.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create inquiry: %w", err)
	}
	return nil
}

func (r *inquiryRepository) GetByID(ctx context.Context, id string) (*domain.Inquiry, error) {
	query, args, err := psql.Select(inquiryColumns...).
		From("inquiries").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	inq, err := scanInquiry(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Entity: "inquiry", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inquiry: %w", err)
	}
	return inq, nil
}

func applyInquiryFilter(b sq.SelectBuilder, f domain.InquiryFilter) sq.SelectBuilder {
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": f.Status})
	}
	if f.Query != "" {
		pattern := likePattern(f.Query)
		b = b.Where(sq.Or{
			sq.ILike{"company_name": pattern},
			sq.ILike{"contact_name": pattern},
			sq.ILike{"email": pattern},
		})
	}
	return b
}

func (r *inquiryRepository) List(ctx context.Context, filter domain.InquiryFilter) ([]*domain.Inquiry, int, error) {
	countQuery, countArgs, err := applyInquiryFilter(psql.Select("COUNT(*)").From("inquiries"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count inquiries: %w", err)
	}

	query, args, err := paginate(applyInquiryFilter(psql.Select(inquiryColumns...).From("inquiries"), filter).
		OrderBy("created_at DESC", "id ASC"), filter.Limit, filter.Offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list inquiries: %w", err)
	}
	defer rows.Close()

	inquiries := make([]*domain.Inquiry, 0)
	for rows.Next() {
		inq, err := scanInquiry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan inquiry: %w", err)
		}
		inquiries = append(inquiries, inq)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating inquiry rows: %w", err)
	}
	return inquiries, total, nil
}

func (r *inquiryRepository) UpdateStatus(ctx context.Context, id string, status domain.InquiryStatus, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE inquiries SET status = $1, updated_at = $2 WHERE id = $3`, status, at, id)
	if err != nil {
		return fmt.Errorf("failed to update inquiry status: %w", err)
	}
	return expectAffected(result, "inquiry", id)
}

func (r *inquiryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM inquiries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete inquiry: %w", err)
	}
	return expectAffected(result, "inquiry", id)
}
