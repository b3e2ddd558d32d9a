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

var productColumns = []string{
	"p.id", "p.slug", "p.name", "p.brand", "p.description", "p.image_url", "p.category_id",
	"COALESCE(c.slug, '')", "p.price_cents", "p.min_order_qty", "p.is_active", "p.created_at", "p.updated_at",
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(db *sql.DB) domain.ProductRepository {
	return &productRepository{db: db}
}

func scanProduct(s scanner) (*domain.Product, error) {
	var (
		p          domain.Product
		categoryID sql.NullString
	)
	if err := s.Scan(
		&p.ID, &p.Slug, &p.Name, &p.Brand, &p.Description, &p.ImageURL, &categoryID,
		&p.CategorySlug, &p.PriceCents, &p.MinOrderQty, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if categoryID.Valid {
		p.CategoryID = &categoryID.String
	}
	return &p, nil
}

func (r *productRepository) baseSelect(columns ...string) sq.SelectBuilder {
	return psql.Select(columns...).
		From("products p").
		LeftJoin("categories c ON c.id = p.category_id")
}

func applyProductFilter(b sq.SelectBuilder, f domain.ProductFilter) sq.SelectBuilder {
	if f.CategorySlug != "" {
		b = b.Where(sq.Eq{"c.slug": f.CategorySlug})
	}
	if f.ActiveOnly {
		b = b.Where(sq.Eq{"p.is_active": true})
	}
	if f.Query != "" {
		pattern := likePattern(f.Query)
		b = b.Where(sq.Or{sq.ILike{"p.name": pattern}, sq.ILike{"p.brand": pattern}})
	}
	return b
}

func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int, error) {
	countQuery, countArgs, err := applyProductFilter(r.baseSelect("COUNT(*)"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query, args, err := paginate(applyProductFilter(r.baseSelect(productColumns...), filter).
		OrderBy("p.name ASC", "p.id ASC"), filter.Limit, filter.Offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}

	products, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}
	return products, nil
}

func (r *productRepository) getOne(ctx context.Context, where sq.Eq, id string) (*domain.Product, error) {
	query, args, err := r.baseSelect(productColumns...).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Entity: "product", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.getOne(ctx, sq.Eq{"p.id": id}, id)
}

func (r *productRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return r.getOne(ctx, sq.Eq{"p.slug": slug}, slug)
}

func (r *productRepository) Search(ctx context.Context, q string, limit int) ([]*domain.Product, error) {
	query, args, err := applyProductFilter(r.baseSelect(productColumns...), domain.ProductFilter{Query: q, ActiveOnly: true}).
		OrderBy("p.name ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.query(ctx, query, args...)
}

func (r *productRepository) SlugsWithPrefix(ctx context.Context, base string) ([]string, error) {
	query, args, err := psql.Select("slug").
		From("products").
		Where(sq.Or{sq.Eq{"slug": base}, sq.Like{"slug": base + "-%"}}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query slugs: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan slug: %w", err)
		}
		slugs = append(slugs, s)
	}
	return slugs, rows.Err()
}

func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	query, args, err := psql.Insert("products").
		Columns("id", "slug", "name", "brand", "description", "image_url", "category_id",
			"price_cents", "min_order_qty", "is_active", "created_at", "updated_at").
		Values(p.ID, p.Slug, p.Name, p.Brand, p.Description, p.ImageURL, nullableString(p.CategoryID),
			p.PriceCents, p.MinOrderQty, p.IsActive, p.CreatedAt, p.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return &domain.ErrConflict{Entity: "product", Message: fmt.Sprintf("slug %q is taken", p.Slug)}
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *productRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	query, args, err := psql.Update("products").
		Set("slug", p.Slug).
		Set("name", p.Name).
		Set("brand", p.Brand).
		Set("description", p.Description).
		Set("image_url", p.ImageURL).
		Set("category_id", nullableString(p.CategoryID)).
		Set("price_cents", p.PriceCents).
		Set("min_order_qty", p.MinOrderQty).
		Set("is_active", p.IsActive).
		Set("updated_at", p.UpdatedAt).
		Where(sq.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ErrConflict{Entity: "product", Message: fmt.Sprintf("slug %q is taken", p.Slug)}
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	return expectAffected(result, "product", p.ID)
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return expectAffected(result, "product", id)
}

// expectAffected turns a zero-row write into ErrNotFound.
func expectAffected(result sql.Result, entity, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return &domain.ErrNotFound{Entity: entity, ID: id}
	}
	return nil
}
