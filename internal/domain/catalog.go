package domain

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
)

//go:generate mockgen -destination mocks/mock_catalog_service.go -package mocks github.com/wholesail/wholesail/internal/domain CatalogService
//go:generate mockgen -destination mocks/mock_product_repository.go -package mocks github.com/wholesail/wholesail/internal/domain ProductRepository
//go:generate mockgen -destination mocks/mock_category_repository.go -package mocks github.com/wholesail/wholesail/internal/domain CategoryRepository

const (
	DefaultPageSize   = 24
	MaxPageSize       = 100
	MinSearchLength   = 2
	SearchResultLimit = 10
)

// Product is a catalog item offered to retail buyers.
type Product struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Brand        string    `json:"brand"`
	Description  string    `json:"description,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	CategoryID   *string   `json:"category_id,omitempty"`
	CategorySlug string    `json:"category_slug,omitempty"`
	PriceCents   int64     `json:"price_cents"`
	MinOrderQty  int       `json:"min_order_qty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *Product) Validate() error {
	if p.Slug == "" {
		return fmt.Errorf("invalid product: slug is required")
	}
	return p.validateFields()
}

func (p *Product) validateFields() error {
	if p.Name == "" {
		return fmt.Errorf("invalid product: name is required")
	}
	if len(p.Name) > 255 {
		return fmt.Errorf("invalid product: name length must be between 1 and 255")
	}
	if p.Brand == "" {
		return fmt.Errorf("invalid product: brand is required")
	}
	if len(p.Brand) > 120 {
		return fmt.Errorf("invalid product: brand length must be between 1 and 120")
	}
	if p.ImageURL != "" && !govalidator.IsRequestURL(p.ImageURL) {
		return fmt.Errorf("invalid product: image_url must be a valid URL")
	}
	if p.PriceCents < 0 {
		return fmt.Errorf("invalid product: price_cents must not be negative")
	}
	if p.MinOrderQty < 1 {
		return fmt.Errorf("invalid product: min_order_qty must be at least 1")
	}
	return nil
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c *Category) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("invalid category: name is required")
	}
	if len(c.Name) > 120 {
		return fmt.Errorf("invalid category: name length must be between 1 and 120")
	}
	if c.Slug == "" {
		return fmt.Errorf("invalid category: name must contain at least one letter or digit")
	}
	return nil
}

// ProductFilter narrows product listings. Public callers always get ActiveOnly.
type ProductFilter struct {
	CategorySlug string `json:"category,omitempty"`
	Query        string `json:"q,omitempty"`
	ActiveOnly   bool   `json:"-"`
	Limit        int    `json:"limit"`
	Offset       int    `json:"offset"`
}

func (f *ProductFilter) FromURLParams(q url.Values) error {
	f.CategorySlug = strings.TrimSpace(q.Get("category"))
	f.Query = strings.TrimSpace(q.Get("q"))

	limit, offset, err := pageParams(q)
	if err != nil {
		return fmt.Errorf("invalid product filter: %w", err)
	}
	f.Limit, f.Offset = limit, offset
	return nil
}

// pageParams parses limit/offset with defaults and caps.
func pageParams(q url.Values) (limit, offset int, err error) {
	limit = DefaultPageSize
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return 0, 0, fmt.Errorf("limit must be a positive integer")
		}
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if v := q.Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

type ProductPage struct {
	Products []*Product `json:"products"`
	Total    int        `json:"total"`
}

type CreateProductRequest struct {
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	CategoryID  string `json:"category_id"`
	PriceCents  int64  `json:"price_cents"`
	MinOrderQty int    `json:"min_order_qty"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// Validate returns the product to create. Slug is left to the service.
func (r *CreateProductRequest) Validate() (*Product, error) {
	p := &Product{
		Name:        strings.TrimSpace(r.Name),
		Brand:       strings.TrimSpace(r.Brand),
		Description: r.Description,
		ImageURL:    strings.TrimSpace(r.ImageURL),
		PriceCents:  r.PriceCents,
		MinOrderQty: r.MinOrderQty,
		IsActive:    true,
	}
	if r.CategoryID != "" {
		id := r.CategoryID
		p.CategoryID = &id
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	if p.MinOrderQty == 0 {
		p.MinOrderQty = 1
	}
	if err := p.validateFields(); err != nil {
		return nil, err
	}
	return p, nil
}

type UpdateProductRequest struct {
	ID string `json:"id"`
	CreateProductRequest
}

func (r *UpdateProductRequest) Validate() (*Product, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("invalid update product request: id is required")
	}
	p, err := r.CreateProductRequest.Validate()
	if err != nil {
		return nil, err
	}
	p.ID = r.ID
	return p, nil
}

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type DeleteRequest struct {
	ID string `json:"id"`
}

func (r *DeleteRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("invalid delete request: id is required")
	}
	return nil
}

type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]*Product, int, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	Search(ctx context.Context, query string, limit int) ([]*Product, error)
	// SlugsWithPrefix returns existing slugs equal to base or starting with base + "-".
	SlugsWithPrefix(ctx context.Context, base string) ([]string, error)
	Create(ctx context.Context, product *Product) error
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id string) error
}

type CategoryRepository interface {
	List(ctx context.Context) ([]*Category, error)
	GetBySlug(ctx context.Context, slug string) (*Category, error)
	Create(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id string) error
}

type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductFilter) (*ProductPage, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	SearchProducts(ctx context.Context, query string) ([]*Product, error)
	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	UpdateProduct(ctx context.Context, req UpdateProductRequest) (*Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]*Category, error)
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error)
	DeleteCategory(ctx context.Context, id string) error
}
