package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/pkg/cache"
	"github.com/wholesail/wholesail/pkg/logger"
	"github.com/wholesail/wholesail/pkg/slug"
	"github.com/wholesail/wholesail/pkg/tracing"
)

const (
	catalogCacheTTL       = 5 * time.Minute
	productsCachePrefix   = "products:"
	categoriesCachePrefix = "categories:"
)

type CatalogService struct {
	products   domain.ProductRepository
	categories domain.CategoryRepository
	cache      cache.Cache
	logger     logger.Logger
}

func NewCatalogService(products domain.ProductRepository, categories domain.CategoryRepository, c cache.Cache, logger logger.Logger) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
		cache:      c,
		logger:     logger,
	}
}

func productListKey(f domain.ProductFilter) string {
	return productsCachePrefix + "list:" + f.CategorySlug + "|" + f.Query + "|" +
		strconv.FormatBool(f.ActiveOnly) + "|" + strconv.Itoa(f.Limit) + "|" + strconv.Itoa(f.Offset)
}

// invalidate drops every cached read a catalog mutation can affect.
func (s *CatalogService) invalidate() {
	s.cache.DeletePrefix(productsCachePrefix)
	s.cache.DeletePrefix(categoriesCachePrefix)
}

func (s *CatalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.ProductPage, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "CatalogService", "ListProducts")
	defer span.End()

	v, err := s.cache.GetOrSet(productListKey(filter), catalogCacheTTL, func() (interface{}, error) {
		products, total, err := s.products.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return &domain.ProductPage{Products: products, Total: total}, nil
	})
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		s.logger.WithField("category", filter.CategorySlug).Error(fmt.Sprintf("Failed to list products: %v", err))
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return v.(*domain.ProductPage), nil
}

func (s *CatalogService) GetProductBySlug(ctx context.Context, productSlug string) (*domain.Product, error) {
	v, err := s.cache.GetOrSet(productsCachePrefix+"slug:"+productSlug, catalogCacheTTL, func() (interface{}, error) {
		return s.products.GetBySlug(ctx, productSlug)
	})
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		s.logger.WithField("slug", productSlug).Error(fmt.Sprintf("Failed to get product: %v", err))
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	p := v.(*domain.Product)
	if !p.IsActive {
		return nil, &domain.ErrNotFound{Entity: "product", ID: productSlug}
	}
	return p, nil
}

// SearchProducts backs search-as-you-type. Queries shorter than
// MinSearchLength return no results without touching the database.
func (s *CatalogService) SearchProducts(ctx context.Context, query string) ([]*domain.Product, error) {
	if len([]rune(query)) < domain.MinSearchLength {
		return []*domain.Product{}, nil
	}

	products, err := s.products.Search(ctx, query, domain.SearchResultLimit)
	if err != nil {
		s.logger.WithField("query", query).Error(fmt.Sprintf("Failed to search products: %v", err))
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "CatalogService", "CreateProduct")
	defer span.End()

	p, err := req.Validate()
	if err != nil {
		return nil, invalid(err)
	}

	base := slug.Slugify(p.Brand + " " + p.Name)
	if base == "" {
		return nil, domain.NewValidationError("name must contain at least one letter or digit")
	}
	taken, err := s.products.SlugsWithPrefix(ctx, base)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to check product slug: %w", err)
	}
	p.Slug = slug.Next(base, taken)
	p.ID = uuid.New().String()

	if err := s.products.Create(ctx, p); err != nil {
		tracing.MarkSpanError(ctx, err)
		if domain.IsConflict(err) {
			return nil, err
		}
		s.logger.WithField("product_slug", p.Slug).Error(fmt.Sprintf("Failed to create product: %v", err))
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.invalidate()
	return p, nil
}

// UpdateProduct keeps the product's slug so published links stay valid.
func (s *CatalogService) UpdateProduct(ctx context.Context, req domain.UpdateProductRequest) (*domain.Product, error) {
	p, err := req.Validate()
	if err != nil {
		return nil, invalid(err)
	}

	existing, err := s.products.GetByID(ctx, p.ID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	p.Slug = existing.Slug
	p.CreatedAt = existing.CreatedAt

	if err := s.products.Update(ctx, p); err != nil {
		if isDomainError(err) {
			return nil, err
		}
		s.logger.WithField("product_id", p.ID).Error(fmt.Sprintf("Failed to update product: %v", err))
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.invalidate()
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if domain.IsNotFound(err) {
			return err
		}
		s.logger.WithField("product_id", id).Error(fmt.Sprintf("Failed to delete product: %v", err))
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.invalidate()
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	v, err := s.cache.GetOrSet(categoriesCachePrefix+"all", catalogCacheTTL, func() (interface{}, error) {
		return s.categories.List(ctx)
	})
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to list categories: %v", err))
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return v.([]*domain.Category), nil
}

// CreateCategory rejects a name whose slug is already taken: "Home Goods!"
// and "home goods" collide.
func (s *CatalogService) CreateCategory(ctx context.Context, req domain.CreateCategoryRequest) (*domain.Category, error) {
	c := &domain.Category{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Slug:        slug.Slugify(req.Name),
		Description: req.Description,
	}
	if err := c.Validate(); err != nil {
		return nil, invalid(err)
	}

	_, err := s.categories.GetBySlug(ctx, c.Slug)
	switch {
	case err == nil:
		return nil, &domain.ErrConflict{Entity: "category", Message: fmt.Sprintf("a category with slug %q already exists", c.Slug)}
	case !domain.IsNotFound(err):
		return nil, fmt.Errorf("failed to check category slug: %w", err)
	}

	if err := s.categories.Create(ctx, c); err != nil {
		if domain.IsConflict(err) {
			return nil, err
		}
		s.logger.WithField("category_slug", c.Slug).Error(fmt.Sprintf("Failed to create category: %v", err))
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.invalidate()
	return c, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		if domain.IsNotFound(err) {
			return err
		}
		s.logger.WithField("category_id", id).Error(fmt.Sprintf("Failed to delete category: %v", err))
		return fmt.Errorf("failed to delete category: %w", err)
	}
	s.invalidate()
	return nil
}
