package http

import (
	"net/http"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/pkg/logger"
)

// Middleware wraps a handler; RegisterRoutes takes the admin session gate as one.
type Middleware = func(http.Handler) http.Handler

type CatalogHandler struct {
	service domain.CatalogService
	logger  logger.Logger
}

func NewCatalogHandler(service domain.CatalogService, logger logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger,
	}
}

func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin Middleware) {
	// Public storefront
	mux.HandleFunc("/api/products.list", h.handleListProducts)
	mux.HandleFunc("/api/products.get", h.handleGetProduct)
	mux.HandleFunc("/api/products.search", h.handleSearchProducts)
	mux.HandleFunc("/api/categories.list", h.handleListCategories)

	// Admin catalog management
	mux.Handle("/admin/api/products.list", requireAdmin(http.HandlerFunc(h.handleAdminListProducts)))
	mux.Handle("/admin/api/products.create", requireAdmin(http.HandlerFunc(h.handleCreateProduct)))
	mux.Handle("/admin/api/products.update", requireAdmin(http.HandlerFunc(h.handleUpdateProduct)))
	mux.Handle("/admin/api/products.delete", requireAdmin(http.HandlerFunc(h.handleDeleteProduct)))
	mux.Handle("/admin/api/categories.create", requireAdmin(http.HandlerFunc(h.handleCreateCategory)))
	mux.Handle("/admin/api/categories.delete", requireAdmin(http.HandlerFunc(h.handleDeleteCategory)))
}

func (h *CatalogHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, true)
}

func (h *CatalogHandler) handleAdminListProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, false)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	var filter domain.ProductFilter
	if err := filter.FromURLParams(r.URL.Query()); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	filter.ActiveOnly = activeOnly

	page, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list products")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	slug := r.URL.Query().Get("slug")
	if slug == "" {
		WriteJSONError(w, "Missing slug", http.StatusBadRequest)
		return
	}

	product, err := h.service.GetProductBySlug(r.Context(), slug)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to get product")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	products, err := h.service.SearchProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to search products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list categories")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req domain.CreateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create product")
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req domain.UpdateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to update product")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req domain.DeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteProduct(r.Context(), req.ID); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete product")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CatalogHandler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req domain.CreateCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	category, err := h.service.CreateCategory(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create category")
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *CatalogHandler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req domain.DeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteCategory(r.Context(), req.ID); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete category")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
