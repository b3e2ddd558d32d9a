package http

import (
	"net/http"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/pkg/logger"
)

type TemplateHandler struct {
	service domain.TemplateService
	logger  logger.Logger
}

func NewTemplateHandler(service domain.TemplateService, logger logger.Logger) *TemplateHandler {
	return &TemplateHandler{
		service: service,
		logger:  logger,
	}
}

func (h *TemplateHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin Middleware) {
	mux.Handle("/admin/api/templates.list", requireAdmin(http.HandlerFunc(h.handleList)))
	mux.Handle("/admin/api/templates.get", requireAdmin(http.HandlerFunc(h.handleGet)))
	mux.Handle("/admin/api/templates.create", requireAdmin(http.HandlerFunc(h.handleCreate)))
	mux.Handle("/admin/api/templates.update", requireAdmin(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("/admin/api/templates.delete", requireAdmin(http.HandlerFunc(h.handleDelete)))
	mux.Handle("/admin/api/templates.compile", requireAdmin(http.HandlerFunc(h.handleCompile)))
}

func (h *TemplateHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	templates, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list templates")
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *TemplateHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		WriteJSONError(w, "Missing template ID", http.StatusBadRequest)
		return
	}

	tmpl, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to get template")
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (h *TemplateHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req domain.CreateTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tmpl, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create template")
		return
	}
	writeJSON(w, http.StatusCreated, tmpl)
}

func (h *TemplateHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req domain.UpdateTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tmpl, err := h.service.Update(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to update template")
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (h *TemplateHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.Delete(r.Context(), req.ID); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete template")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *TemplateHandler) handleCompile(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req domain.CompileTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	compiled, err := h.service.Compile(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to compile template")
		return
	}
	writeJSON(w, http.StatusOK, compiled)
}
