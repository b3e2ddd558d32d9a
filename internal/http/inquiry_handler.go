package http

import (
	"net/http"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/pkg/logger"
)

type InquiryHandler struct {
	service domain.InquiryService
	logger  logger.Logger
}

func NewInquiryHandler(service domain.InquiryService, logger logger.Logger) *InquiryHandler {
	return &InquiryHandler{
		service: service,
		logger:  logger,
	}
}

func (h *InquiryHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin, limit Middleware) {
	mux.Handle("/api/inquiries.create", limit(http.HandlerFunc(h.handleCreate)))

	mux.Handle("/admin/api/inquiries.list", requireAdmin(http.HandlerFunc(h.handleList)))
	mux.Handle("/admin/api/inquiries.updateStatus", requireAdmin(http.HandlerFunc(h.handleUpdateStatus)))
	mux.Handle("/admin/api/inquiries.delete", requireAdmin(http.HandlerFunc(h.handleDelete)))
}

func (h *InquiryHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req domain.CreateInquiryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	inquiry, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to submit inquiry")
		return
	}
	writeJSON(w, http.StatusCreated, inquiry)
}

func (h *InquiryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	var filter domain.InquiryFilter
	if err := filter.FromURLParams(r.URL.Query()); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list inquiries")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *InquiryHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req domain.UpdateInquiryStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateStatus(r.Context(), req); err != nil {
		writeServiceError(w, h.logger, err, "Failed to update inquiry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *InquiryHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
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
		writeServiceError(w, h.logger, err, "Failed to delete inquiry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
