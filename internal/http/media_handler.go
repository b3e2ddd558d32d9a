package http

import (
	"errors"
	"net/http"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/pkg/logger"
)

// multipartOverhead leaves room for form boundaries and the folder field on
// top of the file size cap.
const multipartOverhead = 1 << 20

type MediaHandler struct {
	service  domain.MediaService
	maxBytes int64
	logger   logger.Logger
}

// NewMediaHandler creates the media handler. maxBytes <= 0 uses domain.MaxMediaUploadBytes.
func NewMediaHandler(service domain.MediaService, maxBytes int64, logger logger.Logger) *MediaHandler {
	if maxBytes <= 0 {
		maxBytes = domain.MaxMediaUploadBytes
	}
	return &MediaHandler{
		service:  service,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

func (h *MediaHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin Middleware) {
	mux.Handle("/admin/api/media.upload", requireAdmin(http.HandlerFunc(h.handleUpload)))
	mux.Handle("/admin/api/media.list", requireAdmin(http.HandlerFunc(h.handleList)))
	mux.Handle("/admin/api/media.delete", requireAdmin(http.HandlerFunc(h.handleDelete)))
}

func (h *MediaHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	limit := h.maxBytes + multipartOverhead
	if r.ContentLength > limit {
		WriteJSONError(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteJSONError(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		WriteJSONError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteJSONError(w, "Missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	object, err := h.service.Upload(r.Context(), domain.UploadMediaRequest{
		Folder:   r.FormValue("folder"),
		Filename: header.Filename,
		Body:     file,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to upload file")
		return
	}
	writeJSON(w, http.StatusCreated, object)
}

func (h *MediaHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	objects, err := h.service.List(r.Context(), r.URL.Query().Get("folder"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list files")
		return
	}
	writeJSON(w, http.StatusOK, objects)
}

type deleteMediaRequest struct {
	Names []string `json:"names"`
}

func (h *MediaHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req deleteMediaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), req.Names); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete files")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": len(req.Names)})
}
