package http

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/pkg/botdetection"
	"github.com/wholesail/wholesail/pkg/logger"
)

var unsubscribePage = template.Must(template.New("unsubscribe").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family:Arial,sans-serif;text-align:center;padding:48px;">
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{if .Action}}<form method="post" action="{{.Action}}"><button type="submit">Unsubscribe</button></form>{{end}}
</body>
</html>`))

type SubscriberHandler struct {
	service domain.SubscriberService
	logger  logger.Logger
}

func NewSubscriberHandler(service domain.SubscriberService, logger logger.Logger) *SubscriberHandler {
	return &SubscriberHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts the public subscribe form behind limit and the admin
// endpoints behind requireAdmin.
func (h *SubscriberHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin, limit Middleware) {
	mux.Handle("/api/subscribers.subscribe", limit(http.HandlerFunc(h.handleSubscribe)))
	mux.HandleFunc("/unsubscribe", h.handleUnsubscribe)

	mux.Handle("/admin/api/subscribers.list", requireAdmin(http.HandlerFunc(h.handleList)))
	mux.Handle("/admin/api/subscribers.updateStatus", requireAdmin(http.HandlerFunc(h.handleUpdateStatus)))
	mux.Handle("/admin/api/subscribers.delete", requireAdmin(http.HandlerFunc(h.handleDelete)))
}

func (h *SubscriberHandler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req domain.SubscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Subscribe(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to subscribe")
		return
	}

	status := http.StatusCreated
	if result.AlreadySubscribed || result.Resubscribed {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// handleUnsubscribe serves the link embedded in campaign footers, so it
// answers with a page rather than JSON. A GET from a link scanner only gets a
// confirmation form; mail gateways prefetch every link in a message.
func (h *SubscriberHandler) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.Method == http.MethodGet && botdetection.IsAutomated(r.UserAgent()) {
		h.renderUnsubscribePage(w, http.StatusOK, unsubscribeView{
			Title:   "Unsubscribe",
			Message: "Confirm that you no longer want to receive our newsletter.",
			Action:  r.URL.RequestURI(),
		})
		return
	}

	q := r.URL.Query()
	err := h.service.Unsubscribe(r.Context(), domain.UnsubscribeRequest{
		Email:     q.Get("email"),
		Signature: q.Get("sig"),
	})

	switch {
	case err == nil:
		h.renderUnsubscribePage(w, http.StatusOK, unsubscribeView{Title: "You have been unsubscribed", Message: "You will no longer receive our newsletter."})
	case domain.IsValidation(err):
		h.renderUnsubscribePage(w, http.StatusBadRequest, unsubscribeView{Title: "Invalid link", Message: "This unsubscribe link is missing an email address."})
	case errors.Is(err, domain.ErrInvalidSignature):
		h.renderUnsubscribePage(w, http.StatusForbidden, unsubscribeView{Title: "Invalid link", Message: "This unsubscribe link is not valid."})
	default:
		h.logger.WithField("error", err.Error()).Error("Failed to unsubscribe")
		h.renderUnsubscribePage(w, http.StatusInternalServerError, unsubscribeView{Title: "Something went wrong", Message: "Please try again later."})
	}
}

type unsubscribeView struct {
	Title   string
	Message string
	Action  string
}

func (h *SubscriberHandler) renderUnsubscribePage(w http.ResponseWriter, status int, view unsubscribeView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = unsubscribePage.Execute(w, view)
}

func (h *SubscriberHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	var filter domain.SubscriberFilter
	if err := filter.FromURLParams(r.URL.Query()); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list subscribers")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *SubscriberHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req domain.UpdateSubscriberStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateStatus(r.Context(), req); err != nil {
		writeServiceError(w, h.logger, err, "Failed to update subscriber")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *SubscriberHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
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
		writeServiceError(w, h.logger, err, "Failed to delete subscriber")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
