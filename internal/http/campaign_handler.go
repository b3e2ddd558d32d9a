package http

import (
	"html/template"
	"net/http"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/pkg/logger"
)

// previewSandboxCSP is applied to the raw preview document. The rendered email
// may contain arbitrary text block markup, so it gets no script or origin.
const previewSandboxCSP = "sandbox; default-src 'none'; img-src * data:; style-src 'unsafe-inline'"

var previewPage = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Preview: {{.Subject}}</title>
<style>body{margin:0;font-family:Arial,sans-serif;background:#eee}header{padding:12px 16px;background:#fff}iframe{display:block;width:100%;height:calc(100vh - 60px);border:0;background:#fff}.issues{color:#b45309;margin:4px 0 0}</style>
</head>
<body>
<header>
<strong>{{if .Subject}}{{.Subject}}{{else}}(no subject){{end}}</strong>
{{if .Issues}}<ul class="issues">{{range .Issues}}<li>Block {{.Index}} ({{.Type}}): {{.Message}}</li>{{end}}</ul>{{end}}
</header>
<iframe sandbox title="Email preview" srcdoc="{{.HTML}}"></iframe>
</body>
</html>`))

type CampaignHandler struct {
	campaigns domain.CampaignService
	drafts    domain.DraftService
	logger    logger.Logger
}

func NewCampaignHandler(campaigns domain.CampaignService, drafts domain.DraftService, logger logger.Logger) *CampaignHandler {
	return &CampaignHandler{
		campaigns: campaigns,
		drafts:    drafts,
		logger:    logger,
	}
}

func (h *CampaignHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin Middleware) {
	// Session draft
	mux.Handle("/admin/api/drafts.get", requireAdmin(http.HandlerFunc(h.handleGetDraft)))
	mux.Handle("/admin/api/drafts.save", requireAdmin(http.HandlerFunc(h.handleSaveDraft)))
	mux.Handle("/admin/api/drafts.startFromTemplate", requireAdmin(http.HandlerFunc(h.handleStartFromTemplate)))
	mux.Handle("/admin/api/drafts.clear", requireAdmin(http.HandlerFunc(h.handleClearDraft)))

	// Campaigns
	mux.Handle("/admin/api/campaigns.preview", requireAdmin(http.HandlerFunc(h.handlePreview)))
	mux.Handle("/admin/api/campaigns.send", requireAdmin(http.HandlerFunc(h.handleSend)))
	mux.Handle("/admin/api/campaigns.list", requireAdmin(http.HandlerFunc(h.handleList)))
	mux.Handle("/admin/api/campaigns.get", requireAdmin(http.HandlerFunc(h.handleGet)))

	// Preview sandbox pages
	mux.Handle("/admin/campaigns/preview", requireAdmin(http.HandlerFunc(h.handlePreviewPage)))
	mux.Handle("/admin/campaigns/preview.raw", requireAdmin(http.HandlerFunc(h.handlePreviewRaw)))
}

func (h *CampaignHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	admin, ok := adminSession(r)
	if !ok {
		WriteJSONError(w, "Authentication required", http.StatusUnauthorized)
		return "", false
	}
	return admin.SessionID, true
}

func (h *CampaignHandler) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	draft, err := h.drafts.Get(r.Context(), sid)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to load draft")
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *CampaignHandler) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var draft domain.CampaignDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := h.drafts.Save(r.Context(), sid, &draft)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to save draft")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

type startFromTemplateRequest struct {
	TemplateID string `json:"template_id"`
}

func (h *CampaignHandler) handleStartFromTemplate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req startFromTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.TemplateID == "" {
		WriteJSONError(w, "Missing template ID", http.StatusBadRequest)
		return
	}

	draft, err := h.drafts.StartFromTemplate(r.Context(), sid, req.TemplateID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to start draft from template")
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *CampaignHandler) handleClearDraft(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.drafts.Clear(r.Context(), sid); err != nil {
		writeServiceError(w, h.logger, err, "Failed to clear draft")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CampaignHandler) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var draft domain.CampaignDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	preview, err := h.campaigns.Preview(r.Context(), &draft)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to render preview")
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *CampaignHandler) handleSend(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req domain.SendCampaignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.campaigns.Send(r.Context(), sid, req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to send campaign")
		return
	}

	status := http.StatusOK
	if result.Campaign != nil && !result.Duplicate {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (h *CampaignHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	campaigns, err := h.campaigns.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list campaigns")
		return
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (h *CampaignHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		WriteJSONError(w, "Missing campaign ID", http.StatusBadRequest)
		return
	}

	campaign, err := h.campaigns.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to get campaign")
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

// renderSessionDraft renders the caller's draft leniently for the preview pages.
func (h *CampaignHandler) renderSessionDraft(w http.ResponseWriter, r *http.Request) (*domain.CampaignDraft, *domain.PreviewResult, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, nil, false
	}
	admin, ok := adminSession(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return nil, nil, false
	}

	draft, err := h.drafts.Get(r.Context(), admin.SessionID)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to load draft for preview")
		http.Error(w, "Failed to load draft", http.StatusInternalServerError)
		return nil, nil, false
	}

	preview, err := h.campaigns.Preview(r.Context(), draft)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to render preview")
		http.Error(w, "Failed to render preview", http.StatusInternalServerError)
		return nil, nil, false
	}
	return draft, preview, true
}

func (h *CampaignHandler) handlePreviewPage(w http.ResponseWriter, r *http.Request) {
	draft, preview, ok := h.renderSessionDraft(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")
	if err := previewPage.Execute(w, map[string]interface{}{
		"Subject": draft.SubjectLine,
		"Issues":  preview.Issues,
		"HTML":    preview.HTML,
	}); err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to write preview page")
	}
}

func (h *CampaignHandler) handlePreviewRaw(w http.ResponseWriter, r *http.Request) {
	_, preview, ok := h.renderSessionDraft(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", previewSandboxCSP)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(preview.HTML))
}
