package http

import (
	"html/template"
	"net/http"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/internal/http/middleware"
	"github.com/wholesail/wholesail/pkg/logger"
)

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Sign in</title></head>
<body style="font-family:Arial,sans-serif;max-width:360px;margin:64px auto;">
<h1>Sign in</h1>
<form id="login">
<p><label>Email<br><input type="email" name="email" required></label></p>
<p><label>Password<br><input type="password" name="password" required></label></p>
<p><button type="submit">Sign in</button></p>
<p id="error" style="color:#b91c1c"></p>
</form>
<script>
document.getElementById('login').addEventListener('submit', async function (e) {
  e.preventDefault();
  const form = new FormData(e.target);
  const res = await fetch('/api/auth.login', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({email: form.get('email'), password: form.get('password')})
  });
  if (res.ok) { window.location.href = {{.Next}}; return; }
  const body = await res.json();
  document.getElementById('error').textContent = body.error || 'Sign in failed';
});
</script>
</body>
</html>`))

type AuthHandler struct {
	auth         domain.AuthService
	drafts       domain.DraftService
	secureCookie bool
	logger       logger.Logger
}

func NewAuthHandler(auth domain.AuthService, drafts domain.DraftService, secureCookie bool, logger logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		drafts:       drafts,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// RegisterRoutes mounts the login page and the login/logout endpoints. limit
// guards password attempts.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, limit Middleware) {
	mux.HandleFunc("/login", h.handleLoginPage)
	mux.Handle("/api/auth.login", limit(http.HandlerFunc(h.handleLogin)))
	mux.HandleFunc("/api/auth.logout", h.handleLogout)
}

func (h *AuthHandler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = loginPage.Execute(w, map[string]string{"Next": "/admin/campaigns/preview"})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.auth.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to sign in")
		return
	}

	middleware.SetSessionCookie(w, session, h.secureCookie)
	writeJSON(w, http.StatusOK, session)
}

// handleLogout drops the cookie and, when the session is still valid, the
// draft scoped to it.
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if cookie, err := r.Cookie(domain.SessionCookieName); err == nil && cookie.Value != "" {
		if admin, err := h.auth.VerifySession(r.Context(), cookie.Value); err == nil {
			if err := h.drafts.Clear(r.Context(), admin.SessionID); err != nil {
				h.logger.WithField("error", err.Error()).Warn("Failed to clear draft on logout")
			}
		}
	}

	middleware.ClearSessionCookie(w, h.secureCookie)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
