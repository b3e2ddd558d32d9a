package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/pkg/logger"
)

// SessionVerifier resolves a session cookie value to the signed-in admin.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*domain.Admin, error)
}

// SessionConfig holds the configuration for the admin session gate.
type SessionConfig struct {
	Verifier  SessionVerifier
	LoginPath string
	// SecureCookie marks cookies Secure; set outside development.
	SecureCookie bool
	Logger       logger.Logger
}

func NewSessionMiddleware(verifier SessionVerifier, loginPath string, secureCookie bool, log logger.Logger) *SessionConfig {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &SessionConfig{Verifier: verifier, LoginPath: loginPath, SecureCookie: secureCookie, Logger: log}
}

// RequireAdmin lets a request through only with a valid admin session cookie.
// API calls under /admin/api/ are refused with 401, page loads are redirected
// to the login page.
func (sc *SessionConfig) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(domain.SessionCookieName)
		if err != nil || cookie.Value == "" {
			sc.deny(w, r, "Authentication required")
			return
		}

		admin, err := sc.Verifier.VerifySession(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, domain.ErrSessionInvalid) {
				sc.Logger.WithField("error", err.Error()).Error("Failed to verify admin session")
				writeJSONError(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			ClearSessionCookie(w, sc.SecureCookie)
			sc.deny(w, r, "Session expired")
			return
		}

		next.ServeHTTP(w, r.WithContext(domain.ContextWithAdmin(r.Context(), admin)))
	})
}

func (sc *SessionConfig) deny(w http.ResponseWriter, r *http.Request, message string) {
	if strings.HasPrefix(r.URL.Path, "/admin/api/") || r.Method != http.MethodGet {
		writeJSONError(w, message, http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, sc.LoginPath, http.StatusFound)
}

// SetSessionCookie stores the session token in an HTTP-only cookie scoped to the site.
func SetSessionCookie(w http.ResponseWriter, session *domain.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     domain.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     domain.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeJSONError mirrors the API envelope for responses produced before a handler runs.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"data":  nil,
		"error": message,
	})
}
