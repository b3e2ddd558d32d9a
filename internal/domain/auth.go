package domain

import (
	"context"
	"time"
)

//go:generate mockgen -destination mocks/mock_auth_service.go -package mocks github.com/wholesail/wholesail/internal/domain AuthService

// SessionCookieName gates every /admin route.
const SessionCookieName = "admin_session"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	r.Email = NormalizeEmail(r.Email)
	if r.Email == "" || r.Password == "" {
		return NewValidationError("email and password are required")
	}
	return nil
}

// Session is an issued admin session. Token is the cookie value.
type Session struct {
	Token     string    `json:"-"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Admin is the verified caller of an /admin request. SessionID is stable for
// the lifetime of one cookie and scopes the campaign draft.
type Admin struct {
	Email     string
	SessionID string
}

type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*Session, error)
	VerifySession(ctx context.Context, token string) (*Admin, error)
}

type adminContextKey struct{}

func ContextWithAdmin(ctx context.Context, admin *Admin) context.Context {
	return context.WithValue(ctx, adminContextKey{}, admin)
}

func AdminFromContext(ctx context.Context) (*Admin, bool) {
	a, ok := ctx.Value(adminContextKey{}).(*Admin)
	return a, ok && a != nil
}
