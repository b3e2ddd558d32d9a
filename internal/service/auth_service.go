package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/pkg/logger"
)

// AuthConfig holds the single back-office account and session settings.
type AuthConfig struct {
	SecretKey         string
	AdminEmail        string
	AdminPasswordHash string
	SessionTTL        time.Duration
}

// AuthService issues and verifies admin sessions as HS256 JWTs.
type AuthService struct {
	key    []byte
	cfg    AuthConfig
	logger logger.Logger
	now    func() time.Time
}

func NewAuthService(cfg AuthConfig, logger logger.Logger) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	return &AuthService{
		key:    []byte(cfg.SecretKey),
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Login checks the admin credentials. The bcrypt comparison always runs so
// an unknown email takes as long as a wrong password.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	emailOK := subtle.ConstantTimeCompare([]byte(req.Email), []byte(s.cfg.AdminEmail)) == 1
	hash := []byte(s.cfg.AdminPasswordHash)
	if len(hash) == 0 {
		return nil, domain.ErrInvalidCredentials
	}
	passwordErr := bcrypt.CompareHashAndPassword(hash, []byte(req.Password))
	if !emailOK || passwordErr != nil {
		s.logger.WithField("email", req.Email).Warn("Failed admin login attempt")
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.cfg.SessionTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Subject:   req.Email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}

	s.logger.WithField("email", req.Email).Info("Admin logged in")
	return &domain.Session{Token: signed, Email: req.Email, ExpiresAt: expiresAt}, nil
}

// VerifySession parses the cookie value. The token id becomes the admin's
// SessionID, which scopes the campaign draft.
func (s *AuthService) VerifySession(ctx context.Context, token string) (*domain.Admin, error) {
	if token == "" {
		return nil, domain.ErrSessionInvalid
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if !errors.Is(err, jwt.ErrTokenExpired) {
			s.logger.Debug(fmt.Sprintf("Rejected session token: %v", err))
		}
		return nil, domain.ErrSessionInvalid
	}
	if claims.Subject != s.cfg.AdminEmail || claims.ID == "" {
		return nil, domain.ErrSessionInvalid
	}

	return &domain.Admin{Email: claims.Subject, SessionID: claims.ID}, nil
}
