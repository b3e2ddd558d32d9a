package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wholesail/wholesail/internal/domain"
)

func newAuthFixture(t *testing.T) *AuthService {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	return NewAuthService(AuthConfig{
		SecretKey:         testSecret,
		AdminEmail:        "owner@shop.example.com",
		AdminPasswordHash: string(hash),
		SessionTTL:        time.Hour,
	}, newMockLogger(ctrl))
}

func TestAuthService_LoginAndVerify(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, domain.LoginRequest{Email: " Owner@Shop.example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "owner@shop.example.com", session.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)

	admin, err := svc.VerifySession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "owner@shop.example.com", admin.Email)
	assert.NotEmpty(t, admin.SessionID)

	again, err := svc.VerifySession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, admin.SessionID, again.SessionID)
}

func TestAuthService_Login_Rejected(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, domain.LoginRequest{Email: "owner@shop.example.com", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, domain.LoginRequest{Email: "intruder@shop.example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, domain.LoginRequest{Email: "owner@shop.example.com"})
	assert.True(t, domain.IsValidation(err))
}

func TestAuthService_VerifySession_Rejected(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, domain.LoginRequest{Email: "owner@shop.example.com", Password: "correct horse"})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { svc.now = time.Now }()

		_, err := svc.VerifySession(ctx, session.Token)
		assert.ErrorIs(t, err, domain.ErrSessionInvalid)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := svc.VerifySession(ctx, session.Token+"x")
		assert.ErrorIs(t, err, domain.ErrSessionInvalid)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := svc.VerifySession(ctx, "")
		assert.ErrorIs(t, err, domain.ErrSessionInvalid)
	})

	t.Run("other key", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ID:        "x",
			Subject:   "owner@shop.example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString([]byte("not-the-server-secret-not-the-server"))
		require.NoError(t, err)

		_, err = svc.VerifySession(ctx, forged)
		assert.ErrorIs(t, err, domain.ErrSessionInvalid)
	})

	t.Run("unsigned", func(t *testing.T) {
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			ID:        "x",
			Subject:   "owner@shop.example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.VerifySession(ctx, none)
		assert.ErrorIs(t, err, domain.ErrSessionInvalid)
	})
}
