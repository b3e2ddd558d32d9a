package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/internal/domain/mocks"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newSubscriberFixture(t *testing.T, requireSignature bool) (*SubscriberService, *mocks.MockSubscriberRepository) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSubscriberRepository(ctrl)
	signer := NewUnsubscribeSigner(testSecret, "https://shop.example.com")
	return NewSubscriberService(repo, signer, requireSignature, newMockLogger(ctrl)), repo
}

func notFound(email string) error {
	return &domain.ErrNotFound{Entity: "subscriber", ID: email}
}

func TestSubscriberService_Subscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("new address is normalized and named", func(t *testing.T) {
		svc, repo := newSubscriberFixture(t, false)

		repo.EXPECT().GetByEmail(gomock.Any(), "john.smith@x.com").Return(nil, notFound("john.smith@x.com"))
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, s *domain.Subscriber) error {
				assert.Equal(t, "john.smith@x.com", s.Email)
				assert.Equal(t, "John Smith", s.Name)
				assert.Equal(t, domain.SubscriberStatusActive, s.Status)
				assert.Equal(t, "website", s.Source)
				return nil
			})

		res, err := svc.Subscribe(ctx, domain.SubscribeRequest{Email: "  John.Smith@X.com "})
		require.NoError(t, err)
		assert.False(t, res.AlreadySubscribed)
		assert.False(t, res.Resubscribed)
		assert.Equal(t, "John Smith", res.Subscriber.Name)
	})

	t.Run("info address", func(t *testing.T) {
		svc, repo := newSubscriberFixture(t, false)

		repo.EXPECT().GetByEmail(gomock.Any(), "info@x.com").Return(nil, notFound("info@x.com"))
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		res, err := svc.Subscribe(ctx, domain.SubscribeRequest{Email: "info@x.com"})
		require.NoError(t, err)
		assert.Equal(t, "Info", res.Subscriber.Name)
	})

	t.Run("active address is not written", func(t *testing.T) {
		svc, repo := newSubscriberFixture(t, false)

		repo.EXPECT().GetByEmail(gomock.Any(), "a@x.com").
			Return(&domain.Subscriber{ID: "s1", Email: "a@x.com", Status: domain.SubscriberStatusActive}, nil)

		res, err := svc.Subscribe(ctx, domain.SubscribeRequest{Email: "a@x.com"})
		require.NoError(t, err)
		assert.True(t, res.AlreadySubscribed)
	})

	t.Run("unsubscribed address is reactivated in place", func(t *testing.T) {
		svc, repo := newSubscriberFixture(t, false)
		left := time.Now().Add(-time.Hour)

		repo.EXPECT().GetByEmail(gomock.Any(), "a@x.com").
			Return(&domain.Subscriber{ID: "s1", Email: "a@x.com", Status: domain.SubscriberStatusUnsubscribed, UnsubscribedAt: &left}, nil)
		repo.EXPECT().UpdateStatus(gomock.Any(), "s1", domain.SubscriberStatusActive, gomock.Any()).Return(nil)

		res, err := svc.Subscribe(ctx, domain.SubscribeRequest{Email: "a@x.com"})
		require.NoError(t, err)
		assert.True(t, res.Resubscribed)
		assert.Equal(t, "s1", res.Subscriber.ID)
		assert.Equal(t, domain.SubscriberStatusActive, res.Subscriber.Status)
		assert.Nil(t, res.Subscriber.UnsubscribedAt)
	})

	t.Run("invalid address", func(t *testing.T) {
		svc, _ := newSubscriberFixture(t, false)

		_, err := svc.Subscribe(ctx, domain.SubscribeRequest{Email: "not-an-email"})
		assert.True(t, domain.IsValidation(err))

		_, err = svc.Subscribe(ctx, domain.SubscribeRequest{Email: "   "})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("concurrent insert resolves to already subscribed", func(t *testing.T) {
		svc, repo := newSubscriberFixture(t, false)

		repo.EXPECT().GetByEmail(gomock.Any(), "a@x.com").Return(nil, notFound("a@x.com"))
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&domain.ErrConflict{Entity: "subscriber"})

		res, err := svc.Subscribe(ctx, domain.SubscribeRequest{Email: "a@x.com"})
		require.NoError(t, err)
		assert.True(t, res.AlreadySubscribed)
	})

	t.Run("lookup failure", func(t *testing.T) {
		svc, repo := newSubscriberFixture(t, false)

		repo.EXPECT().GetByEmail(gomock.Any(), "a@x.com").Return(nil, errors.New("db down"))

		_, err := svc.Subscribe(ctx, domain.SubscribeRequest{Email: "a@x.com"})
		require.Error(t, err)
		assert.False(t, domain.IsValidation(err))
	})
}

func TestSubscriberService_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	signer := NewUnsubscribeSigner(testSecret, "https://shop.example.com")

	t.Run("active subscriber", func(t *testing.T) {
		svc, repo := newSubscriberFixture(t, false)

		repo.EXPECT().GetByEmail(gomock.Any(), "a@x.com").
			Return(&domain.Subscriber{ID: "s1", Status: domain.SubscriberStatusActive}, nil)
		repo.EXPECT().UpdateStatus(gomock.Any(), "s1", domain.SubscriberStatusUnsubscribed, gomock.Any()).Return(nil)

		require.NoError(t, svc.Unsubscribe(ctx, domain.UnsubscribeRequest{Email: "A@x.com"}))
	})

	t.Run("idempotent", func(t *testing.T) {
		svc, repo := newSubscriberFixture(t, false)

		repo.EXPECT().GetByEmail(gomock.Any(), "a@x.com").
			Return(&domain.Subscriber{ID: "s1", Status: domain.SubscriberStatusUnsubscribed}, nil)
		repo.EXPECT().GetByEmail(gomock.Any(), "ghost@x.com").Return(nil, notFound("ghost@x.com"))

		require.NoError(t, svc.Unsubscribe(ctx, domain.UnsubscribeRequest{Email: "a@x.com"}))
		require.NoError(t, svc.Unsubscribe(ctx, domain.UnsubscribeRequest{Email: "ghost@x.com"}))
	})

	t.Run("signature required", func(t *testing.T) {
		svc, repo := newSubscriberFixture(t, true)

		err := svc.Unsubscribe(ctx, domain.UnsubscribeRequest{Email: "a@x.com"})
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)

		err = svc.Unsubscribe(ctx, domain.UnsubscribeRequest{Email: "a@x.com", Signature: signer.Sign("b@x.com")})
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)

		repo.EXPECT().GetByEmail(gomock.Any(), "a@x.com").
			Return(&domain.Subscriber{ID: "s1", Status: domain.SubscriberStatusUnsubscribed}, nil)
		assert.NoError(t, svc.Unsubscribe(ctx, domain.UnsubscribeRequest{Email: "a@x.com", Signature: signer.Sign("a@x.com")}))
	})

	t.Run("tampered signature rejected even when optional", func(t *testing.T) {
		svc, _ := newSubscriberFixture(t, false)

		err := svc.Unsubscribe(ctx, domain.UnsubscribeRequest{Email: "a@x.com", Signature: "deadbeef"})
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("email required", func(t *testing.T) {
		svc, _ := newSubscriberFixture(t, false)
		assert.True(t, domain.IsValidation(svc.Unsubscribe(ctx, domain.UnsubscribeRequest{})))
	})
}

func TestSubscriberService_UpdateStatus(t *testing.T) {
	svc, repo := newSubscriberFixture(t, false)
	ctx := context.Background()

	err := svc.UpdateStatus(ctx, domain.UpdateSubscriberStatusRequest{ID: "s1", Status: "paused"})
	assert.True(t, domain.IsValidation(err))

	repo.EXPECT().UpdateStatus(gomock.Any(), "s1", domain.SubscriberStatusUnsubscribed, gomock.Any()).
		Return(&domain.ErrNotFound{Entity: "subscriber", ID: "s1"})
	err = svc.UpdateStatus(ctx, domain.UpdateSubscriberStatusRequest{ID: "s1", Status: domain.SubscriberStatusUnsubscribed})
	assert.True(t, domain.IsNotFound(err))
}

func TestUnsubscribeSigner(t *testing.T) {
	signer := NewUnsubscribeSigner(testSecret, "https://shop.example.com")

	sig := signer.Sign("a@x.com")
	assert.Len(t, sig, 64)
	assert.True(t, signer.Verify("a@x.com", sig))
	assert.False(t, signer.Verify("b@x.com", sig))
	assert.False(t, signer.Verify("a@x.com", "zz"))

	other := NewUnsubscribeSigner("another-secret-another-secret-xx", "https://shop.example.com")
	assert.False(t, other.Verify("a@x.com", sig))

	assert.Equal(t, "https://shop.example.com/unsubscribe?email=a%40x.com&sig="+sig, signer.URL("a@x.com"))
}
