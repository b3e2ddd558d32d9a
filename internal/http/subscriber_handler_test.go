package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/internal/domain/mocks"
	"github.com/wholesail/wholesail/pkg/logger"
)

func setupSubscriberHandlerTest(t *testing.T) (*mocks.MockSubscriberService, *http.ServeMux) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockSubscriberService(ctrl)
	mux := http.NewServeMux()
	NewSubscriberHandler(svc, logger.NewMockLogger(t)).RegisterRoutes(mux, asAdmin, passthrough)
	return svc, mux
}

func TestSubscriberHandler_Subscribe(t *testing.T) {
	t.Run("new subscriber", func(t *testing.T) {
		svc, mux := setupSubscriberHandlerTest(t)
		svc.EXPECT().Subscribe(gomock.Any(), domain.SubscribeRequest{Email: "John.Smith@X.com"}).
			Return(&domain.SubscribeResult{Subscriber: &domain.Subscriber{Email: "john.smith@x.com", Name: "John Smith"}}, nil)

		rec := doRequest(t, mux, http.MethodPost, "/api/subscribers.subscribe", map[string]string{"email": "John.Smith@X.com"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		var result domain.SubscribeResult
		assert.Empty(t, decodeEnvelope(t, rec, &result))
		assert.Equal(t, "John Smith", result.Subscriber.Name)
		assert.False(t, result.AlreadySubscribed)
	})

	t.Run("already subscribed", func(t *testing.T) {
		svc, mux := setupSubscriberHandlerTest(t)
		svc.EXPECT().Subscribe(gomock.Any(), gomock.Any()).
			Return(&domain.SubscribeResult{Subscriber: &domain.Subscriber{Email: "info@x.com"}, AlreadySubscribed: true}, nil)

		rec := doRequest(t, mux, http.MethodPost, "/api/subscribers.subscribe", map[string]string{"email": "info@x.com"})

		assert.Equal(t, http.StatusOK, rec.Code)
		var result domain.SubscribeResult
		decodeEnvelope(t, rec, &result)
		assert.True(t, result.AlreadySubscribed)
	})

	t.Run("invalid email", func(t *testing.T) {
		svc, mux := setupSubscriberHandlerTest(t)
		svc.EXPECT().Subscribe(gomock.Any(), gomock.Any()).
			Return(nil, domain.NewValidationError("email is not a valid address"))

		rec := doRequest(t, mux, http.MethodPost, "/api/subscribers.subscribe", map[string]string{"email": "nope"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation error: email is not a valid address", decodeEnvelope(t, rec, nil))
	})

	t.Run("rate limited", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockSubscriberService(ctrl)
		limited := func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				WriteJSONError(w, "Too many requests", http.StatusTooManyRequests)
			})
		}
		mux := http.NewServeMux()
		NewSubscriberHandler(svc, logger.NewMockLogger(t)).RegisterRoutes(mux, asAdmin, limited)

		rec := doRequest(t, mux, http.MethodPost, "/api/subscribers.subscribe", map[string]string{"email": "a@b.co"})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})
}

func TestSubscriberHandler_Unsubscribe(t *testing.T) {
	t.Run("unsubscribes from the link", func(t *testing.T) {
		svc, mux := setupSubscriberHandlerTest(t)
		svc.EXPECT().Unsubscribe(gomock.Any(), domain.UnsubscribeRequest{Email: "jane@x.com", Signature: "abc"}).Return(nil)

		rec := doRequest(t, mux, http.MethodGet, "/unsubscribe?email=jane%40x.com&sig=abc", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), "You have been unsubscribed")
	})

	t.Run("link scanner gets a confirmation form", func(t *testing.T) {
		_, mux := setupSubscriberHandlerTest(t)

		req := httptest.NewRequest(http.MethodGet, "/unsubscribe?email=jane%40x.com&sig=abc", nil)
		req.Header.Set("User-Agent", "Microsoft SafeLinks/1.0")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "You have been unsubscribed")
		assert.Contains(t, rec.Body.String(), `<form method="post" action="/unsubscribe?email=jane%40x.com&amp;sig=abc">`)
	})

	t.Run("confirmation post unsubscribes", func(t *testing.T) {
		svc, mux := setupSubscriberHandlerTest(t)
		svc.EXPECT().Unsubscribe(gomock.Any(), domain.UnsubscribeRequest{Email: "jane@x.com", Signature: "abc"}).Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/unsubscribe?email=jane%40x.com&sig=abc", nil)
		req.Header.Set("User-Agent", "Microsoft SafeLinks/1.0")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "You have been unsubscribed")
	})

	t.Run("bad signature", func(t *testing.T) {
		svc, mux := setupSubscriberHandlerTest(t)
		svc.EXPECT().Unsubscribe(gomock.Any(), gomock.Any()).Return(domain.ErrInvalidSignature)

		rec := doRequest(t, mux, http.MethodGet, "/unsubscribe?email=jane%40x.com&sig=forged", nil)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "not valid")
	})

	t.Run("missing email", func(t *testing.T) {
		svc, mux := setupSubscriberHandlerTest(t)
		svc.EXPECT().Unsubscribe(gomock.Any(), domain.UnsubscribeRequest{}).
			Return(domain.NewValidationError("email is required"))

		rec := doRequest(t, mux, http.MethodGet, "/unsubscribe", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("backend failure", func(t *testing.T) {
		svc, mux := setupSubscriberHandlerTest(t)
		svc.EXPECT().Unsubscribe(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

		rec := doRequest(t, mux, http.MethodGet, "/unsubscribe?email=jane%40x.com", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestSubscriberHandler_Admin(t *testing.T) {
	t.Run("list with filter", func(t *testing.T) {
		svc, mux := setupSubscriberHandlerTest(t)
		svc.EXPECT().List(gomock.Any(), domain.SubscriberFilter{
			Status: domain.SubscriberStatusUnsubscribed,
			Query:  "smith",
			Limit:  domain.DefaultPageSize,
		}).Return(&domain.SubscriberPage{Subscribers: []*domain.Subscriber{{ID: "s1"}}, Total: 1}, nil)

		rec := doRequest(t, mux, http.MethodGet, "/admin/api/subscribers.list?status=unsubscribed&q=smith", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		var page domain.SubscriberPage
		decodeEnvelope(t, rec, &page)
		assert.Equal(t, 1, page.Total)
	})

	t.Run("list rejects unknown status", func(t *testing.T) {
		_, mux := setupSubscriberHandlerTest(t)
		rec := doRequest(t, mux, http.MethodGet, "/admin/api/subscribers.list?status=bounced", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update status", func(t *testing.T) {
		svc, mux := setupSubscriberHandlerTest(t)
		svc.EXPECT().UpdateStatus(gomock.Any(), domain.UpdateSubscriberStatusRequest{ID: "s1", Status: domain.SubscriberStatusActive}).Return(nil)

		rec := doRequest(t, mux, http.MethodPost, "/admin/api/subscribers.updateStatus", map[string]string{"id": "s1", "status": "active"})
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, mux, http.MethodPost, "/admin/api/subscribers.updateStatus", map[string]string{"id": "s1", "status": "bounced"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete missing subscriber", func(t *testing.T) {
		svc, mux := setupSubscriberHandlerTest(t)
		svc.EXPECT().Delete(gomock.Any(), "s404").Return(&domain.ErrNotFound{Entity: "subscriber", ID: "s404"})

		rec := doRequest(t, mux, http.MethodPost, "/admin/api/subscribers.delete", map[string]string{"id": "s404"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
