package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/internal/domain/mocks"
	"github.com/wholesail/wholesail/internal/repository"
	"github.com/wholesail/wholesail/pkg/cache"
	"github.com/wholesail/wholesail/pkg/emailblocks"
	"github.com/wholesail/wholesail/pkg/mailer"
)

type campaignFixture struct {
	service     *CampaignService
	drafts      *mocks.MockDraftStore
	campaigns   *mocks.MockCampaignRepository
	subscribers *mocks.MockSubscriberRepository
	sender      *mocks.MockSender
}

func newCampaignFixture(t *testing.T) campaignFixture {
	ctrl := gomock.NewController(t)
	f := campaignFixture{
		drafts:      mocks.NewMockDraftStore(ctrl),
		campaigns:   mocks.NewMockCampaignRepository(ctrl),
		subscribers: mocks.NewMockSubscriberRepository(ctrl),
		sender:      mocks.NewMockSender(ctrl),
	}
	f.service = NewCampaignService(f.drafts, f.campaigns, f.subscribers, f.sender, testRenderer(),
		NewUnsubscribeSigner(testSecret, "https://shop.example.com"),
		CampaignConfig{FromEmail: "news@shop.example.com", FromName: "Wholesail", Provider: "log", Concurrency: 2, SendTimeout: time.Second},
		newMockLogger(ctrl))
	return f
}

func readyDraft() *domain.CampaignDraft {
	return &domain.CampaignDraft{
		SubjectLine: "Spring restock",
		Blocks: emailblocks.Blocks{
			emailblocks.TextBlock{ID: "b1", Content: "<p>Hi {{ subscriber.name }}</p>"},
		},
	}
}

func TestCampaignService_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("fans out to active subscribers", func(t *testing.T) {
		f := newCampaignFixture(t)
		recipients := []*domain.Subscriber{
			{ID: "s1", Email: "ann@x.com", Name: "Ann"},
			{ID: "s2", Email: "bob@x.com", Name: "Bob"},
			{ID: "s3", Email: "cat@x.com", Name: "Cat"},
		}

		f.campaigns.EXPECT().GetByIdempotencyKey(gomock.Any(), "key-1").Return(nil, &domain.ErrNotFound{Entity: "campaign", ID: "key-1"})
		f.drafts.EXPECT().Load(gomock.Any(), "sess-1").Return(readyDraft(), nil)
		f.subscribers.EXPECT().ListActive(gomock.Any()).Return(recipients, nil)
		f.campaigns.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, c *domain.Campaign) (*domain.Campaign, bool, error) {
				assert.Equal(t, "key-1", c.IdempotencyKey)
				assert.Equal(t, 3, c.RecipientCount)
				assert.Equal(t, domain.CampaignStatusSending, c.Status)
				return c, true, nil
			})

		var mu sync.Mutex
		bodies := map[string]mailer.Message{}
		f.sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, m mailer.Message) (string, error) {
				mu.Lock()
				bodies[m.To] = m
				mu.Unlock()
				if m.To == "bob@x.com" {
					return "", errors.New("mailbox full")
				}
				return "id-" + m.To, nil
			}).Times(3)

		f.campaigns.EXPECT().Finish(gomock.Any(), gomock.Any(), domain.CampaignStatusSent, 2, 1, gomock.Any()).Return(nil)
		f.drafts.EXPECT().Clear(gomock.Any(), "sess-1").Return(nil)

		res, err := f.service.Send(ctx, "sess-1", domain.SendCampaignRequest{IdempotencyKey: "key-1"})
		require.NoError(t, err)
		assert.False(t, res.Duplicate)
		assert.Equal(t, 2, res.Campaign.SentCount)
		assert.Equal(t, 1, res.Campaign.FailedCount)
		require.NotNil(t, res.Campaign.SentAt)

		ann := bodies["ann@x.com"]
		assert.Equal(t, "Spring restock", ann.Subject)
		assert.Equal(t, "news@shop.example.com", ann.FromEmail)
		assert.Contains(t, ann.HTML, "Hi Ann")
		assert.Contains(t, ann.HTML, "https://shop.example.com/unsubscribe?email=ann%40x.com&sig=")
		assert.Contains(t, ann.Text, "Hi Ann")
		assert.False(t, strings.Contains(ann.HTML, "{{"))
	})

	t.Run("all deliveries failing marks the campaign failed", func(t *testing.T) {
		f := newCampaignFixture(t)

		f.campaigns.EXPECT().GetByIdempotencyKey(gomock.Any(), "key-2").Return(nil, &domain.ErrNotFound{Entity: "campaign", ID: "key-2"})
		f.drafts.EXPECT().Load(gomock.Any(), "sess-1").Return(readyDraft(), nil)
		f.subscribers.EXPECT().ListActive(gomock.Any()).Return([]*domain.Subscriber{{ID: "s1", Email: "ann@x.com"}}, nil)
		f.campaigns.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, c *domain.Campaign) (*domain.Campaign, bool, error) { return c, true, nil })
		f.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return("", errors.New("smtp down"))
		f.campaigns.EXPECT().Finish(gomock.Any(), gomock.Any(), domain.CampaignStatusFailed, 0, 1, gomock.Any()).Return(nil)
		f.drafts.EXPECT().Clear(gomock.Any(), "sess-1").Return(nil)

		res, err := f.service.Send(ctx, "sess-1", domain.SendCampaignRequest{IdempotencyKey: "key-2"})
		require.NoError(t, err)
		assert.Equal(t, domain.CampaignStatusFailed, res.Campaign.Status)
	})

	t.Run("repeated idempotency key dispatches nothing", func(t *testing.T) {
		f := newCampaignFixture(t)
		existing := &domain.Campaign{ID: "c1", IdempotencyKey: "key-1", Status: domain.CampaignStatusSent}

		f.campaigns.EXPECT().GetByIdempotencyKey(gomock.Any(), "key-1").Return(existing, nil)

		res, err := f.service.Send(ctx, "sess-1", domain.SendCampaignRequest{IdempotencyKey: "key-1"})
		require.NoError(t, err)
		assert.True(t, res.Duplicate)
		assert.Equal(t, "c1", res.Campaign.ID)
	})

	t.Run("concurrent send with the same key loses the insert", func(t *testing.T) {
		f := newCampaignFixture(t)
		existing := &domain.Campaign{ID: "c1", IdempotencyKey: "key-1", Status: domain.CampaignStatusSending}

		f.campaigns.EXPECT().GetByIdempotencyKey(gomock.Any(), "key-1").Return(nil, &domain.ErrNotFound{Entity: "campaign", ID: "key-1"})
		f.drafts.EXPECT().Load(gomock.Any(), "sess-1").Return(readyDraft(), nil)
		f.subscribers.EXPECT().ListActive(gomock.Any()).Return([]*domain.Subscriber{{ID: "s1", Email: "ann@x.com"}}, nil)
		f.campaigns.EXPECT().Create(gomock.Any(), gomock.Any()).Return(existing, false, nil)

		res, err := f.service.Send(ctx, "sess-1", domain.SendCampaignRequest{IdempotencyKey: "key-1"})
		require.NoError(t, err)
		assert.True(t, res.Duplicate)
		assert.Equal(t, "c1", res.Campaign.ID)
	})

	t.Run("test recipient sends one message and records nothing", func(t *testing.T) {
		f := newCampaignFixture(t)

		f.drafts.EXPECT().Load(gomock.Any(), "sess-1").Return(readyDraft(), nil)
		f.sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, m mailer.Message) (string, error) {
				assert.Equal(t, "qa@shop.example.com", m.To)
				assert.Equal(t, "test", m.Tag)
				return "", nil
			})

		res, err := f.service.Send(ctx, "sess-1", domain.SendCampaignRequest{TestRecipient: "QA@shop.example.com"})
		require.NoError(t, err)
		assert.True(t, res.TestSent)
		assert.Nil(t, res.Campaign)
	})

	t.Run("empty draft is rejected", func(t *testing.T) {
		f := newCampaignFixture(t)

		f.campaigns.EXPECT().GetByIdempotencyKey(gomock.Any(), "key-1").Return(nil, &domain.ErrNotFound{Entity: "campaign", ID: "key-1"})
		f.drafts.EXPECT().Load(gomock.Any(), "sess-1").Return(domain.NewCampaignDraft(), nil)

		_, err := f.service.Send(ctx, "sess-1", domain.SendCampaignRequest{IdempotencyKey: "key-1"})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("unknown block fails the strict render", func(t *testing.T) {
		f := newCampaignFixture(t)
		draft := readyDraft()
		draft.Blocks = append(draft.Blocks, emailblocks.UnknownBlock{ID: "v1", Type: "video", Raw: []byte(`{"id":"v1","type":"video"}`)})

		f.campaigns.EXPECT().GetByIdempotencyKey(gomock.Any(), "key-1").Return(nil, &domain.ErrNotFound{Entity: "campaign", ID: "key-1"})
		f.drafts.EXPECT().Load(gomock.Any(), "sess-1").Return(draft, nil)

		_, err := f.service.Send(ctx, "sess-1", domain.SendCampaignRequest{IdempotencyKey: "key-1"})
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
		assert.Contains(t, err.Error(), "unknown block type")
	})

	t.Run("lookup failure stops the send", func(t *testing.T) {
		f := newCampaignFixture(t)

		f.campaigns.EXPECT().GetByIdempotencyKey(gomock.Any(), "key-1").Return(nil, errors.New("connection reset"))

		_, err := f.service.Send(ctx, "sess-1", domain.SendCampaignRequest{IdempotencyKey: "key-1"})
		require.Error(t, err)
		assert.False(t, domain.IsValidation(err))
	})

	t.Run("missing idempotency key", func(t *testing.T) {
		f := newCampaignFixture(t)

		_, err := f.service.Send(ctx, "sess-1", domain.SendCampaignRequest{})
		assert.True(t, domain.IsValidation(err))
	})
}

func TestCampaignService_Preview(t *testing.T) {
	f := newCampaignFixture(t)

	draft := readyDraft()
	draft.Blocks = append(draft.Blocks,
		emailblocks.UnknownBlock{ID: "v1", Type: "video", Raw: []byte(`{"id":"v1","type":"video"}`)},
		emailblocks.ImageBlock{ID: "i1"},
	)

	res, err := f.service.Preview(context.Background(), draft)
	require.NoError(t, err)
	require.Len(t, res.Issues, 2)
	assert.True(t, res.Issues[0].Skipped)
	assert.False(t, res.Issues[1].Skipped)
	assert.Contains(t, res.HTML, `data-placeholder="true"`)
	assert.Contains(t, res.Text, "Wholesail")

	empty, err := f.service.Preview(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, empty.Issues)
	assert.Empty(t, empty.Issues)
}

func TestCampaignService_SendRetryAfterDraftCleared(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	mem := cache.NewInMemoryCache(time.Minute)
	defer mem.Stop()
	drafts := repository.NewMemoryDraftStore(mem, time.Hour)
	require.NoError(t, drafts.Save(ctx, "sess-1", readyDraft()))

	campaigns := mocks.NewMockCampaignRepository(ctrl)
	subscribers := mocks.NewMockSubscriberRepository(ctrl)
	sender := mocks.NewMockSender(ctrl)

	stored := map[string]*domain.Campaign{}
	campaigns.EXPECT().GetByIdempotencyKey(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, key string) (*domain.Campaign, error) {
			if existing, ok := stored[key]; ok {
				return existing, nil
			}
			return nil, &domain.ErrNotFound{Entity: "campaign", ID: key}
		}).Times(2)
	campaigns.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Campaign) (*domain.Campaign, bool, error) {
			stored[c.IdempotencyKey] = c
			return c, true, nil
		})
	campaigns.EXPECT().Finish(gomock.Any(), gomock.Any(), domain.CampaignStatusSent, 1, 0, gomock.Any()).Return(nil)
	subscribers.EXPECT().ListActive(gomock.Any()).Return([]*domain.Subscriber{{ID: "s1", Email: "ann@x.com", Name: "Ann"}}, nil)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return("id-1", nil).Times(1)

	svc := NewCampaignService(drafts, campaigns, subscribers, sender, testRenderer(),
		NewUnsubscribeSigner(testSecret, "https://shop.example.com"),
		CampaignConfig{FromEmail: "news@shop.example.com", Provider: "log"},
		newMockLogger(ctrl))

	first, err := svc.Send(ctx, "sess-1", domain.SendCampaignRequest{IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	cleared, err := drafts.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, cleared.SubjectLine)

	retry, err := svc.Send(ctx, "sess-1", domain.SendCampaignRequest{IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.True(t, retry.Duplicate)
	assert.Equal(t, first.Campaign.ID, retry.Campaign.ID)
}
