package http

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/internal/domain/mocks"
	"github.com/wholesail/wholesail/pkg/emailblocks"
	"github.com/wholesail/wholesail/pkg/logger"
)

type campaignHandlerFixture struct {
	campaigns *mocks.MockCampaignService
	drafts    *mocks.MockDraftService
	mux       *http.ServeMux
}

func setupCampaignHandlerTest(t *testing.T) *campaignHandlerFixture {
	ctrl := gomock.NewController(t)
	f := &campaignHandlerFixture{
		campaigns: mocks.NewMockCampaignService(ctrl),
		drafts:    mocks.NewMockDraftService(ctrl),
		mux:       http.NewServeMux(),
	}
	NewCampaignHandler(f.campaigns, f.drafts, logger.NewMockLogger(t)).RegisterRoutes(f.mux, asAdmin)
	return f
}

func TestCampaignHandler_Drafts(t *testing.T) {
	t.Run("get is scoped to the session", func(t *testing.T) {
		f := setupCampaignHandlerTest(t)
		f.drafts.EXPECT().Get(gomock.Any(), testSessionID).Return(domain.NewCampaignDraft(), nil)

		rec := doRequest(t, f.mux, http.MethodGet, "/admin/api/drafts.get", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data":{"subjectLine":"","preheaderText":"","blocks":[]},"error":null}`, rec.Body.String())
	})

	t.Run("save", func(t *testing.T) {
		f := setupCampaignHandlerTest(t)
		f.drafts.EXPECT().Save(gomock.Any(), testSessionID, gomock.Any()).
			DoAndReturn(func(_ interface{}, _ string, d *domain.CampaignDraft) (*domain.CampaignDraft, error) {
				assert.Equal(t, "Spring arrivals", d.SubjectLine)
				require.Len(t, d.Blocks, 1)
				assert.Equal(t, emailblocks.SpacerBlock{ID: "b1", SpacerHeight: 24}, d.Blocks[0])
				return d, nil
			})

		rec := doRequest(t, f.mux, http.MethodPost, "/admin/api/drafts.save",
			`{"subjectLine":"Spring arrivals","blocks":[{"id":"b1","type":"spacer","spacerHeight":24}]}`)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("save rejects duplicate ids", func(t *testing.T) {
		f := setupCampaignHandlerTest(t)
		f.drafts.EXPECT().Save(gomock.Any(), testSessionID, gomock.Any()).
			Return(nil, domain.NewValidationError(`block 1: duplicate id "b1"`))

		rec := doRequest(t, f.mux, http.MethodPost, "/admin/api/drafts.save",
			`{"blocks":[{"id":"b1","type":"spacer","spacerHeight":8},{"id":"b1","type":"spacer","spacerHeight":8}]}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("start from template", func(t *testing.T) {
		f := setupCampaignHandlerTest(t)
		f.drafts.EXPECT().StartFromTemplate(gomock.Any(), testSessionID, "t1").
			Return(&domain.CampaignDraft{SubjectLine: "Spring", TemplateID: "t1", Blocks: emailblocks.Blocks{}}, nil)

		rec := doRequest(t, f.mux, http.MethodPost, "/admin/api/drafts.startFromTemplate", map[string]string{"template_id": "t1"})
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, f.mux, http.MethodPost, "/admin/api/drafts.startFromTemplate", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("clear", func(t *testing.T) {
		f := setupCampaignHandlerTest(t)
		f.drafts.EXPECT().Clear(gomock.Any(), testSessionID).Return(nil)

		rec := doRequest(t, f.mux, http.MethodPost, "/admin/api/drafts.clear", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no admin in context", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mux := http.NewServeMux()
		NewCampaignHandler(mocks.NewMockCampaignService(ctrl), mocks.NewMockDraftService(ctrl), logger.NewMockLogger(t)).
			RegisterRoutes(mux, passthrough)

		rec := doRequest(t, mux, http.MethodGet, "/admin/api/drafts.get", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCampaignHandler_Preview(t *testing.T) {
	f := setupCampaignHandlerTest(t)
	f.campaigns.EXPECT().Preview(gomock.Any(), gomock.Any()).
		Return(&domain.PreviewResult{
			HTML:   "<html></html>",
			Issues: []emailblocks.BlockIssue{{Index: 0, ID: "b1", Type: "video", Message: "unknown block type", Skipped: true}},
		}, nil)

	rec := doRequest(t, f.mux, http.MethodPost, "/admin/api/campaigns.preview", `{"blocks":[{"id":"b1","type":"video"}]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var preview domain.PreviewResult
	decodeEnvelope(t, rec, &preview)
	require.Len(t, preview.Issues, 1)
	assert.True(t, preview.Issues[0].Skipped)
}

func TestCampaignHandler_Send(t *testing.T) {
	t.Run("new campaign", func(t *testing.T) {
		f := setupCampaignHandlerTest(t)
		f.campaigns.EXPECT().Send(gomock.Any(), testSessionID, domain.SendCampaignRequest{IdempotencyKey: "k1"}).
			Return(&domain.SendCampaignResult{Campaign: &domain.Campaign{ID: "c1", Status: domain.CampaignStatusSent, SentCount: 3}}, nil)

		rec := doRequest(t, f.mux, http.MethodPost, "/admin/api/campaigns.send", map[string]string{"idempotency_key": "k1"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		var result domain.SendCampaignResult
		decodeEnvelope(t, rec, &result)
		assert.Equal(t, 3, result.Campaign.SentCount)
	})

	t.Run("repeated key", func(t *testing.T) {
		f := setupCampaignHandlerTest(t)
		f.campaigns.EXPECT().Send(gomock.Any(), testSessionID, gomock.Any()).
			Return(&domain.SendCampaignResult{Campaign: &domain.Campaign{ID: "c1"}, Duplicate: true}, nil)

		rec := doRequest(t, f.mux, http.MethodPost, "/admin/api/campaigns.send", map[string]string{"idempotency_key": "k1"})

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("test recipient", func(t *testing.T) {
		f := setupCampaignHandlerTest(t)
		f.campaigns.EXPECT().Send(gomock.Any(), testSessionID, domain.SendCampaignRequest{TestRecipient: "me@x.com"}).
			Return(&domain.SendCampaignResult{TestSent: true}, nil)

		rec := doRequest(t, f.mux, http.MethodPost, "/admin/api/campaigns.send", map[string]string{"test_recipient": "me@x.com"})

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("empty draft", func(t *testing.T) {
		f := setupCampaignHandlerTest(t)
		f.campaigns.EXPECT().Send(gomock.Any(), testSessionID, gomock.Any()).
			Return(nil, domain.NewValidationError("draft has no blocks"))

		rec := doRequest(t, f.mux, http.MethodPost, "/admin/api/campaigns.send", map[string]string{"idempotency_key": "k1"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCampaignHandler_ListAndGet(t *testing.T) {
	f := setupCampaignHandlerTest(t)
	f.campaigns.EXPECT().List(gomock.Any()).Return([]*domain.Campaign{{ID: "c1"}}, nil)
	f.campaigns.EXPECT().Get(gomock.Any(), "c404").Return(nil, &domain.ErrNotFound{Entity: "campaign", ID: "c404"})

	rec := doRequest(t, f.mux, http.MethodGet, "/admin/api/campaigns.list", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, f.mux, http.MethodGet, "/admin/api/campaigns.get?id=c404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

const hostileEmail = `<!DOCTYPE html><html><body><p>Hi "friend" & co</p><script>alert(1)</script></body></html>`

func TestCampaignHandler_PreviewPage(t *testing.T) {
	t.Run("embeds the draft in a sandboxed iframe", func(t *testing.T) {
		f := setupCampaignHandlerTest(t)
		draft := &domain.CampaignDraft{SubjectLine: "Spring <arrivals>", Blocks: emailblocks.Blocks{}}
		f.drafts.EXPECT().Get(gomock.Any(), testSessionID).Return(draft, nil)
		f.campaigns.EXPECT().Preview(gomock.Any(), draft).Return(&domain.PreviewResult{
			HTML:   hostileEmail,
			Issues: []emailblocks.BlockIssue{{Index: 2, Type: "video", Message: "unknown block type"}},
		}, nil)

		rec := doRequest(t, f.mux, http.MethodGet, "/admin/campaigns/preview", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.NotContains(t, rec.Body.String(), "<script>alert(1)</script>")

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Body.String()))
		require.NoError(t, err)

		iframe := doc.Find("iframe")
		require.Equal(t, 1, iframe.Length())
		sandbox, ok := iframe.Attr("sandbox")
		assert.True(t, ok)
		assert.Empty(t, sandbox)
		srcdoc, _ := iframe.Attr("srcdoc")
		assert.Equal(t, hostileEmail, srcdoc)

		assert.Equal(t, "Spring <arrivals>", doc.Find("header strong").Text())
		assert.Contains(t, doc.Find(".issues li").Text(), "unknown block type")
	})

	t.Run("draft load failure", func(t *testing.T) {
		f := setupCampaignHandlerTest(t)
		f.drafts.EXPECT().Get(gomock.Any(), testSessionID).Return(nil, errors.New("redis down"))

		rec := doRequest(t, f.mux, http.MethodGet, "/admin/campaigns/preview", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestCampaignHandler_PreviewRaw(t *testing.T) {
	f := setupCampaignHandlerTest(t)
	draft := domain.NewCampaignDraft()
	f.drafts.EXPECT().Get(gomock.Any(), testSessionID).Return(draft, nil)
	f.campaigns.EXPECT().Preview(gomock.Any(), draft).Return(&domain.PreviewResult{HTML: hostileEmail}, nil)

	rec := doRequest(t, f.mux, http.MethodGet, "/admin/campaigns/preview.raw", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, hostileEmail, rec.Body.String())
	csp := rec.Header().Get("Content-Security-Policy")
	assert.True(t, strings.HasPrefix(csp, "sandbox;"))
	assert.Contains(t, csp, "default-src 'none'")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
