package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/trace"
)

type spanCollector struct {
	spans []*trace.SpanData
}

func (c *spanCollector) ExportSpan(s *trace.SpanData) {
	c.spans = append(c.spans, s)
}

func collectSpans(t *testing.T) *spanCollector {
	c := &spanCollector{}
	trace.RegisterExporter(c)
	trace.ApplyConfig(trace.Config{DefaultSampler: trace.AlwaysSample()})
	t.Cleanup(func() { trace.UnregisterExporter(c) })
	return c
}

func TestTracingMiddleware(t *testing.T) {
	spans := collectSpans(t)

	var sawSpan bool
	handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSpan = trace.FromContext(r.Context()) != nil
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/subscribers.subscribe?email=a@b.co", nil)
	req.Header.Set("X-Request-ID", "req-1")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, sawSpan)
	assert.Equal(t, http.StatusCreated, rec.Code)

	require.NotEmpty(t, spans.spans)
	span := spans.spans[len(spans.spans)-1]
	assert.Equal(t, "POST /api/subscribers.subscribe", span.Name)
	assert.Equal(t, "/api/subscribers.subscribe", span.Attributes["http.path"])
	assert.Equal(t, "req-1", span.Attributes["http.request_id"])
	assert.Equal(t, int64(http.StatusCreated), span.Attributes["http.status_code"])
	_, hasQuery := span.Attributes["http.query"]
	assert.False(t, hasQuery)
}

func TestTracingMiddleware_ServerErrorMarksSpan(t *testing.T) {
	spans := collectSpans(t)

	handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products.list", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotEmpty(t, spans.spans)
	assert.NotEqual(t, int32(trace.StatusCodeOK), spans.spans[len(spans.spans)-1].Status.Code)
}

func TestTraceResponseWriter(t *testing.T) {
	recorder := httptest.NewRecorder()
	_, span := trace.StartSpan(context.Background(), "test-span")
	defer span.End()

	w := &traceResponseWriter{ResponseWriter: recorder, span: span}
	w.WriteHeader(http.StatusOK)
	assert.Equal(t, http.StatusOK, w.statusCode)

	_, err := w.Write([]byte("test"))
	require.NoError(t, err)
	assert.Equal(t, "test", recorder.Body.String())

	w.Flush()
	assert.True(t, recorder.Flushed)
}
