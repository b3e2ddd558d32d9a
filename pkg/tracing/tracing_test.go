package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/trace"

	"github.com/wholesail/wholesail/config"
	"github.com/wholesail/wholesail/pkg/logger"
)

type spanRecorder struct {
	mu    sync.Mutex
	spans []*trace.SpanData
}

func (r *spanRecorder) ExportSpan(s *trace.SpanData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spans = append(r.spans, s)
}

func (r *spanRecorder) byName(name string) *trace.SpanData {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.spans {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func recordSpans(t *testing.T) *spanRecorder {
	t.Helper()
	rec := &spanRecorder{}
	trace.ApplyConfig(trace.Config{DefaultSampler: trace.AlwaysSample()})
	trace.RegisterExporter(rec)
	t.Cleanup(func() {
		trace.UnregisterExporter(rec)
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.ProbabilitySampler(1e-4)})
	})
	return rec
}

func TestInit_Disabled(t *testing.T) {
	p, err := Init(&config.TracingConfig{Enabled: false}, logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Nil(t, p.MetricsHandler())
	assert.NoError(t, p.Shutdown(context.Background()))

	p, err = Init(nil, logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_UnsupportedExporters(t *testing.T) {
	_, err := Init(&config.TracingConfig{Enabled: true, TraceExporter: "invalid"}, logger.NewTestLogger(t))
	assert.ErrorContains(t, err, "unsupported trace exporter: invalid")

	_, err = Init(&config.TracingConfig{Enabled: true, MetricsExporter: "graphite"}, logger.NewTestLogger(t))
	assert.ErrorContains(t, err, "unsupported metrics exporter: graphite")
}

func TestInit_MissingExporterSettings(t *testing.T) {
	cases := map[string]*config.TracingConfig{
		"jaeger":      {Enabled: true, TraceExporter: "jaeger"},
		"zipkin":      {Enabled: true, TraceExporter: "zipkin"},
		"stackdriver": {Enabled: true, TraceExporter: "stackdriver"},
		"datadog":     {Enabled: true, TraceExporter: "datadog"},
		"xray":        {Enabled: true, TraceExporter: "xray"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Init(cfg, logger.NewTestLogger(t))
			assert.ErrorContains(t, err, "required")
		})
	}
}

func TestInit_ZipkinAndPrometheus(t *testing.T) {
	log := logger.NewTestLogger(t)
	p, err := Init(&config.TracingConfig{
		Enabled:             true,
		ServiceName:         "wholesail-api",
		SamplingProbability: 1,
		TraceExporter:       "zipkin",
		ZipkinEndpoint:      "http://127.0.0.1:9/api/v2/spans",
		MetricsExporter:     "prometheus, none",
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	require.NotNil(t, p.MetricsHandler())
	assert.True(t, log.Contains("OpenCensus initialized"))

	RecordSubmission(context.Background(), "subscribe", nil)
	w := httptest.NewRecorder()
	p.MetricsHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSplitExporters(t *testing.T) {
	assert.Equal(t, []string{"prometheus", "stackdriver", "datadog"}, splitExporters("prometheus, stackdriver,  datadog,, "))
	assert.Nil(t, splitExporters("none"))
	assert.Nil(t, splitExporters(""))
}

func TestMetricNamespace(t *testing.T) {
	assert.Equal(t, "wholesail_api", metricNamespace("wholesail-api"))
	assert.Equal(t, "svc_1", metricNamespace("svc.1"))
}

func TestStartServiceSpan_EndSpan(t *testing.T) {
	rec := recordSpans(t)

	ctx, span := StartServiceSpan(context.Background(), "CampaignService", "Send")
	require.NotNil(t, trace.FromContext(ctx))
	AddAttribute(ctx, "campaign_id", "c1")
	AddAttribute(ctx, "recipients", 3)
	AddAttribute(ctx, "test_send", true)
	AddAttribute(ctx, "ratio", 0.5)
	AddAttribute(ctx, "other", []string{"a"})
	EndSpan(span, errors.New("provider down"))

	got := rec.byName("CampaignService.Send")
	require.NotNil(t, got)
	assert.Equal(t, "c1", got.Attributes["campaign_id"])
	assert.Equal(t, int64(3), got.Attributes["recipients"])
	assert.Equal(t, true, got.Attributes["test_send"])
	assert.Equal(t, "[a]", got.Attributes["other"])
	assert.Equal(t, "provider down", got.Status.Message)
}

func TestMarkSpanError(t *testing.T) {
	rec := recordSpans(t)

	// no span in context, must not panic
	MarkSpanError(context.Background(), errors.New("x"))
	AddAttribute(context.Background(), "k", "v")

	ctx, span := trace.StartSpan(context.Background(), "op")
	MarkSpanError(ctx, nil)
	MarkSpanError(ctx, errors.New("boom"))
	span.End()

	got := rec.byName("op")
	require.NotNil(t, got)
	assert.Equal(t, int32(trace.StatusCodeUnknown), got.Status.Code)
	assert.Equal(t, "boom", got.Status.Message)
}

func TestWrapHTTPClient(t *testing.T) {
	rec := recordSpans(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := WrapHTTPClient(nil)
	assert.NotZero(t, client.Timeout)

	resp, err := client.Get(srv.URL + "/hooks/inquiry")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.spans)
	assert.Contains(t, rec.spans[len(rec.spans)-1].Name, "/hooks/inquiry")
}

func TestRecordEmailSent(t *testing.T) {
	require.NoError(t, view.Register(Views...))

	before := countRows(t, EmailsSentView.Name)
	RecordEmailSent(context.Background(), "log", 12, nil)
	RecordEmailSent(context.Background(), "log", 30, errors.New("x"))
	assert.Equal(t, before+2, countRows(t, EmailsSentView.Name))
}

func countRows(t *testing.T, name string) int64 {
	t.Helper()
	rows, err := view.RetrieveData(name)
	require.NoError(t, err)
	var n int64
	for _, r := range rows {
		if c, ok := r.Data.(*view.CountData); ok {
			n += c.Value
		}
	}
	return n
}
