package tracing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"contrib.go.opencensus.io/exporter/aws"
	"contrib.go.opencensus.io/exporter/jaeger"
	"contrib.go.opencensus.io/exporter/prometheus"
	"contrib.go.opencensus.io/exporter/stackdriver"
	"contrib.go.opencensus.io/exporter/zipkin"
	"contrib.go.opencensus.io/integrations/ocsql"
	datadog "github.com/DataDog/opencensus-go-exporter-datadog"
	zipkinhttp "github.com/openzipkin/zipkin-go/reporter/http"
	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/trace"

	"github.com/wholesail/wholesail/config"
	"github.com/wholesail/wholesail/pkg/logger"
)

// Provider owns the exporters registered by Init and flushes them on Shutdown.
type Provider struct {
	cfg           *config.TracingConfig
	log           logger.Logger
	traceExporter trace.Exporter
	viewExporters []view.Exporter
	metrics       http.Handler
	metricsServer *http.Server
}

// Init registers the configured OpenCensus exporters and the HTTP, SQL and
// storefront views. A disabled config yields a Provider that does nothing.
// codecov:ignore:start
func Init(cfg *config.TracingConfig, log logger.Logger) (*Provider, error) {
	p := &Provider{cfg: cfg, log: log}
	if cfg == nil || !cfg.Enabled {
		return p, nil
	}

	trace.ApplyConfig(trace.Config{
		DefaultSampler: trace.ProbabilitySampler(cfg.SamplingProbability),
	})

	exp, err := newTraceExporter(cfg)
	if err != nil {
		return nil, err
	}
	if exp != nil {
		trace.RegisterExporter(exp)
		p.traceExporter = exp
	}

	for _, name := range splitExporters(cfg.MetricsExporter) {
		if err := p.addMetricsExporter(name); err != nil {
			return nil, fmt.Errorf("failed to initialize %s metrics exporter: %w", name, err)
		}
	}

	if err := registerViews(); err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"trace_exporter":   orNone(cfg.TraceExporter),
		"metrics_exporter": orNone(cfg.MetricsExporter),
		"sampling":         cfg.SamplingProbability,
	}).Info("OpenCensus initialized")
	return p, nil
}

// codecov:ignore:end

// MetricsHandler serves Prometheus metrics, or nil when prometheus is not an active exporter.
func (p *Provider) MetricsHandler() http.Handler {
	return p.metrics
}

// Shutdown flushes buffered spans and stops the standalone metrics server.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.traceExporter != nil {
		trace.UnregisterExporter(p.traceExporter)
		flush(p.traceExporter)
	}
	for _, e := range p.viewExporters {
		view.UnregisterExporter(e)
		flush(e)
	}
	if p.metricsServer != nil {
		if err := p.metricsServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to stop metrics server: %w", err)
		}
	}
	return nil
}

func flush(e interface{}) {
	switch x := e.(type) {
	case interface{ Flush() }:
		x.Flush()
	case interface{ Stop() }:
		x.Stop()
	}
}

func newTraceExporter(cfg *config.TracingConfig) (trace.Exporter, error) {
	switch cfg.TraceExporter {
	case "none", "":
		return nil, nil
	case "jaeger":
		if cfg.JaegerEndpoint == "" {
			return nil, fmt.Errorf("jaeger endpoint is required for jaeger exporter")
		}
		je, err := jaeger.NewExporter(jaeger.Options{
			CollectorEndpoint: cfg.JaegerEndpoint,
			ServiceName:       cfg.ServiceName,
			Process:           jaeger.Process{ServiceName: cfg.ServiceName},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create jaeger exporter: %w", err)
		}
		return je, nil
	case "zipkin":
		if cfg.ZipkinEndpoint == "" {
			return nil, fmt.Errorf("zipkin endpoint is required for zipkin exporter")
		}
		return zipkin.NewExporter(zipkinhttp.NewReporter(cfg.ZipkinEndpoint), nil), nil
	case "stackdriver":
		if cfg.StackdriverProjectID == "" {
			return nil, fmt.Errorf("stackdriver project ID is required for stackdriver exporter")
		}
		se, err := stackdriver.NewExporter(stackdriver.Options{ProjectID: cfg.StackdriverProjectID})
		if err != nil {
			return nil, fmt.Errorf("failed to create stackdriver exporter: %w", err)
		}
		return se, nil
	case "datadog":
		de, err := newDatadogExporter(cfg)
		if err != nil {
			return nil, err
		}
		return de, nil
	case "xray":
		if cfg.XRayRegion == "" {
			return nil, fmt.Errorf("AWS region is required for xray exporter")
		}
		xe, err := aws.NewExporter(aws.WithRegion(cfg.XRayRegion), aws.WithVersion("latest"))
		if err != nil {
			return nil, fmt.Errorf("failed to create xray exporter: %w", err)
		}
		return xe, nil
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
}

func (p *Provider) addMetricsExporter(name string) error {
	cfg := p.cfg
	onError := func(err error) {
		p.log.WithField("exporter", name).Error(fmt.Sprintf("Metrics export failed: %v", err))
	}

	switch name {
	case "prometheus":
		pe, err := prometheus.NewExporter(prometheus.Options{
			Namespace: metricNamespace(cfg.ServiceName),
			OnError:   onError,
		})
		if err != nil {
			return err
		}
		view.RegisterExporter(pe)
		p.viewExporters = append(p.viewExporters, pe)
		p.metrics = pe
		if cfg.PrometheusPort > 0 {
			p.startMetricsServer(pe)
		}
	case "stackdriver":
		if cfg.StackdriverProjectID == "" {
			return fmt.Errorf("stackdriver project ID is required")
		}
		se, err := stackdriver.NewExporter(stackdriver.Options{
			ProjectID:    cfg.StackdriverProjectID,
			MetricPrefix: cfg.ServiceName,
			OnError:      onError,
		})
		if err != nil {
			return err
		}
		view.RegisterExporter(se)
		p.viewExporters = append(p.viewExporters, se)
	case "datadog":
		de, err := newDatadogExporter(cfg)
		if err != nil {
			return err
		}
		view.RegisterExporter(de)
		p.viewExporters = append(p.viewExporters, de)
	default:
		return fmt.Errorf("unsupported metrics exporter: %s", name)
	}
	return nil
}

func newDatadogExporter(cfg *config.TracingConfig) (*datadog.Exporter, error) {
	addr := cfg.DatadogAgentAddress
	if addr == "" {
		addr = cfg.AgentEndpoint
	}
	if addr == "" {
		return nil, fmt.Errorf("datadog agent address is required for datadog exporter")
	}
	opts := datadog.Options{
		Service:   cfg.ServiceName,
		TraceAddr: addr,
		StatsAddr: addr,
		Tags:      []string{"app:wholesail"},
	}
	if cfg.DatadogAPIKey != "" {
		opts.GlobalTags = map[string]interface{}{"api_key": cfg.DatadogAPIKey}
	}
	de, err := datadog.NewExporter(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create datadog exporter: %w", err)
	}
	return de, nil
}

func (p *Provider) startMetricsServer(h http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	p.metricsServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", p.cfg.PrometheusPort),
		Handler: mux,
	}
	srv := p.metricsServer
	go func() {
		p.log.WithField("port", p.cfg.PrometheusPort).Info("Starting Prometheus metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.log.Error(fmt.Sprintf("Prometheus metrics server stopped: %v", err))
		}
	}()
}

func registerViews() error {
	if err := view.Register(ochttp.DefaultServerViews...); err != nil {
		return fmt.Errorf("failed to register HTTP server views: %w", err)
	}
	if err := view.Register(ocsql.DefaultViews...); err != nil {
		return fmt.Errorf("failed to register database views: %w", err)
	}
	if err := view.Register(Views...); err != nil {
		return fmt.Errorf("failed to register storefront views: %w", err)
	}
	return nil
}

func splitExporters(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == "none" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// prometheus namespaces only allow [a-zA-Z0-9_]
func metricNamespace(service string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, service)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
