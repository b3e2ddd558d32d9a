package tracing

import (
	"context"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	KeyProvider = tag.MustNewKey("provider")
	KeyOutcome  = tag.MustNewKey("outcome")
	KeyForm     = tag.MustNewKey("form")

	MeasureEmailsSent  = stats.Int64("wholesail/campaign/emails", "Campaign emails handed to the provider", stats.UnitDimensionless)
	MeasureSendLatency = stats.Float64("wholesail/campaign/send_latency", "Latency of a single provider send", stats.UnitMilliseconds)
	MeasureSubmissions = stats.Int64("wholesail/forms/submissions", "Public form submissions", stats.UnitDimensionless)
)

var (
	EmailsSentView = &view.View{
		Name:        "wholesail/campaign/emails_count",
		Description: "Campaign emails by provider and outcome",
		Measure:     MeasureEmailsSent,
		TagKeys:     []tag.Key{KeyProvider, KeyOutcome},
		Aggregation: view.Count(),
	}
	SendLatencyView = &view.View{
		Name:        "wholesail/campaign/send_latency",
		Description: "Distribution of provider send latency",
		Measure:     MeasureSendLatency,
		TagKeys:     []tag.Key{KeyProvider},
		Aggregation: view.Distribution(5, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000),
	}
	SubmissionsView = &view.View{
		Name:        "wholesail/forms/submissions_count",
		Description: "Public form submissions by form and outcome",
		Measure:     MeasureSubmissions,
		TagKeys:     []tag.Key{KeyForm, KeyOutcome},
		Aggregation: view.Count(),
	}

	// Views are registered by Init alongside the HTTP and SQL views.
	Views = []*view.View{EmailsSentView, SendLatencyView, SubmissionsView}
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordEmailSent records one provider send attempt.
func RecordEmailSent(ctx context.Context, provider string, latencyMs float64, err error) {
	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(KeyProvider, provider), tag.Upsert(KeyOutcome, outcome(err))},
		MeasureEmailsSent.M(1), MeasureSendLatency.M(latencyMs))
}

// RecordSubmission records a public form submission ("subscribe", "inquiry").
func RecordSubmission(ctx context.Context, form string, err error) {
	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(KeyForm, form), tag.Upsert(KeyOutcome, outcome(err))},
		MeasureSubmissions.M(1))
}
