// Package observe provides application-wide observability primitives for
// Polemos: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Polemos metrics.
const meterName = "github.com/polemos-ai/polemos"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// NLIDuration tracks one bidirectional NLI scoring of a pair (both
	// directional inference calls).
	NLIDuration metric.Float64Histogram

	// LLMDuration tracks debate LLM completion latency.
	LLMDuration metric.Float64Histogram

	// TurnDuration tracks end-to-end continuation turn processing time.
	TurnDuration metric.Float64Histogram

	// --- Counters ---

	// TierDecisions counts emitted concession tiers. Use with attribute:
	//   attribute.String("tier", ...)
	TierDecisions metric.Int64Counter

	// MatchesConcluded counts ended matches. Use with attribute:
	//   attribute.String("lane", "ko"|"recent_window"|"points")
	MatchesConcluded metric.Int64Counter

	// ProviderErrors counts NLI/LLM backend errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveDebates tracks conversations with an unconcluded match.
	ActiveDebates metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) spanning
// local NLI inference up to slow LLM completions.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.NLIDuration, err = m.Float64Histogram("polemos.nli.duration",
		metric.WithDescription("Latency of one bidirectional NLI scoring (both directions)."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("polemos.llm.duration",
		metric.WithDescription("Latency of debate LLM completion."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram("polemos.turn.duration",
		metric.WithDescription("End-to-end continuation turn processing time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TierDecisions, err = m.Int64Counter("polemos.tier.decisions",
		metric.WithDescription("Total emitted concession tiers by tier."),
	); err != nil {
		return nil, err
	}
	if met.MatchesConcluded, err = m.Int64Counter("polemos.matches.concluded",
		metric.WithDescription("Total concluded matches by verdict lane."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("polemos.provider.errors",
		metric.WithDescription("Total NLI/LLM backend errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveDebates, err = m.Int64UpDownCounter("polemos.active_debates",
		metric.WithDescription("Number of conversations with an unconcluded match."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("polemos.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordTierDecision records one emitted concession tier.
func (m *Metrics) RecordTierDecision(ctx context.Context, tier string) {
	m.TierDecisions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("tier", tier)),
	)
}

// RecordMatchConcluded records one ended match with the lane that ended it.
func (m *Metrics) RecordMatchConcluded(ctx context.Context, lane string) {
	m.MatchesConcluded.Add(ctx, 1,
		metric.WithAttributes(attribute.String("lane", lane)),
	)
}

// RecordProviderError records one NLI/LLM backend error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
