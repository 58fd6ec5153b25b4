// Package observe provides application-wide observability primitives for
// carevoice: OpenTelemetry metrics, tracing helpers, and HTTP middleware
// that ties them together.
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

// meterName is the instrumentation scope name used for all carevoice metrics.
const meterName = "github.com/carevoice/carevoice"

// Metrics holds all OpenTelemetry metric instruments for the voice engine.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// RecognitionDuration tracks the length of recognition sessions, from
	// start to end-of-capture or error.
	RecognitionDuration metric.Float64Histogram

	// SynthesisDuration tracks utterance lifetime, from Speak to completion,
	// interruption, or failure.
	SynthesisDuration metric.Float64Histogram

	// --- Counters ---

	// RecognitionResults counts recognition results. Use with attribute:
	//   attribute.String("kind", "final"|"interim")
	RecognitionResults metric.Int64Counter

	// VoiceEdges counts activity-detector edges. Use with attribute:
	//   attribute.String("edge", "start"|"end")
	VoiceEdges metric.Int64Counter

	// Preemptions counts utterances cancelled because a newer Speak call
	// replaced them.
	Preemptions metric.Int64Counter

	// --- Error counters ---

	// RecognitionErrors counts terminal session errors. Use with attribute:
	//   attribute.String("code", ...) — the stt.ErrorCode taxonomy.
	RecognitionErrors metric.Int64Counter

	// SynthesisErrors counts provider-reported synthesis failures.
	SynthesisErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveUtterances tracks utterances currently speaking (0 or 1 per
	// engine; exposed as a gauge so mutual-exclusion violations show up).
	ActiveUtterances metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Sessions
// and utterances live on a human conversational timescale, so the buckets
// reach further out than typical request-latency buckets.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.RecognitionDuration, err = m.Float64Histogram("carevoice.recognition.duration",
		metric.WithDescription("Duration of recognition sessions from start to end or error."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("carevoice.synthesis.duration",
		metric.WithDescription("Utterance lifetime from Speak to completion, interruption, or failure."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.RecognitionResults, err = m.Int64Counter("carevoice.recognition.results",
		metric.WithDescription("Total recognition results by kind (final or interim)."),
	); err != nil {
		return nil, err
	}
	if met.VoiceEdges, err = m.Int64Counter("carevoice.activity.edges",
		metric.WithDescription("Total voice-activity edges by direction (start or end)."),
	); err != nil {
		return nil, err
	}
	if met.Preemptions, err = m.Int64Counter("carevoice.synthesis.preemptions",
		metric.WithDescription("Total utterances cancelled by a newer Speak call."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.RecognitionErrors, err = m.Int64Counter("carevoice.recognition.errors",
		metric.WithDescription("Total terminal recognition errors by taxonomy code."),
	); err != nil {
		return nil, err
	}
	if met.SynthesisErrors, err = m.Int64Counter("carevoice.synthesis.errors",
		metric.WithDescription("Total provider-reported synthesis failures."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveUtterances, err = m.Int64UpDownCounter("carevoice.synthesis.active",
		metric.WithDescription("Utterances currently speaking."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("carevoice.http.request.duration",
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// RecordRecognitionResult records one result by kind ("final" or "interim").
func (m *Metrics) RecordRecognitionResult(ctx context.Context, kind string) {
	m.RecognitionResults.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordRecognitionError records one terminal session error by taxonomy code.
func (m *Metrics) RecordRecognitionError(ctx context.Context, code string) {
	m.RecognitionErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("code", code)),
	)
}

// RecordVoiceEdge records one activity edge ("start" or "end").
func (m *Metrics) RecordVoiceEdge(ctx context.Context, edge string) {
	m.VoiceEdges.Add(ctx, 1,
		metric.WithAttributes(attribute.String("edge", edge)),
	)
}
