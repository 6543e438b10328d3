// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics plus the Prometheus exporter bridge wired up by
// [InitProvider].
//
// Metrics are recorded through the OpenTelemetry Metrics API and scraped via
// the standard /metrics endpoint. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/communage/communage"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// RecognitionDuration tracks speech-to-text latency per utterance.
	RecognitionDuration metric.Float64Histogram

	// TranslationDuration tracks machine-translation latency per sentence.
	TranslationDuration metric.Float64Histogram

	// SynthesisDuration tracks text-to-speech latency per sentence.
	SynthesisDuration metric.Float64Histogram

	// PlaybackDuration tracks how long one clip occupied the output device.
	PlaybackDuration metric.Float64Histogram

	// --- Counters ---

	// Utterances counts segmented utterances. Use with attribute:
	//   attribute.String("source", ...)
	Utterances metric.Int64Counter

	// Translations counts published translations. Use with attributes:
	//   attribute.String("source", ...), attribute.String("status", ...)
	Translations metric.Int64Counter

	// DroppedItems counts items discarded mid-pipeline. Use with attributes:
	//   attribute.String("source", ...), attribute.String("stage", ...)
	DroppedItems metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveStreams tracks the number of running stream handlers.
	ActiveStreams metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.RecognitionDuration, err = m.Float64Histogram("communage.recognition.duration",
		metric.WithDescription("Latency of speech-to-text recognition per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranslationDuration, err = m.Float64Histogram("communage.translation.duration",
		metric.WithDescription("Latency of machine translation per sentence."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("communage.synthesis.duration",
		metric.WithDescription("Latency of text-to-speech synthesis per sentence."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PlaybackDuration, err = m.Float64Histogram("communage.playback.duration",
		metric.WithDescription("Time one clip occupied the output device."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Utterances, err = m.Int64Counter("communage.utterances",
		metric.WithDescription("Total segmented utterances by audio source."),
	); err != nil {
		return nil, err
	}
	if met.Translations, err = m.Int64Counter("communage.translations",
		metric.WithDescription("Total published translations by source and status."),
	); err != nil {
		return nil, err
	}
	if met.DroppedItems, err = m.Int64Counter("communage.dropped_items",
		metric.WithDescription("Total items discarded mid-pipeline by source and stage."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("communage.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveStreams, err = m.Int64UpDownCounter("communage.active_streams",
		metric.WithDescription("Number of running stream handlers."),
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

// RecordUtterance records one segmented utterance for an audio source.
func (m *Metrics) RecordUtterance(ctx context.Context, source string) {
	m.Utterances.Add(ctx, 1,
		metric.WithAttributes(attribute.String("source", source)),
	)
}

// RecordTranslation records one published (or absent) translation.
func (m *Metrics) RecordTranslation(ctx context.Context, source, status string) {
	m.Translations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("status", status),
		),
	)
}

// RecordDrop records one item discarded at a pipeline stage.
func (m *Metrics) RecordDrop(ctx context.Context, source, stage string) {
	m.DroppedItems.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("stage", stage),
		),
	)
}

// RecordProviderError records one provider error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
