// Package observe provides application-wide observability primitives for
// tafahom-stream: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
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

// meterName is the instrumentation scope name used for all tafahom-stream metrics.
const meterName = "github.com/tafahom/tafahom-stream"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// CVDuration tracks CV (sign-to-gloss) adapter call latency.
	CVDuration metric.Float64Histogram

	// TextToGlossDuration tracks text-to-gloss adapter call latency.
	TextToGlossDuration metric.Float64Histogram

	// GlossToTextDuration tracks gloss-to-text adapter call latency.
	GlossToTextDuration metric.Float64Histogram

	// STTDuration tracks speech-to-text adapter call latency.
	STTDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech adapter call latency.
	TTSDuration metric.Float64Histogram

	// PipelineDuration tracks full pipeline (SignToText/SignToVoice/
	// TextToSign/VoiceToSign) end-to-end latency. Use with attribute
	// attribute.String("pipeline", ...).
	PipelineDuration metric.Float64Histogram

	// BatchDispatchDuration tracks one session batch-loop dispatch.
	BatchDispatchDuration metric.Float64Histogram

	// VideoAssemblyDuration tracks ffmpeg concat invocation latency.
	VideoAssemblyDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts AI adapter calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts AI adapter errors. Use with attribute:
	//   attribute.String("provider", ...)
	ProviderErrors metric.Int64Counter

	// WalletConsumed counts credits consumed. Use with attribute:
	//   attribute.String("reason", ...)
	WalletConsumed metric.Int64Counter

	// WalletRewarded counts credits rewarded. Use with attribute:
	//   attribute.String("reason", ...)
	WalletRewarded metric.Int64Counter

	// SessionsClosed counts session closures. Use with attribute:
	//   attribute.String("close_code", ...)
	SessionsClosed metric.Int64Counter

	// VideoCacheHits counts cache hits in the sign video assembler.
	VideoCacheHits metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live WebSocket sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for streaming-pipeline latencies (AI_TIMEOUT caps each call at 30s).
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&met.CVDuration, "tafahom.cv.duration", "Latency of sign-to-gloss CV adapter calls."},
		{&met.TextToGlossDuration, "tafahom.text_to_gloss.duration", "Latency of text-to-gloss adapter calls."},
		{&met.GlossToTextDuration, "tafahom.gloss_to_text.duration", "Latency of gloss-to-text adapter calls."},
		{&met.STTDuration, "tafahom.stt.duration", "Latency of speech-to-text adapter calls."},
		{&met.TTSDuration, "tafahom.tts.duration", "Latency of text-to-speech adapter calls."},
		{&met.PipelineDuration, "tafahom.pipeline.duration", "End-to-end pipeline latency."},
		{&met.BatchDispatchDuration, "tafahom.batch.dispatch.duration", "Latency of one session batch dispatch."},
		{&met.VideoAssemblyDuration, "tafahom.video.assembly.duration", "Latency of ffmpeg sign video assembly."},
	}
	for _, h := range histograms {
		*h.dst, err = m.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		)
		if err != nil {
			return nil, err
		}
	}

	if met.ProviderRequests, err = m.Int64Counter("tafahom.provider.requests",
		metric.WithDescription("Total AI adapter requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("tafahom.provider.errors",
		metric.WithDescription("Total AI adapter errors by provider."),
	); err != nil {
		return nil, err
	}
	if met.WalletConsumed, err = m.Int64Counter("tafahom.wallet.consumed",
		metric.WithDescription("Total credits consumed by reason."),
	); err != nil {
		return nil, err
	}
	if met.WalletRewarded, err = m.Int64Counter("tafahom.wallet.rewarded",
		metric.WithDescription("Total credits rewarded by reason."),
	); err != nil {
		return nil, err
	}
	if met.SessionsClosed, err = m.Int64Counter("tafahom.sessions.closed",
		metric.WithDescription("Total sessions closed by close code."),
	); err != nil {
		return nil, err
	}
	if met.VideoCacheHits, err = m.Int64Counter("tafahom.video.cache_hits",
		metric.WithDescription("Total sign video assembly cache hits."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("tafahom.active_sessions",
		metric.WithDescription("Number of live WebSocket translation sessions."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("tafahom.http.request.duration",
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

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordWalletConsumed is a convenience method that records a wallet
// consumption counter increment.
func (m *Metrics) RecordWalletConsumed(ctx context.Context, n int64, reason string) {
	m.WalletConsumed.Add(ctx, n,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordWalletRewarded is a convenience method that records a wallet reward
// counter increment.
func (m *Metrics) RecordWalletRewarded(ctx context.Context, n int64, reason string) {
	m.WalletRewarded.Add(ctx, n,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordSessionClosed is a convenience method that records a session closure
// counter increment.
func (m *Metrics) RecordSessionClosed(ctx context.Context, closeCode string) {
	m.SessionsClosed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("close_code", closeCode)),
	)
}

// RecordVideoAssembly is a convenience method that records one sign video
// assembler invocation's latency.
func (m *Metrics) RecordVideoAssembly(ctx context.Context, seconds float64) {
	m.VideoAssemblyDuration.Record(ctx, seconds)
}

// RecordVideoCacheHit is a convenience method that records a sign video
// assembler cache hit.
func (m *Metrics) RecordVideoCacheHit(ctx context.Context) {
	m.VideoCacheHits.Add(ctx, 1)
}
