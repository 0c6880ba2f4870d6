package ai

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/tafahom/tafahom-stream/internal/observe"
)

// Instrumentation records per-call latency and outcome metrics for one AI
// adapter. Its zero value is a no-op, so adapters work unmodified in tests
// that never configure metrics.
type Instrumentation struct {
	metrics  *observe.Metrics
	provider string
	duration metric.Float64Histogram
}

// NewInstrumentation builds an Instrumentation that records onto duration (one
// of [observe.Metrics]' per-provider latency histograms) and the shared
// provider request/error counters, tagged with provider. A nil m disables
// recording.
func NewInstrumentation(m *observe.Metrics, provider string, duration metric.Float64Histogram) Instrumentation {
	return Instrumentation{metrics: m, provider: provider, duration: duration}
}

// Record stamps the latency since start and the request/error counters for
// one adapter call. Safe to call on the zero value.
func (ins Instrumentation) Record(ctx context.Context, start time.Time, err error) {
	if ins.metrics == nil {
		return
	}
	if ins.duration != nil {
		ins.duration.Record(ctx, time.Since(start).Seconds())
	}
	status := "ok"
	if err != nil {
		status = "error"
		ins.metrics.RecordProviderError(ctx, ins.provider)
	}
	ins.metrics.RecordProviderRequest(ctx, ins.provider, status)
}
