package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CallStats describes one completed Execute call for metrics purposes.
type CallStats struct {
	Dependency string
	Outcome    string // success|failure|rejected|canceled
	Kind       string // failure classification, empty unless Outcome is failure
	Attempts   int
	Duration   time.Duration
}

// Recorder records call execution metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; recording is fire-and-forget.
// - Errors: implementations must not panic.
type Recorder interface {
	// RecordCall records a completed call with its terminal outcome.
	RecordCall(ctx context.Context, stats CallStats)

	// RecordTransition records a circuit breaker state change.
	RecordTransition(ctx context.Context, dependency string, from, to string)
}

// recorderImpl is the concrete implementation of Recorder.
type recorderImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	attemptHist  metric.Int64Histogram
	durationHist metric.Float64Histogram
	transitions  metric.Int64Counter
}

// NewRecorder creates a Recorder backed by the given meter.
func NewRecorder(meter metric.Meter) (Recorder, error) {
	totalCount, err := meter.Int64Counter(
		"call.exec.total",
		metric.WithDescription("Total number of protected call executions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"call.exec.errors",
		metric.WithDescription("Total number of call executions ending in error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	attemptHist, err := meter.Int64Histogram(
		"call.exec.attempts",
		metric.WithDescription("Operation attempts consumed per call execution"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"call.exec.duration_ms",
		metric.WithDescription("Call execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"call.breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &recorderImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		attemptHist:  attemptHist,
		durationHist: durationHist,
		transitions:  transitions,
	}, nil
}

// RecordCall records metrics for one completed call.
func (r *recorderImpl) RecordCall(ctx context.Context, stats CallStats) {
	attrs := []attribute.KeyValue{
		attribute.String("call.dependency", stats.Dependency),
		attribute.String("call.outcome", stats.Outcome),
	}
	if stats.Kind != "" {
		attrs = append(attrs, attribute.String("call.kind", stats.Kind))
	}

	opt := metric.WithAttributes(attrs...)

	r.totalCount.Add(ctx, 1, opt)
	if stats.Outcome != "success" {
		r.errorCount.Add(ctx, 1, opt)
	}
	r.attemptHist.Record(ctx, int64(stats.Attempts), opt)
	r.durationHist.Record(ctx, float64(stats.Duration.Milliseconds()), opt)
}

// RecordTransition records one breaker state change.
func (r *recorderImpl) RecordTransition(ctx context.Context, dependency string, from, to string) {
	r.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("call.dependency", dependency),
		attribute.String("breaker.from", from),
		attribute.String("breaker.to", to),
	))
}

// nopRecorder is a recorder that does nothing.
type nopRecorder struct{}

// NopRecorder returns a Recorder that discards everything.
func NopRecorder() Recorder {
	return nopRecorder{}
}

func (nopRecorder) RecordCall(ctx context.Context, stats CallStats)                          {}
func (nopRecorder) RecordTransition(ctx context.Context, dependency string, from, to string) {}
