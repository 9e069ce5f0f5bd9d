package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CallTracer wraps an OpenTelemetry tracer with call-specific span naming.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: EndCall is best-effort and must not panic.
type CallTracer struct {
	tracer trace.Tracer
}

// NewCallTracer creates a CallTracer over the given tracer.
func NewCallTracer(t trace.Tracer) *CallTracer {
	return &CallTracer{tracer: t}
}

// StartCall starts a span for one protected call against a dependency.
// Span name format: call.exec.<dependency>
func (t *CallTracer) StartCall(ctx context.Context, dependency string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "call.exec."+dependency,
		trace.WithAttributes(
			attribute.String("call.dependency", dependency),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndCall ends the span, recording attempt count and any terminal error.
func (t *CallTracer) EndCall(span trace.Span, attempts int, err error) {
	span.SetAttributes(attribute.Int("call.attempts", attempts))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
