package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan opens an internal span on the named tracer.
func StartSpan(ctx context.Context, tracer, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracer).Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
}

// EndSpan records err (if any) and closes the span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		if safeErr := SafeError(err); safeErr != nil {
			span.RecordError(safeErr)
		}
		span.SetStatus(codes.Error, "error")
	}
	span.End()
}
