package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "artificer"

// StartRunSpan starts a span covering one engine request, resolve through
// execute.
func StartRunSpan(ctx context.Context, intent, toolName string, generate bool) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "engine.run",
		trace.WithAttributes(
			attribute.String("run.intent", intent),
			attribute.String("run.tool", toolName),
			attribute.Bool("run.generate", generate),
		),
	)
}

// RecordOutcome annotates the span with the terminal state.
func RecordOutcome(span trace.Span, status string, toolName string, durationMS int64) {
	span.SetAttributes(
		attribute.String("run.status", status),
		attribute.String("run.resolved_tool", toolName),
		attribute.Int64("run.duration_ms", durationMS),
	)
}
