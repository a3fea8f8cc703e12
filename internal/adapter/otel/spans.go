package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "parley"

// StartTurnSpan starts a span covering one full turn.
func StartTurnSpan(ctx context.Context, turnID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "turn",
		trace.WithAttributes(
			attribute.String("turn.id", turnID),
		),
	)
}

// StartStageSpan starts a span for one fan-out call to a stage service.
func StartStageSpan(ctx context.Context, kind, stageName string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "stage",
		trace.WithAttributes(
			attribute.String("stage.kind", kind),
			attribute.String("stage.name", stageName),
		),
	)
}

// StartScoreSpan starts a span for one scorer batch.
func StartScoreSpan(ctx context.Context, batchSize int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "score_batch",
		trace.WithAttributes(
			attribute.Int("batch.size", batchSize),
		),
	)
}
