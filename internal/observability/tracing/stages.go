package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StartStage starts a span for one stage of the feed update pipeline
// (fetch, reconcile, filter, download, postprocess, publish), tagging it
// with the feed ID so spans from concurrent feed updates can be told apart
// in a trace backend.
//
// Example usage:
//
//	ctx, span := tracing.StartStage(ctx, feed.ID, "download")
//	defer span.End()
func StartStage(ctx context.Context, feedID, stage string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "pipeline."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("feed.id", feedID),
			attribute.String("pipeline.stage", stage),
		),
	)
	return ctx, span
}
