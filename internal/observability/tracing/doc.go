// Package tracing provides OpenTelemetry tracing integration.
//
// It exposes a process-global tracer (GetTracer), an HTTP server middleware
// that extracts W3C trace context from inbound requests and tags the
// response with a correlation header, and StartStage for wrapping each
// stage of the feed update pipeline (fetch, reconcile, filter, download,
// postprocess, publish) in its own span.
//
// internal/lifecycle's startup sequence installs an SDK TracerProvider so
// spans created here are recorded. That provider has no exporter (OTLP,
// Jaeger, etc.) attached; the repository wires none.
//
// Example usage:
//
//	import "vodcast/internal/observability/tracing"
//
//	func updateFeed(ctx context.Context, feed domain.Feed) error {
//	    ctx, span := tracing.StartStage(ctx, feed.ID, "fetch")
//	    defer span.End()
//	    // ... fetch the feed's listing ...
//	}
package tracing
