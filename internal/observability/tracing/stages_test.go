package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartStage_ReturnsNonNilSpanAndDerivedContext(t *testing.T) {
	ctx, span := StartStage(context.Background(), "feed-1", "download")
	defer span.End()

	assert.NotNil(t, span)
	assert.NotNil(t, ctx)
}

func TestStartStage_DistinctStagesProduceDistinctSpans(t *testing.T) {
	_, fetchSpan := StartStage(context.Background(), "feed-1", "fetch")
	defer fetchSpan.End()
	_, publishSpan := StartStage(context.Background(), "feed-1", "publish")
	defer publishSpan.End()

	assert.NotEqual(t, fetchSpan.SpanContext().SpanID(), publishSpan.SpanContext().SpanID())
}
