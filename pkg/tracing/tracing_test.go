package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_NoTracer(t *testing.T) {
	SetTracer(nil)

	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()

	assert.Nil(t, GetActiveSpan(ctx))
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetTraceParent(ctx))
}

func TestSetup_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewInMemoryExporter()
	shutdown := Setup("enygma-test", recorder)
	t.Cleanup(func() {
		_ = shutdown(context.Background())
		SetTracer(nil)
	})

	ctx, span := StartSpan(context.Background(), "Pipeline.ProcessMessage", attribute.Int("length", 5))
	traceID := GetTraceID(ctx)
	spanID := GetSpanID(ctx)
	parent := GetTraceParent(ctx)
	span.End()

	require.Len(t, recorder.GetSpans(), 1)
	recorded := recorder.GetSpans()[0]
	assert.Equal(t, "Pipeline.ProcessMessage", recorded.Name)
	assert.Equal(t, traceID, recorded.SpanContext.TraceID().String())
	assert.Contains(t, parent, traceID)
	assert.Contains(t, parent, spanID)
}
