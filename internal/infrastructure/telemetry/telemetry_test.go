package telemetry

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const sampleTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"

func TestInitTracerWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{ServiceName: "test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestContextWithTraceID(t *testing.T) {
	ctx, ok := ContextWithTraceID(context.Background(), sampleTraceID)
	require.True(t, ok)
	assert.Equal(t, sampleTraceID, TraceIDFromContext(ctx))
	assert.True(t, trace.SpanContextFromContext(ctx).IsRemote())

	_, ok = ContextWithTraceID(context.Background(), "not-hex")
	assert.False(t, ok)
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestKafkaHeadersRoundTrip(t *testing.T) {
	prop := propagation.TraceContext{}
	ctx, ok := ContextWithTraceID(context.Background(), sampleTraceID)
	require.True(t, ok)

	headers := []kafka.Header{{Key: "content-type", Value: []byte("application/json")}}
	injectWith(prop, ctx, &headers)
	require.Len(t, headers, 2)

	extracted := extractWith(prop, context.Background(), headers)
	assert.Equal(t, sampleTraceID, TraceIDFromContext(extracted))
}

func TestHeaderCarrierReplacesCaseInsensitively(t *testing.T) {
	carrier := headerCarrier{{Key: "Traceparent", Value: []byte("old")}}
	carrier.Set("traceparent", "new")
	require.Len(t, carrier, 1)
	assert.Equal(t, "new", carrier.Get("TRACEPARENT"))
	assert.Equal(t, []string{"Traceparent"}, carrier.Keys())
	assert.Empty(t, carrier.Get("tracestate"))
}
