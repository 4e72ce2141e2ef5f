package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/attribute"
)

func TestInit_EmptyEndpoint_ReturnsNoOpProvider(t *testing.T) {
	shutdown, err := Init(context.Background(), "broadcaster", "base-sepolia", "", true)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	err = shutdown(context.Background())
	assert.NoError(t, err)
}

func TestInit_ShutdownIdempotent(t *testing.T) {
	shutdown, err := Init(context.Background(), "broadcaster", "base-sepolia", "", true)
	require.NoError(t, err)

	assert.NoError(t, shutdown(context.Background()))
	assert.NoError(t, shutdown(context.Background()))
}

func TestTracer_StartsSpansWithoutExporter(t *testing.T) {
	shutdown, err := Init(context.Background(), "watcher", "base-sepolia", "", true)
	require.NoError(t, err)
	defer shutdown(context.Background())

	tracer := Tracer("watcher")
	require.NotNil(t, tracer)

	ctx, span := tracer.Start(context.Background(), "sweep")
	span.SetAttributes(attribute.String("bundle_id", "b-1"))
	span.End()
	assert.NotNil(t, ctx)
}
