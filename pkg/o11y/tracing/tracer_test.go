package tracing_test

import (
	"context"
	"testing"

	"github.com/jademcosta/courier/pkg/config"
	"github.com/jademcosta/courier/pkg/o11y/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledTracingIsNoop(t *testing.T) {
	tracer, shutdown, err := tracing.NewTracer(context.Background(), config.O11yConfig{ServiceName: "courier"})
	require.NoError(t, err)

	_, span := tracer.Start(context.Background(), "something")
	assert.False(t, span.SpanContext().IsValid(), "a noop tracer should not create real spans")
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}

func TestEnabledTracingRecordsSpans(t *testing.T) {
	tracer, shutdown, err := tracing.NewTracer(context.Background(),
		config.O11yConfig{TracingEnabled: true, ServiceName: "courier-test"})
	require.NoError(t, err)

	_, span := tracer.Start(context.Background(), "something")
	assert.True(t, span.SpanContext().IsValid(), "spans should be sampled")
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
