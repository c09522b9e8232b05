package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/grid-enumerator/pkg/common/logger"
)

func TestInitTelemetry_NoEndpointReturnsNoop(t *testing.T) {
	providers, cleanup, err := InitTelemetry(logger.Noop(), Config{ServiceName: "test"})
	require.NoError(t, err)
	require.NotNil(t, cleanup)
	defer cleanup(context.Background())

	_, span := providers.Tracer.Tracer("test").Start(context.Background(), "span")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())

	_, err = providers.Meter.Meter("test").Int64Counter("c")
	assert.NoError(t, err)
}

func TestGetTraceID(t *testing.T) {
	assert.Equal(t, "00000000000000000000000000000000", GetTraceID(context.Background()))

	traceID := trace.TraceID{0x01, 0x02}
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: trace.SpanID{0x01}})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	assert.Equal(t, traceID.String(), GetTraceID(ctx))
	assert.Equal(t, traceID.String(), TraceIDFn()(ctx))
}

func TestNewResource(t *testing.T) {
	res := NewResource("svc", map[string]string{"run_id": "abc"})
	var found bool
	for _, kv := range res.Attributes() {
		if string(kv.Key) == "run_id" {
			found = true
			assert.Equal(t, "abc", kv.Value.AsString())
		}
	}
	assert.True(t, found)
}
