package otel

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/grid-enumerator/pkg/common/logger"
)

// zeroTraceID is reported when ctx carries no valid span, so every log line
// has a trace_id of the same shape.
const zeroTraceID = "00000000000000000000000000000000"

// GetTraceID returns the trace id from the current span context.
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return zeroTraceID
}

// TraceIDFn returns GetTraceID as a logger.TraceIDFn.
func TraceIDFn() logger.TraceIDFn { return GetTraceID }
