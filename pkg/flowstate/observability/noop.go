package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

// RecordTransaction does nothing.
func (NoopMetrics) RecordTransaction(_ context.Context, _ bool, _ int, _ time.Duration, _ error) {}

// RecordAssignmentEvaluation does nothing.
func (NoopMetrics) RecordAssignmentEvaluation(_ context.Context, _ string, _ error) {}

// RecordDelayedScheduled does nothing.
func (NoopMetrics) RecordDelayedScheduled(_ context.Context, _ string) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartTransactionSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartTransactionSpan(ctx context.Context, _ string, _ bool) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndTransactionSpan does nothing.
func (NoopSpanManager) EndTransactionSpan(_ trace.Span, _ int, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
