package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer uses the global OTel tracer provider.
var tracer = otel.Tracer("flowstate")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartTransactionSpan starts a span covering one transaction and its
	// cascades.
	StartTransactionSpan(ctx context.Context, managerID string, delayed bool) (context.Context, trace.Span)

	// EndTransactionSpan records the number of changed keys and completes
	// the span, optionally recording an error.
	EndTransactionSpan(span trace.Span, changedKeys int, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

func (m *otelSpanManager) StartTransactionSpan(ctx context.Context, managerID string, delayed bool) (context.Context, trace.Span) {
	return StartTransactionSpan(ctx, managerID, delayed)
}

func (m *otelSpanManager) EndTransactionSpan(span trace.Span, changedKeys int, err error) {
	EndTransactionSpan(span, changedKeys, err)
}

func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// StartTransactionSpan starts a transaction span on the global tracer.
func StartTransactionSpan(ctx context.Context, managerID string, delayed bool) (context.Context, trace.Span) {
	return tracer.Start(ctx, "flowstate.transaction",
		trace.WithAttributes(
			attribute.String("manager.id", managerID),
			attribute.Bool("transaction.delayed", delayed),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndTransactionSpan sets transaction.changed_keys and ends the span.
func EndTransactionSpan(span trace.Span, changedKeys int, err error) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.Int("transaction.changed_keys", changedKeys))
	EndSpanWithError(span, err)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
