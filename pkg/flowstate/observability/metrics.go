package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records flowstate metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordTransaction records a finished or aborted transaction.
	RecordTransaction(ctx context.Context, delayed bool, changedKeys int, duration time.Duration, err error)

	// RecordAssignmentEvaluation records one assignment recomputation.
	RecordAssignmentEvaluation(ctx context.Context, storage string, err error)

	// RecordDelayedScheduled records a delayed assignment handed to the scheduler.
	RecordDelayedScheduled(ctx context.Context, storage string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	transactions       metric.Int64Counter
	transactionLatency metric.Float64Histogram
	transactionErrors  metric.Int64Counter
	changedKeys        metric.Int64Histogram
	evaluations        metric.Int64Counter
	delayed            metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("flowstate")

	transactions, err := meter.Int64Counter("flowstate.transaction.count",
		metric.WithDescription("Number of transactions"),
	)
	if err != nil {
		return nil, err
	}

	transactionLatency, err := meter.Float64Histogram("flowstate.transaction.latency_ms",
		metric.WithDescription("Transaction latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	transactionErrors, err := meter.Int64Counter("flowstate.transaction.errors",
		metric.WithDescription("Number of aborted transactions"),
	)
	if err != nil {
		return nil, err
	}

	changedKeys, err := meter.Int64Histogram("flowstate.transaction.changed_keys",
		metric.WithDescription("Keys changed per transaction"),
	)
	if err != nil {
		return nil, err
	}

	evaluations, err := meter.Int64Counter("flowstate.assignment.evaluations",
		metric.WithDescription("Number of assignment recomputations"),
	)
	if err != nil {
		return nil, err
	}

	delayed, err := meter.Int64Counter("flowstate.assignment.delayed",
		metric.WithDescription("Number of delayed assignments scheduled"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		transactions:       transactions,
		transactionLatency: transactionLatency,
		transactionErrors:  transactionErrors,
		changedKeys:        changedKeys,
		evaluations:        evaluations,
		delayed:            delayed,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordTransaction records a transaction.
func (m *otelMetrics) RecordTransaction(ctx context.Context, delayed bool, changedKeys int, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.Bool("delayed", delayed),
		attribute.Bool("success", err == nil),
	)
	m.transactions.Add(ctx, 1, attrs)
	m.transactionLatency.Record(ctx, float64(duration)/float64(time.Millisecond), attrs)
	m.changedKeys.Record(ctx, int64(changedKeys), attrs)
	if err != nil {
		m.transactionErrors.Add(ctx, 1, metric.WithAttributes(attribute.Bool("delayed", delayed)))
	}
}

// RecordAssignmentEvaluation records an assignment recomputation.
func (m *otelMetrics) RecordAssignmentEvaluation(ctx context.Context, storage string, err error) {
	m.evaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("storage", storage),
		attribute.Bool("success", err == nil),
	))
}

// RecordDelayedScheduled records a scheduled delayed assignment.
func (m *otelMetrics) RecordDelayedScheduled(ctx context.Context, storage string) {
	m.delayed.Add(ctx, 1, metric.WithAttributes(attribute.String("storage", storage)))
}
