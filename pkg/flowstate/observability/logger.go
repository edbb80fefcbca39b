// Package observability provides logging, metrics and tracing for
// flowstate managers.
//
// Features:
//   - Structured logging via slog
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every helper accepts a nil logger.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds the manager ID to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "mgr-1a2b3c4d")
//	enriched.Info("ready") // includes manager_id
func EnrichLogger(logger *slog.Logger, managerID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("manager_id", managerID))
}

// LogTransactionStart logs the start of a transaction.
func LogTransactionStart(logger *slog.Logger, delayed bool) {
	if logger == nil {
		return
	}
	logger.Debug("transaction starting",
		slog.Bool("delayed", delayed),
	)
}

// LogTransactionComplete logs a finished transaction.
func LogTransactionComplete(logger *slog.Logger, delayed bool, changedKeys, targets int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("transaction completed",
		slog.Bool("delayed", delayed),
		slog.Int("changed_keys", changedKeys),
		slog.Int("targets", targets),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogTransactionError logs an aborted transaction.
func LogTransactionError(logger *slog.Logger, delayed bool, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("transaction failed",
		slog.Bool("delayed", delayed),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogControlRegistered logs a control and the variables it reads.
func LogControlRegistered(logger *slog.Logger, controlID string, reads []string) {
	if logger == nil {
		return
	}
	logger.Debug("control registered",
		slog.String("control_id", controlID),
		slog.Any("reads", reads),
	)
}

// LogAssignmentRegistered logs an assignment and its listen variables.
func LogAssignmentRegistered(logger *slog.Logger, storage string, listen []string, timeout time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("assignment registered",
		slog.String("storage", storage),
		slog.Any("listen", listen),
		slog.Duration("timeout", timeout),
	)
}

// LogDelayedScheduled logs a delayed assignment handed to the scheduler.
func LogDelayedScheduled(logger *slog.Logger, storage, taskID string, timeout time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("delayed assignment scheduled",
		slog.String("storage", storage),
		slog.String("task_id", taskID),
		slog.Duration("timeout", timeout),
	)
}

// LogDelayedFired logs a delayed assignment whose timer fired.
func LogDelayedFired(logger *slog.Logger, storage, taskID string, conditionMet bool) {
	if logger == nil {
		return
	}
	logger.Debug("delayed assignment fired",
		slog.String("storage", storage),
		slog.String("task_id", taskID),
		slog.Bool("condition_met", conditionMet),
	)
}

// LogDelayedError logs a delayed assignment that failed. There is no caller
// to return the error to.
func LogDelayedError(logger *slog.Logger, storage, taskID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("delayed assignment failed",
		slog.String("storage", storage),
		slog.String("task_id", taskID),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// The returned function reports the elapsed time in milliseconds.
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start)) / float64(time.Millisecond)
	}
}
