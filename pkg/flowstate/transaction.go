package flowstate

import (
	"context"
	"time"

	"github.com/randalmurphal/flowstate/pkg/flowstate/observability"
	"github.com/randalmurphal/flowstate/pkg/flowstate/state"
)

// transact runs mutate as one transaction: changes cascade through
// assignments, accumulate, and produce a single event once mutate returns.
// Calls made while a transaction is open join it.
//
// On error the transaction is abandoned without an event. Writes already
// made stay in the store.
func (m *Manager) transact(delayed bool, mutate func() error) error {
	if m.disposed {
		return ErrDisposed
	}
	if m.inTx {
		return mutate()
	}

	ctx, span := m.cfg.spans.StartTransactionSpan(context.Background(), m.id, delayed)
	m.txCtx = ctx
	m.inTx = true
	m.depth = 0
	m.acc.Reset()
	elapsed := observability.TimedOperation()
	start := time.Now()
	observability.LogTransactionStart(m.logger, delayed)

	err := mutate()

	m.inTx = false
	m.txCtx = nil
	changed := m.acc.Len()
	m.cfg.metrics.RecordTransaction(ctx, delayed, changed, time.Since(start), err)
	m.cfg.spans.EndTransactionSpan(span, changed, err)
	if err != nil {
		observability.LogTransactionError(m.logger, delayed, err, elapsed())
		return err
	}
	if !m.acc.Changed() {
		observability.LogTransactionComplete(m.logger, delayed, 0, 0, elapsed())
		return nil
	}

	evt := m.acc.Event(delayed)
	observability.LogTransactionComplete(m.logger, delayed, changed, len(evt.Data.TargetControlIDs), elapsed())
	return m.dispatcher.Dispatch(evt)
}

// onChange is the store subscriber driving the cascade. Assignments
// listening on the key run first, depth first, then the key's own change
// and targets are recorded.
func (m *Manager) onChange(c state.Change) error {
	if !m.inTx {
		return nil
	}
	m.depth++
	defer func() { m.depth-- }()
	if m.depth > m.cfg.maxCascadeDepth {
		return &CascadeDepthError{Max: m.cfg.maxCascadeDepth, Key: c.Key}
	}

	m.acc.Begin(c.Key, c.OldValue)
	if err := m.runAssignments(c.Key); err != nil {
		return err
	}

	m.acc.Target(controlIDs(m.readLinks[c.Key])...)
	for _, a := range m.assignmentsFor(c.Key) {
		m.acc.Target(controlIDs(m.readLinks[a.storage])...)
	}
	v, _ := m.store.Get(c.Key)
	m.acc.Record(c.Key, v)
	return nil
}

// spanCtx returns the open transaction's context for metrics.
func (m *Manager) spanCtx() context.Context {
	if m.txCtx != nil {
		return m.txCtx
	}
	return context.Background()
}

func controlIDs(controls []*Control) []string {
	ids := make([]string, len(controls))
	for i, c := range controls {
		ids[i] = c.id
	}
	return ids
}
