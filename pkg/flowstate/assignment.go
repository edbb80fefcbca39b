package flowstate

import (
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/flowstate/pkg/flowstate/ast"
	"github.com/randalmurphal/flowstate/pkg/flowstate/expr"
	"github.com/randalmurphal/flowstate/pkg/flowstate/observability"
	"github.com/randalmurphal/flowstate/pkg/flowstate/registry"
	"github.com/randalmurphal/flowstate/pkg/flowstate/scheduler"
)

// AssignmentParams describes a runtime assignment: whenever a listened
// key changes, Expression is evaluated and written to Storage.
type AssignmentParams struct {
	// Storage is the state key written.
	Storage string
	// Expression computes the new value.
	Expression string
	// Listen is a comma-separated list of keys that trigger the
	// assignment. When empty, the keys Expression reads are used.
	Listen string
	// Condition, when set, must be truthy for the write to happen.
	Condition string
	// Timeout delays the write. The condition is checked when it fires.
	Timeout time.Duration
}

type assignment struct {
	storage       string
	expression    string
	node          ast.Node
	conditionText string
	condition     ast.Node
	listen        []string
	timeout       time.Duration
}

type delayedTask struct {
	id     scheduler.TaskID
	assign *assignment
}

// AddRuntimeAssignment registers an assignment. Registering again for the
// same storage and listened key replaces the earlier one. Nothing is
// evaluated until a listened key changes.
func (m *Manager) AddRuntimeAssignment(p AssignmentParams) error {
	if m.disposed {
		return ErrDisposed
	}
	if p.Storage == "" {
		return ErrEmptyStorage
	}
	if strings.TrimSpace(p.Expression) == "" {
		return ErrEmptyExpression
	}
	if p.Timeout > 0 && m.cfg.scheduler == nil {
		return ErrNoScheduler
	}

	a := &assignment{
		storage:       p.Storage,
		expression:    p.Expression,
		conditionText: p.Condition,
		timeout:       p.Timeout,
	}

	node, err := m.cache.Parse(p.Expression)
	if err != nil {
		return &ExpressionError{Expression: p.Expression, Op: "parse", Target: p.Storage, Err: err}
	}
	a.node = node

	if strings.TrimSpace(p.Condition) != "" {
		cond, err := m.cache.Parse(p.Condition)
		if err != nil {
			return &ExpressionError{Expression: p.Condition, Op: "parse", Target: p.Storage, Err: err}
		}
		a.condition = cond
	}

	a.listen = splitListen(p.Listen)
	if len(a.listen) == 0 {
		a.listen = expr.FreeVariables(node)
	}

	for _, key := range a.listen {
		byStorage := m.assignments.GetOrCreate(key, registry.New[string, *assignment])
		byStorage.Register(a.storage, a)
	}
	observability.LogAssignmentRegistered(m.logger, a.storage, a.listen, a.timeout)
	return nil
}

// splitListen splits a comma-separated key list, dropping blanks.
func splitListen(listen string) []string {
	var keys []string
	for _, part := range strings.Split(listen, ",") {
		if key := strings.TrimSpace(part); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// assignmentsFor returns the assignments listening on key, in
// registration order.
func (m *Manager) assignmentsFor(key string) []*assignment {
	byStorage, ok := m.assignments.Get(key)
	if !ok {
		return nil
	}
	return byStorage.Values()
}

// runAssignments applies or schedules every assignment listening on key.
func (m *Manager) runAssignments(key string) error {
	for _, a := range m.assignmentsFor(key) {
		if a.timeout > 0 {
			m.scheduleDelayed(a)
			continue
		}
		if _, err := m.applyAssignment(a); err != nil {
			return err
		}
	}
	return nil
}

// applyAssignment checks the condition and writes the expression result.
// It reports whether the condition held.
func (m *Manager) applyAssignment(a *assignment) (bool, error) {
	ctx := m.context()
	if a.condition != nil {
		ok, err := m.evaluator.Evaluate(a.condition, ctx)
		if err != nil {
			err = &ExpressionError{Expression: a.conditionText, Op: "condition", Target: a.storage, Err: err}
			m.cfg.metrics.RecordAssignmentEvaluation(m.spanCtx(), a.storage, err)
			return false, err
		}
		if !expr.IsTruthy(ok) {
			return false, nil
		}
	}

	v, err := m.evaluator.Evaluate(a.node, ctx)
	if err != nil {
		err = &ExpressionError{Expression: a.expression, Op: "assign", Target: a.storage, Err: err}
	}
	m.cfg.metrics.RecordAssignmentEvaluation(m.spanCtx(), a.storage, err)
	if err != nil {
		return false, err
	}
	m.cfg.spans.AddSpanEvent(m.spanCtx(), "assignment.applied", attribute.String("storage", a.storage))
	return true, m.store.Set(a.storage, v)
}

// scheduleDelayed queues a delayed assignment. Each trigger schedules its
// own fire; earlier ones are not cancelled.
func (m *Manager) scheduleDelayed(a *assignment) {
	m.nextTask++
	key := m.nextTask
	task := &delayedTask{assign: a}
	m.pending[key] = task
	task.id = m.cfg.scheduler.Schedule(a.timeout, func() {
		m.fireDelayed(key)
	})
	m.cfg.metrics.RecordDelayedScheduled(m.spanCtx(), a.storage)
	m.cfg.spans.AddSpanEvent(m.spanCtx(), "assignment.scheduled",
		attribute.String("storage", a.storage),
		attribute.String("task_id", string(task.id)))
	observability.LogDelayedScheduled(m.logger, a.storage, string(task.id), a.timeout)
}

// fireDelayed runs a delayed assignment as its own transaction.
func (m *Manager) fireDelayed(key uint64) {
	task, ok := m.pending[key]
	if !ok || m.disposed {
		return
	}
	delete(m.pending, key)

	var applied bool
	err := m.transact(true, func() error {
		var err error
		applied, err = m.applyAssignment(task.assign)
		return err
	})
	if err != nil {
		observability.LogDelayedError(m.logger, task.assign.storage, string(task.id), err)
		if m.cfg.onError != nil {
			m.cfg.onError(err)
		}
		return
	}
	observability.LogDelayedFired(m.logger, task.assign.storage, string(task.id), applied)
}
