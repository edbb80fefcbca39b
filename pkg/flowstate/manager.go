package flowstate

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/randalmurphal/flowstate/pkg/flowstate/event"
	"github.com/randalmurphal/flowstate/pkg/flowstate/expr"
	"github.com/randalmurphal/flowstate/pkg/flowstate/observability"
	"github.com/randalmurphal/flowstate/pkg/flowstate/parser"
	"github.com/randalmurphal/flowstate/pkg/flowstate/registry"
	"github.com/randalmurphal/flowstate/pkg/flowstate/state"
)

// Manager owns a state store, the controls reading from it and the
// assignments deriving keys from other keys. Every mutation runs as a
// transaction that emits at most one VariableChange event.
//
// A Manager is not safe for concurrent use. Drive it from one goroutine,
// or post all calls to a scheduler.Loop that also serves as its Scheduler.
type Manager struct {
	id        string
	cfg       managerConfig
	logger    *slog.Logger
	evaluator *expr.Evaluator
	cache     *parser.Cache

	store      *state.Store
	dispatcher *event.Dispatcher
	acc        *event.Accumulator
	defaults   map[string]any

	// controls by ID, in registration order
	controls *registry.Registry[string, *Control]
	// readLinks maps a state key to the controls depending on it
	readLinks map[string][]*Control
	// assignments maps a listened key to its assignments by storage key
	assignments *registry.Registry[string, *registry.Registry[string, *assignment]]

	pending  map[uint64]*delayedTask
	nextTask uint64

	txCtx    context.Context
	inTx     bool
	depth    int
	disposed bool
}

// New creates a Manager seeded with initialState, which is copied.
//
// Initial assignments given through WithInitialAssignments are evaluated
// here against the default context and initialState, then merged over
// initialState. They do not see each other's results. No event is emitted
// for the seed.
func New(initialState map[string]any, opts ...Option) (*Manager, error) {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	id := uuid.New().String()
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	cache := parser.NewCache(0)
	evalOpts := []expr.Option{expr.WithCache(cache)}
	if cfg.shortCircuit {
		evalOpts = append(evalOpts, expr.WithShortCircuit())
	}

	m := &Manager{
		id:          id,
		cfg:         cfg,
		logger:      observability.EnrichLogger(logger, id),
		evaluator:   expr.New(evalOpts...),
		cache:       cache,
		dispatcher:  event.NewDispatcher(),
		acc:         event.NewAccumulator(),
		defaults:    buildDefaults(cfg),
		controls:    registry.New[string, *Control](),
		readLinks:   make(map[string][]*Control),
		assignments: registry.New[string, *registry.Registry[string, *assignment]](),
		pending:     make(map[uint64]*delayedTask),
	}

	seed := maps.Clone(initialState)
	if seed == nil {
		seed = make(map[string]any)
	}
	seedCtx := maps.Clone(m.defaults)
	maps.Copy(seedCtx, initialState)
	for _, key := range slices.Sorted(maps.Keys(cfg.initialAssignments)) {
		text := cfg.initialAssignments[key]
		v, err := m.evaluator.EvaluateString(text, seedCtx)
		if err != nil {
			return nil, &ExpressionError{Expression: text, Op: "evaluate", Target: key, Err: err}
		}
		seed[key] = v
	}

	m.store = state.New(seed)
	m.store.OnAnyChange(m.onChange)
	return m, nil
}

// buildDefaults layers builtins, then context, then functions.
func buildDefaults(cfg managerConfig) map[string]any {
	defaults := make(map[string]any, len(cfg.builtins)+len(cfg.context)+len(cfg.functions))
	maps.Copy(defaults, cfg.builtins)
	maps.Copy(defaults, cfg.context)
	maps.Copy(defaults, cfg.functions)
	return defaults
}

// ID returns the manager's unique ID, used to correlate logs and spans.
func (m *Manager) ID() string {
	return m.id
}

// GetState returns a live read-only view of the state.
func (m *Manager) GetState() state.View {
	return m.store.State()
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() map[string]any {
	return m.store.Snapshot()
}

// SetState applies patch in one transaction. Keys are applied in sorted
// order, so the resulting cascade and event are deterministic.
func (m *Manager) SetState(patch map[string]any) error {
	return m.transact(false, func() error {
		return m.store.SetState(patch)
	})
}

// Apply sets entries in the given order in one transaction.
func (m *Manager) Apply(entries ...state.Entry) error {
	return m.transact(false, func() error {
		return m.store.Apply(entries...)
	})
}

// OnEvent registers fn for every VariableChange event. Handlers run
// synchronously after the transaction commits and may mutate the manager,
// which starts a new transaction.
func (m *Manager) OnEvent(fn func(event.Event)) event.SubscriptionID {
	return m.dispatcher.Subscribe([]event.Type{event.VariableChange}, fn)
}

// Unsubscribe removes an event handler. Returns false if id is unknown.
func (m *Manager) Unsubscribe(id event.SubscriptionID) bool {
	return m.dispatcher.Unsubscribe(id)
}

// Evaluate evaluates an expression against the default context overlaid
// with the current state.
func (m *Manager) Evaluate(expression string) (any, error) {
	v, err := m.evaluator.EvaluateString(expression, m.context())
	if err != nil {
		return nil, &ExpressionError{Expression: expression, Op: "evaluate", Err: err}
	}
	return v, nil
}

// Control returns the most recently registered control with id.
func (m *Manager) Control(id string) (*Control, bool) {
	return m.controls.Get(id)
}

// Controls returns the registered controls in registration order, one per ID.
func (m *Manager) Controls() []*Control {
	return m.controls.Values()
}

// PendingDelayed returns the number of delayed assignments waiting to fire.
func (m *Manager) PendingDelayed() int {
	return len(m.pending)
}

// Dispose releases the manager. Pending delayed assignments become no-ops,
// handlers are dropped and later mutations return ErrDisposed. The state
// stays readable.
func (m *Manager) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	clear(m.pending)
	m.store.Dispose()
	m.dispatcher.Close()
	m.assignments.Clear()
	clear(m.readLinks)
	m.logger.Debug("manager disposed")
}

// context returns the evaluation context: defaults shadowed by state.
func (m *Manager) context() map[string]any {
	ctx := make(map[string]any, len(m.defaults)+m.store.State().Len())
	maps.Copy(ctx, m.defaults)
	maps.Copy(ctx, m.store.Snapshot())
	return ctx
}

// GetVariablesFromExpression returns the state keys an expression reads,
// in first-appearance order.
func GetVariablesFromExpression(expression string) ([]string, error) {
	vars, err := expr.VariablesFromExpression(expression)
	if err != nil {
		return nil, &ExpressionError{Expression: expression, Op: "parse", Err: err}
	}
	return vars, nil
}
