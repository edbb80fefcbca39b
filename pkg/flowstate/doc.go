/*
Package flowstate provides a reactive expression engine for form and
control state.

# Overview

A Manager holds a flat key/value state. Controls declare expressions over
that state, and runtime assignments derive keys from other keys. When a key
changes, the assignments listening on it run, their writes cascade, and
once the whole change settles the manager emits a single VariableChange
event naming the controls that need to re-render.

Expressions use a JavaScript-like subset: literals, identifiers, member
access, unary, binary, logical and conditional operators, arrays and calls
to context functions. See the expr package for the exact semantics.

# Basic Usage

	m, err := flowstate.New(map[string]any{"button1": false})
	if err != nil {
	    log.Fatal(err)
	}

	door, _ := m.AddControl(flowstate.ControlSpec{
	    ID:      "door",
	    Runtime: map[string]string{"visible": "button1 && button2"},
	})
	button1, _ := m.AddControl(flowstate.ControlSpec{
	    ID:      "button1",
	    Runtime: map[string]string{"storage": "button1"},
	})

	_ = m.AddRuntimeAssignment(flowstate.AssignmentParams{
	    Storage:    "button2",
	    Expression: "!button1",
	})

	m.OnEvent(func(e event.Event) {
	    fmt.Println(e.Data.TargetControlIDs, e.Data.NewValues)
	})

	_ = button1.SetValue(true)
	visible, _ := door.Evaluate("visible")

# Transactions

SetState, Apply and Control.SetValue each run one transaction. Within it,
every key change first runs the assignments listening on that key, depth
first, and then records the key's old and new value and its targets. The
event is emitted after the outermost change returns, and only if some key
actually changed. Setting a key to its current value is a no-op.

An evaluation error aborts the transaction and is returned. No event is
emitted for it, and writes already made are kept. A cascade deeper than
WithMaxCascadeDepth (default 1000) aborts with a *CascadeDepthError.

# Delayed Assignments

An assignment with a Timeout is handed to the Scheduler instead of running
inline. When it fires, its condition is checked against the state at that
moment, and the write runs as its own transaction with IsDelayed set.
Use scheduler.Manual to drive time in tests and scheduler.Loop for real
timers:

	loop := scheduler.NewLoop()
	_ = loop.Start(ctx)
	defer loop.Stop()

	m, _ := flowstate.New(nil, flowstate.WithScheduler(loop))
	_ = loop.Do(ctx, func() {
	    _ = m.SetState(map[string]any{"a": 1})
	})

# Definitions

A manager can be described in YAML or JSON and built with
NewFromDefinition:

	state: {a: 1}
	initial_assignments: {b: "a + 1"}
	assignments:
	  - {storage: c, expression: "a * 2", condition: "a > 0", timeout: 250ms}
	controls:
	  - {id: total, runtime: {label: "'Total: ' + c"}}
	options: {builtins: true}

# Observability

Every transaction is logged at debug level with the manager's ID. Metrics
and spans are off by default and enabled with WithMetrics and
WithSpanManager, backed by OpenTelemetry.

# Concurrency

A Manager is not safe for concurrent use. All calls, including delayed
fires, must happen on one goroutine. scheduler.Loop provides such a
goroutine.
*/
package flowstate
