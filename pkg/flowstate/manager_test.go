package flowstate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowstate/pkg/flowstate/event"
	"github.com/randalmurphal/flowstate/pkg/flowstate/expr"
	"github.com/randalmurphal/flowstate/pkg/flowstate/state"
)

func TestNew_InitialState(t *testing.T) {
	initial := map[string]any{"a": 1}
	m := newManager(t, initial)

	assert.Equal(t, map[string]any{"a": 1}, m.Snapshot())
	assert.NotEmpty(t, m.ID())

	initial["a"] = 99
	assert.Equal(t, 1, m.GetState().Value("a"), "initial state is copied")
}

func TestNew_InitialAssignments(t *testing.T) {
	m := newManager(t, map[string]any{"a": 1},
		WithContext(map[string]any{"limit": 10}),
		WithInitialAssignments(map[string]string{
			"b": "a + 1",
			"c": "limit * 2",
		}))

	assert.Equal(t, map[string]any{"a": 1, "b": float64(2), "c": float64(20)}, m.Snapshot())
}

func TestNew_InitialAssignmentError(t *testing.T) {
	_, err := New(nil, WithInitialAssignments(map[string]string{"b": "a +"}))

	var exprErr *ExpressionError
	require.ErrorAs(t, err, &exprErr)
	assert.Equal(t, "b", exprErr.Target)
}

func TestSetState_ReadControlTargeted(t *testing.T) {
	m := newManager(t, map[string]any{"a": 1})
	addControl(t, m, "0", map[string]string{"read": "a"})
	rec := record(m)

	require.NoError(t, m.SetState(map[string]any{"a": 2}))

	require.Len(t, rec.events, 1)
	evt := rec.last(t)
	assert.Equal(t, event.VariableChange, evt.Type)
	assert.Equal(t, event.VariableChangeData{
		TargetControlIDs: []string{"0"},
		NewValues:        map[string]any{"a": 2},
		OldValues:        map[string]any{"a": 1},
	}, evt.Data)
}

func TestSetState_SeveralReadControls(t *testing.T) {
	m := newManager(t, map[string]any{"a": 1})
	addControl(t, m, "0", map[string]string{"read": "a"})
	addControl(t, m, "1", map[string]string{"read": "a && b"})
	addControl(t, m, "1", map[string]string{"read": "b"})
	rec := record(m)

	require.NoError(t, m.SetState(map[string]any{"a": 2}))

	assert.Equal(t, []string{"0", "1"}, rec.last(t).Data.TargetControlIDs)
}

func TestControl_WriteControl(t *testing.T) {
	m := newManager(t, map[string]any{"a": 1})
	require.NoError(t, m.SetState(map[string]any{"b": 2}))

	read := addControl(t, m, "0", map[string]string{"read": "a + b"})
	write := addControl(t, m, "1", map[string]string{"storage": "a"})

	v, err := read.Evaluate("read")
	require.NoError(t, err)
	assert.Equal(t, float64(3), v)
	v, err = write.Evaluate("")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	rec := record(m)
	require.NoError(t, write.SetValue(2))

	v, err = read.Evaluate("read")
	require.NoError(t, err)
	assert.Equal(t, float64(4), v)
	assert.Equal(t, 2, write.Value())
	assert.Equal(t, event.VariableChangeData{
		TargetControlIDs: []string{"0", "1"},
		NewValues:        map[string]any{"a": 2},
		OldValues:        map[string]any{"a": 1},
	}, rec.last(t).Data)
}

func TestAssignment_EvaluatedOnListenedChange(t *testing.T) {
	tests := []struct {
		name       string
		expression string
	}{
		{name: "negation", expression: "!button1"},
		{name: "strict inequality", expression: "button1 !== true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManager(t, nil)
			button1 := addControl(t, m, "1", map[string]string{"storage": "button1"})
			button2 := addControl(t, m, "2", map[string]string{"storage": "button2"})
			addAssignment(t, m, AssignmentParams{Storage: "button2", Expression: tt.expression})

			require.NoError(t, button1.SetValue(false))

			v, err := button2.Evaluate("")
			require.NoError(t, err)
			assert.Equal(t, true, v)
		})
	}
}

func TestAssignment_StorageChangeWithoutListenedChange(t *testing.T) {
	m := newManager(t, nil)
	addControl(t, m, "1", map[string]string{"storage": "button1"})
	button2 := addControl(t, m, "2", map[string]string{"storage": "button2"})
	rec := record(m)
	addAssignment(t, m, AssignmentParams{Storage: "button2", Expression: "!button1"})

	require.NoError(t, button2.SetValue(true))

	assert.Equal(t, event.VariableChangeData{
		TargetControlIDs: []string{"2"},
		NewValues:        map[string]any{"button2": true},
		OldValues:        map[string]any{"button2": nil},
	}, rec.last(t).Data)
}

type doorFixture struct {
	m       *Manager
	rec     *recorder
	door    *Control
	button1 *Control
	button2 *Control
}

func newDoor(t *testing.T) doorFixture {
	t.Helper()
	m := newManager(t, nil)
	f := doorFixture{m: m, rec: record(m)}
	f.door = addControl(t, m, "0", map[string]string{"read": "button1 && button2"})
	f.button1 = addControl(t, m, "1", map[string]string{"storage": "button1"})
	f.button2 = addControl(t, m, "2", map[string]string{"storage": "button2"})
	addAssignment(t, m, AssignmentParams{Storage: "button2", Expression: "!button1"})
	return f
}

func (f doorFixture) open(t *testing.T) bool {
	t.Helper()
	v, err := f.door.Evaluate("read")
	require.NoError(t, err)
	return expr.IsTruthy(v)
}

func TestDoor_InitialEvent(t *testing.T) {
	f := newDoor(t)

	require.NoError(t, f.button2.SetValue(true))

	require.Len(t, f.rec.events, 1)
	assert.Equal(t, event.Event{
		Type: event.VariableChange,
		Data: event.VariableChangeData{
			TargetControlIDs: []string{"0", "2"},
			NewValues:        map[string]any{"button2": true},
			OldValues:        map[string]any{"button2": nil},
		},
	}, f.rec.last(t))
	assert.Equal(t, map[string]any{"button2": true}, f.m.Snapshot())
}

func TestDoor_Interaction(t *testing.T) {
	f := newDoor(t)

	require.NoError(t, f.button2.SetValue(true))
	assert.Nil(t, f.button1.Value())
	assert.Equal(t, true, f.button2.Value())
	assert.False(t, f.open(t))

	require.NoError(t, f.button2.SetValue(!expr.IsTruthy(f.button2.Value())))
	assert.Nil(t, f.button1.Value())
	assert.Equal(t, false, f.button2.Value())
	assert.False(t, f.open(t))
	assert.Equal(t, map[string]any{"button2": false}, f.m.Snapshot())

	require.NoError(t, f.button1.SetValue(!expr.IsTruthy(f.button1.Value())))
	assert.Equal(t, true, f.button1.Value())
	assert.Equal(t, false, f.button2.Value())
	assert.False(t, f.open(t))
	assert.Equal(t, map[string]any{"button1": true, "button2": false}, f.m.Snapshot())

	evt := f.rec.last(t)
	assert.Equal(t, []string{"0", "1", "2"}, evt.Data.TargetControlIDs)
	assert.Equal(t, map[string]any{"button1": true}, evt.Data.NewValues, "button2 was recomputed but unchanged")

	require.NoError(t, f.button2.SetValue(!expr.IsTruthy(f.button2.Value())))
	assert.Equal(t, true, f.button1.Value())
	assert.Equal(t, true, f.button2.Value())
	assert.True(t, f.open(t))
	assert.Equal(t, map[string]any{"button1": true, "button2": true}, f.m.Snapshot())
}

func TestTransaction_CascadeAccumulatesOneEvent(t *testing.T) {
	m := newManager(t, map[string]any{"a": 1, "b": 0, "c": 0})
	addControl(t, m, "showB", map[string]string{"visible": "b > 2"})
	addControl(t, m, "showC", map[string]string{"visible": "c > 2"})
	addAssignment(t, m, AssignmentParams{Storage: "b", Expression: "a + 1"})
	addAssignment(t, m, AssignmentParams{Storage: "c", Expression: "b * 2"})
	rec := record(m)

	require.NoError(t, m.SetState(map[string]any{"a": 2}))

	require.Len(t, rec.events, 1)
	data := rec.last(t).Data
	assert.Equal(t, map[string]any{"a": 2, "b": float64(3), "c": float64(6)}, data.NewValues)
	assert.Equal(t, map[string]any{"a": 1, "b": 0, "c": 0}, data.OldValues)
	assert.Equal(t, []string{"showC", "showB"}, data.TargetControlIDs)
	assert.False(t, data.IsDelayed)
}

func TestTransaction_OldValueIsFirstSeen(t *testing.T) {
	m := newManager(t, map[string]any{"a": 1, "b": 0})
	addAssignment(t, m, AssignmentParams{Storage: "b", Expression: "a * 10"})
	rec := record(m)

	require.NoError(t, m.Apply(
		state.Entry{Key: "b", Value: 5},
		state.Entry{Key: "a", Value: 2},
	))

	data := rec.last(t).Data
	assert.Equal(t, 0, data.OldValues["b"])
	assert.Equal(t, float64(20), data.NewValues["b"])
}

func TestTransaction_Idempotent(t *testing.T) {
	m := newManager(t, map[string]any{"a": 1})
	addControl(t, m, "0", map[string]string{"read": "a"})
	rec := record(m)

	require.NoError(t, m.SetState(map[string]any{"a": 1}))
	require.NoError(t, m.SetState(map[string]any{}))

	assert.Empty(t, rec.events)
}

func TestTransaction_SiblingKeysSortedOrder(t *testing.T) {
	m := newManager(t, nil)
	addControl(t, m, "z", map[string]string{"read": "z"})
	addControl(t, m, "a", map[string]string{"read": "a"})
	rec := record(m)

	require.NoError(t, m.SetState(map[string]any{"z": 1, "a": 1}))

	assert.Equal(t, []string{"a", "z"}, rec.last(t).Data.TargetControlIDs)
}

func TestTransaction_Deterministic(t *testing.T) {
	run := func() []event.Event {
		m, err := New(map[string]any{"x": 0})
		require.NoError(t, err)
		defer m.Dispose()
		addControl(t, m, "sum", map[string]string{"read": "x + y + z"})
		addControl(t, m, "y", map[string]string{"storage": "y"})
		addAssignment(t, m, AssignmentParams{Storage: "y", Expression: "x * 2"})
		addAssignment(t, m, AssignmentParams{Storage: "z", Expression: "y + 1"})
		rec := record(m)
		for i := 1; i <= 5; i++ {
			require.NoError(t, m.SetState(map[string]any{"x": i, "w": i}))
		}
		return rec.events
	}

	assert.Equal(t, run(), run())
}

func TestTransaction_EvaluationErrorAborts(t *testing.T) {
	m := newManager(t, map[string]any{"a": 1},
		WithFunction("fail", func(args ...any) (any, error) {
			return nil, errors.New("boom")
		}))
	addAssignment(t, m, AssignmentParams{Storage: "b", Expression: "fail(a)"})
	rec := record(m)

	err := m.SetState(map[string]any{"a": 2})

	var exprErr *ExpressionError
	require.ErrorAs(t, err, &exprErr)
	assert.Equal(t, "assign", exprErr.Op)
	assert.Equal(t, "b", exprErr.Target)
	assert.Empty(t, rec.events)
	assert.Equal(t, 2, m.GetState().Value("a"), "earlier writes are kept")
}

func TestTransaction_CascadeDepth(t *testing.T) {
	m := newManager(t, map[string]any{"a": 0}, WithMaxCascadeDepth(10))
	addAssignment(t, m, AssignmentParams{Storage: "b", Expression: "a + 1"})
	addAssignment(t, m, AssignmentParams{Storage: "a", Expression: "b + 1"})
	rec := record(m)

	err := m.SetState(map[string]any{"a": 1})

	require.ErrorIs(t, err, ErrCascadeDepth)
	var depthErr *CascadeDepthError
	require.ErrorAs(t, err, &depthErr)
	assert.Equal(t, 10, depthErr.Max)
	assert.Empty(t, rec.events)

	// The manager stays usable after an aborted transaction.
	addControl(t, m, "c", map[string]string{"read": "c"})
	require.NoError(t, m.SetState(map[string]any{"c": true}))
	assert.Len(t, rec.events, 1)
}

func TestTransaction_ConvergingCycle(t *testing.T) {
	m := newManager(t, map[string]any{"a": 0, "b": 0})
	addAssignment(t, m, AssignmentParams{Storage: "b", Expression: "a"})
	addAssignment(t, m, AssignmentParams{Storage: "a", Expression: "b"})
	rec := record(m)

	require.NoError(t, m.SetState(map[string]any{"a": 5}))

	assert.Equal(t, map[string]any{"a": 5, "b": 5}, m.Snapshot())
	assert.Len(t, rec.events, 1)
}

func TestOnEvent_HandlerMayMutate(t *testing.T) {
	m := newManager(t, map[string]any{"a": 0})
	var seen []map[string]any
	m.OnEvent(func(e event.Event) {
		seen = append(seen, e.Data.NewValues)
		if _, ok := e.Data.NewValues["a"]; ok {
			require.NoError(t, m.SetState(map[string]any{"echo": true}))
		}
	})

	require.NoError(t, m.SetState(map[string]any{"a": 1}))

	assert.Equal(t, []map[string]any{{"a": 1}, {"echo": true}}, seen)
}

func TestUnsubscribe(t *testing.T) {
	m := newManager(t, nil)
	calls := 0
	id := m.OnEvent(func(event.Event) { calls++ })

	require.NoError(t, m.SetState(map[string]any{"a": 1}))
	assert.True(t, m.Unsubscribe(id))
	assert.False(t, m.Unsubscribe(id))
	require.NoError(t, m.SetState(map[string]any{"a": 2}))

	assert.Equal(t, 1, calls)
}

func TestEvaluate(t *testing.T) {
	m := newManager(t, map[string]any{"a": 2, "limit": 1},
		WithContext(map[string]any{"limit": 10, "k": 3}))

	v, err := m.Evaluate("a * k")
	require.NoError(t, err)
	assert.Equal(t, float64(6), v)

	v, err = m.Evaluate("limit")
	require.NoError(t, err)
	assert.Equal(t, 1, v, "state shadows context")

	_, err = m.Evaluate("a +")
	var exprErr *ExpressionError
	require.ErrorAs(t, err, &exprErr)
	assert.Equal(t, "evaluate", exprErr.Op)
}

func TestBuiltins(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := newManager(t, nil, WithBuiltins(expr.WithClock(func() time.Time { return fixed })))
	c := addControl(t, m, "1", map[string]string{"read": "now()", "max": "max(1, 5, 3)"})

	v, err := c.Evaluate("read")
	require.NoError(t, err)
	assert.Equal(t, float64(fixed.UnixMilli()), v)

	v, err = c.Evaluate("max")
	require.NoError(t, err)
	assert.Equal(t, float64(5), v)
}

func TestWithFunction_OverridesBuiltin(t *testing.T) {
	m := newManager(t, nil,
		WithBuiltins(),
		WithFunction("max", func(args ...any) any { return "mine" }))

	v, err := m.Evaluate("max(1, 2)")
	require.NoError(t, err)
	assert.Equal(t, "mine", v)
}

func TestShortCircuit(t *testing.T) {
	calls := 0
	count := func(args ...any) any {
		calls++
		return true
	}

	eager := newManager(t, nil, WithFunction("count", count))
	_, err := eager.Evaluate("false && count()")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	lazy := newManager(t, nil, WithFunction("count", count), WithShortCircuit())
	_, err = lazy.Evaluate("false && count()")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDispose(t *testing.T) {
	m, err := New(map[string]any{"a": 1})
	require.NoError(t, err)
	c := addControl(t, m, "1", map[string]string{"storage": "a"})
	rec := record(m)

	m.Dispose()
	m.Dispose()

	assert.ErrorIs(t, m.SetState(map[string]any{"a": 2}), ErrDisposed)
	assert.ErrorIs(t, c.SetValue(3), ErrDisposed)
	assert.ErrorIs(t, m.AddRuntimeAssignment(AssignmentParams{Storage: "b", Expression: "a"}), ErrDisposed)
	_, err = m.AddControl(ControlSpec{ID: "2"})
	assert.ErrorIs(t, err, ErrDisposed)

	assert.Equal(t, 1, m.GetState().Value("a"), "state stays readable")
	assert.Empty(t, rec.events)
}

func TestGetVariablesFromExpression(t *testing.T) {
	vars, err := GetVariablesFromExpression("a + b.c > 1 && d[e]")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d", "e"}, vars)

	_, err = GetVariablesFromExpression("a +")
	var exprErr *ExpressionError
	require.ErrorAs(t, err, &exprErr)
	assert.Equal(t, "parse", exprErr.Op)
}
