package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowstate/pkg/flowstate/event"
)

func TestTypeString(t *testing.T) {
	assert.Equal(t, "EVENT_VARIABLE_CHANGE", event.VariableChange.String())
	assert.Equal(t, "EVENT_UNKNOWN(7)", event.Type(7).String())
}

func TestAccumulator(t *testing.T) {
	acc := event.NewAccumulator()
	assert.False(t, acc.Changed())

	acc.Begin("a", 1)
	acc.Record("a", 2)
	acc.Begin("a", 2)
	acc.Record("a", 3)
	acc.Begin("b", nil)
	acc.Record("b", true)
	acc.Target("door", "b")
	acc.Target("b", "a")

	require.True(t, acc.Changed())
	assert.Equal(t, 2, acc.Len())

	evt := acc.Event(false)
	assert.Equal(t, event.VariableChange, evt.Type)
	assert.Equal(t, []string{"door", "b", "a"}, evt.Data.TargetControlIDs)
	assert.Equal(t, map[string]any{"a": 3, "b": true}, evt.Data.NewValues)
	assert.Equal(t, map[string]any{"a": 1, "b": nil}, evt.Data.OldValues)
	assert.False(t, evt.Data.IsDelayed)
	assert.Equal(t, []string{"a", "b"}, evt.Data.ChangedKeys())
	assert.True(t, evt.Data.Targets("door"))
	assert.False(t, evt.Data.Targets("window"))
}

func TestAccumulator_EventIsDetached(t *testing.T) {
	acc := event.NewAccumulator()
	acc.Begin("a", 0)
	acc.Record("a", 1)
	evt := acc.Event(true)

	acc.Reset()
	acc.Begin("a", 5)
	acc.Record("a", 6)

	assert.True(t, evt.Data.IsDelayed)
	assert.Equal(t, map[string]any{"a": 1}, evt.Data.NewValues)
	assert.Empty(t, evt.Data.TargetControlIDs)
	assert.NotNil(t, evt.Data.TargetControlIDs)
}

func TestDispatcher_Order(t *testing.T) {
	d := event.NewDispatcher()
	var got []string
	d.SubscribeAll(func(event.Event) { got = append(got, "first") })
	d.Subscribe([]event.Type{event.VariableChange}, func(event.Event) { got = append(got, "typed") })
	d.Subscribe([]event.Type{event.Type(99)}, func(event.Event) { got = append(got, "other") })
	d.SubscribeAll(func(event.Event) { got = append(got, "last") })

	require.NoError(t, d.Dispatch(event.Event{Type: event.VariableChange}))
	assert.Equal(t, []string{"first", "typed", "last"}, got)
	assert.Equal(t, 4, d.Len())
}

func TestDispatcher_Unsubscribe(t *testing.T) {
	d := event.NewDispatcher()
	calls := 0
	id := d.SubscribeAll(func(event.Event) { calls++ })

	assert.True(t, d.Unsubscribe(id))
	assert.False(t, d.Unsubscribe(id))
	require.NoError(t, d.Dispatch(event.Event{}))
	assert.Equal(t, 0, calls)
}

func TestDispatcher_UnsubscribeDuringDispatch(t *testing.T) {
	d := event.NewDispatcher()
	var second event.SubscriptionID
	calls := 0
	d.SubscribeAll(func(event.Event) { d.Unsubscribe(second) })
	second = d.SubscribeAll(func(event.Event) { calls++ })
	d.SubscribeAll(func(event.Event) { d.SubscribeAll(func(event.Event) { calls += 10 }) })

	require.NoError(t, d.Dispatch(event.Event{}))
	assert.Equal(t, 0, calls)

	require.NoError(t, d.Dispatch(event.Event{}))
	assert.Equal(t, 10, calls)
}

func TestDispatcher_PauseResume(t *testing.T) {
	d := event.NewDispatcher()
	calls := 0
	id := d.SubscribeAll(func(event.Event) { calls++ })

	require.True(t, d.Pause(id))
	assert.True(t, d.IsPaused(id))
	require.NoError(t, d.Dispatch(event.Event{}))
	assert.Equal(t, 0, calls)

	require.True(t, d.Resume(id))
	assert.False(t, d.IsPaused(id))
	require.NoError(t, d.Dispatch(event.Event{}))
	assert.Equal(t, 1, calls)

	assert.False(t, d.Pause(event.SubscriptionID(42)))
}

func TestDispatcher_Close(t *testing.T) {
	d := event.NewDispatcher()
	d.SubscribeAll(func(event.Event) {})
	d.Close()

	assert.Equal(t, 0, d.Len())
	assert.ErrorIs(t, d.Dispatch(event.Event{}), event.ErrClosed)
}
