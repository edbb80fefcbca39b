package flowstate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowstate/pkg/flowstate/event"
)

// recorder collects every event a manager emits.
type recorder struct {
	events []event.Event
}

func record(m *Manager) *recorder {
	r := &recorder{}
	m.OnEvent(func(e event.Event) {
		r.events = append(r.events, e)
	})
	return r
}

func (r *recorder) last(t *testing.T) event.Event {
	t.Helper()
	require.NotEmpty(t, r.events, "no event emitted")
	return r.events[len(r.events)-1]
}

func newManager(t *testing.T, initial map[string]any, opts ...Option) *Manager {
	t.Helper()
	m, err := New(initial, opts...)
	require.NoError(t, err)
	t.Cleanup(m.Dispose)
	return m
}

func addControl(t *testing.T, m *Manager, id string, runtime map[string]string) *Control {
	t.Helper()
	c, err := m.AddControl(ControlSpec{ID: id, Runtime: runtime})
	require.NoError(t, err)
	return c
}

func addAssignment(t *testing.T, m *Manager, p AssignmentParams) {
	t.Helper()
	require.NoError(t, m.AddRuntimeAssignment(p))
}
