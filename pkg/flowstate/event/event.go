package event

import (
	"maps"
	"slices"
	"strconv"
)

// Type identifies the kind of an Event.
type Type int

// Event types. VariableChange is currently the only one.
const (
	VariableChange Type = iota
)

var typeNames = map[Type]string{
	VariableChange: "EVENT_VARIABLE_CHANGE",
}

// String returns the event type name.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "EVENT_UNKNOWN(" + strconv.Itoa(int(t)) + ")"
}

// Event is what subscribers receive.
type Event struct {
	Type Type
	Data VariableChangeData
}

// VariableChangeData is the payload of a VariableChange event: everything
// that changed during one transaction.
type VariableChangeData struct {
	// TargetControlIDs lists the controls that read a changed value, in the
	// order they were first targeted.
	TargetControlIDs []string

	// NewValues maps each changed key to the last value written.
	NewValues map[string]any

	// OldValues maps each changed key to its value before the transaction.
	OldValues map[string]any

	// IsDelayed is true when the transaction was a delayed assignment firing.
	IsDelayed bool
}

// Targets reports whether id is among the target controls.
func (d VariableChangeData) Targets(id string) bool {
	return slices.Contains(d.TargetControlIDs, id)
}

// ChangedKeys returns the changed keys in sorted order.
func (d VariableChangeData) ChangedKeys() []string {
	return slices.Sorted(maps.Keys(d.NewValues))
}

// Clone returns a copy whose slices and maps are not shared with d.
func (d VariableChangeData) Clone() VariableChangeData {
	return VariableChangeData{
		TargetControlIDs: slices.Clone(d.TargetControlIDs),
		NewValues:        maps.Clone(d.NewValues),
		OldValues:        maps.Clone(d.OldValues),
		IsDelayed:        d.IsDelayed,
	}
}
