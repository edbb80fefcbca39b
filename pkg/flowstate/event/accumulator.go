package event

// Accumulator collects the changes of one transaction into a single
// VariableChangeData.
//
// The zero value is not usable; call NewAccumulator.
type Accumulator struct {
	targets []string
	seen    map[string]bool
	newVals map[string]any
	oldVals map[string]any
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	a := &Accumulator{}
	a.Reset()
	return a
}

// Reset empties the accumulator for the next transaction.
func (a *Accumulator) Reset() {
	a.targets = nil
	a.seen = make(map[string]bool)
	a.newVals = make(map[string]any)
	a.oldVals = make(map[string]any)
}

// Begin records the value key held before its first change in the
// transaction. Later calls for the same key are ignored.
func (a *Accumulator) Begin(key string, old any) {
	if _, ok := a.oldVals[key]; !ok {
		a.oldVals[key] = old
	}
}

// Record stores the latest value of key.
func (a *Accumulator) Record(key string, value any) {
	a.Begin(key, nil)
	a.newVals[key] = value
}

// Target adds control IDs, skipping ones already targeted.
func (a *Accumulator) Target(ids ...string) {
	for _, id := range ids {
		if a.seen[id] {
			continue
		}
		a.seen[id] = true
		a.targets = append(a.targets, id)
	}
}

// Changed reports whether any key was recorded.
func (a *Accumulator) Changed() bool {
	return len(a.newVals) > 0
}

// Len returns the number of changed keys.
func (a *Accumulator) Len() int {
	return len(a.newVals)
}

// Event builds the VariableChange event for what has been accumulated.
// The returned event does not share memory with the accumulator.
func (a *Accumulator) Event(delayed bool) Event {
	data := VariableChangeData{
		TargetControlIDs: a.targets,
		NewValues:        a.newVals,
		OldValues:        a.oldVals,
		IsDelayed:        delayed,
	}.Clone()
	if data.TargetControlIDs == nil {
		data.TargetControlIDs = []string{}
	}
	return Event{Type: VariableChange, Data: data}
}
