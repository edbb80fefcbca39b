package flowstate

import (
	"fmt"
	"maps"
	"slices"

	"github.com/randalmurphal/flowstate/pkg/flowstate/ast"
	"github.com/randalmurphal/flowstate/pkg/flowstate/expr"
	"github.com/randalmurphal/flowstate/pkg/flowstate/observability"
)

// StorageSlot is the runtime slot naming the state key a control writes.
const StorageSlot = "storage"

// ControlSpec describes a control: an ID and named runtime slots. The
// storage slot holds a state key; every other slot holds an expression.
type ControlSpec struct {
	ID      string
	Runtime map[string]string
}

// Control is a registered UI element bound to the manager's state.
type Control struct {
	m       *Manager
	id      string
	runtime map[string]string
	nodes   map[string]ast.Node
	reads   []string
}

// AddControl registers a control. Each non-empty expression slot is parsed
// and the control is linked to every key it reads, so events triggered by
// those keys target it. A storage slot links the control to its storage
// key as well.
func (m *Manager) AddControl(spec ControlSpec) (*Control, error) {
	if m.disposed {
		return nil, ErrDisposed
	}
	if spec.ID == "" {
		return nil, ErrEmptyID
	}

	c := &Control{
		m:       m,
		id:      spec.ID,
		runtime: maps.Clone(spec.Runtime),
		nodes:   make(map[string]ast.Node, len(spec.Runtime)),
	}
	if c.runtime == nil {
		c.runtime = map[string]string{}
	}

	seen := make(map[string]bool)
	addRead := func(key string) {
		if !seen[key] {
			seen[key] = true
			c.reads = append(c.reads, key)
		}
	}

	for _, slot := range slices.Sorted(maps.Keys(c.runtime)) {
		text := c.runtime[slot]
		if text == "" {
			continue
		}
		if slot == StorageSlot {
			addRead(text)
			continue
		}
		node, err := m.cache.Parse(text)
		if err != nil {
			return nil, &ExpressionError{Expression: text, Op: "parse", Target: spec.ID, Err: err}
		}
		c.nodes[slot] = node
		for _, v := range expr.FreeVariables(node) {
			addRead(v)
		}
	}

	for _, key := range c.reads {
		m.readLinks[key] = append(m.readLinks[key], c)
	}
	m.controls.Register(c.id, c)
	observability.LogControlRegistered(m.logger, c.id, c.reads)
	return c, nil
}

// ID returns the control's ID.
func (c *Control) ID() string {
	return c.id
}

// Runtime returns a copy of the control's runtime slots.
func (c *Control) Runtime() map[string]string {
	return maps.Clone(c.runtime)
}

// Storage returns the state key the control writes, if it has one.
func (c *Control) Storage() (string, bool) {
	key := c.runtime[StorageSlot]
	return key, key != ""
}

// Reads returns the state keys the control depends on.
func (c *Control) Reads() []string {
	return slices.Clone(c.reads)
}

// Value returns the current value of the control's storage key, or nil
// when it has none.
func (c *Control) Value() any {
	key, ok := c.Storage()
	if !ok {
		return nil
	}
	v, _ := c.m.store.Get(key)
	return v
}

// SetValue writes value to the control's storage key in one transaction.
func (c *Control) SetValue(value any) error {
	key, ok := c.Storage()
	if !ok {
		return ErrNoStorage
	}
	return c.m.transact(false, func() error {
		return c.m.store.Set(key, value)
	})
}

// Evaluate evaluates a runtime slot against the current state. An empty
// slot name or StorageSlot returns the storage value. A slot whose
// expression is empty evaluates to nil.
func (c *Control) Evaluate(slot string) (any, error) {
	if slot == "" || slot == StorageSlot {
		return c.Value(), nil
	}
	text, ok := c.runtime[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %q on control %s", ErrUnknownSlot, slot, c.id)
	}
	node, ok := c.nodes[slot]
	if !ok {
		return nil, nil
	}
	v, err := c.m.evaluator.Evaluate(node, c.m.context())
	if err != nil {
		return nil, &ExpressionError{Expression: text, Op: "evaluate", Target: c.id, Err: err}
	}
	return v, nil
}
