// Package state provides the reactive key/value store behind a flowstate
// manager.
//
// A Store holds one flat level of keys. Every write is compared with the
// previous value using `===` semantics and only real changes are
// reported:
//
//	s := state.New(map[string]any{"a": 1})
//	s.OnChange("a", func(c state.Change) error {
//	    fmt.Println(c.Key, c.OldValue, "->", c.NewValue)
//	    return nil
//	})
//	s.SetState(map[string]any{"a": 2}) // prints: a 1 -> 2
//	s.SetState(map[string]any{"a": 2}) // prints nothing
//
// Each changed key is notified on its own, synchronously, before the next
// key is written. Subscribers for the key run first, then subscribers
// registered with OnAnyChange. Grouping several changes into one
// notification is left to the caller.
package state
