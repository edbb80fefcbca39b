package state

import (
	"errors"
	"maps"
	"slices"

	"github.com/randalmurphal/flowstate/pkg/flowstate/expr"
)

// ErrDisposed is returned by operations on a disposed Store.
var ErrDisposed = errors.New("store disposed")

// Change describes one key whose value changed.
type Change struct {
	Key      string
	OldValue any
	NewValue any
}

// Subscriber is notified of a change. Returning an error stops the
// mutation that caused the change; keys already applied stay applied.
type Subscriber func(Change) error

// SubscriptionID identifies a subscription for Unsubscribe.
type SubscriptionID uint64

// Entry is one key/value pair for Apply.
type Entry struct {
	Key   string
	Value any
}

type subscription struct {
	id       SubscriptionID
	key      string
	wildcard bool
	fn       Subscriber
	active   bool
}

// Store is a flat key/value mapping that notifies subscribers when a key
// changes. Values are compared with `===` semantics (expr.StrictEqual);
// writing an equal value is a no-op and notifies nobody.
//
// Store is not safe for concurrent use. Subscribers may call back into the
// Store; nested mutations are applied and notified before the outer call
// continues with its next key.
type Store struct {
	values   map[string]any
	byKey    map[string][]*subscription
	wildcard []*subscription
	subs     map[SubscriptionID]*subscription
	nextID   SubscriptionID
	disposed bool
}

// New creates a Store holding a copy of initial.
func New(initial map[string]any) *Store {
	values := make(map[string]any, len(initial))
	maps.Copy(values, initial)
	return &Store{
		values: values,
		byKey:  make(map[string][]*subscription),
		subs:   make(map[SubscriptionID]*subscription),
	}
}

// SetState applies each key of patch. Go maps are unordered, so keys are
// applied in sorted order; use Apply when the order matters.
func (s *Store) SetState(patch map[string]any) error {
	if s.disposed {
		return ErrDisposed
	}
	for _, key := range slices.Sorted(maps.Keys(patch)) {
		if err := s.set(key, patch[key]); err != nil {
			return err
		}
	}
	return nil
}

// Apply applies entries in the given order.
func (s *Store) Apply(entries ...Entry) error {
	if s.disposed {
		return ErrDisposed
	}
	for _, e := range entries {
		if err := s.set(e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// Set applies a single key. It is Apply with one entry.
func (s *Store) Set(key string, value any) error {
	return s.Apply(Entry{Key: key, Value: value})
}

func (s *Store) set(key string, value any) error {
	old := s.values[key]
	if expr.StrictEqual(old, value) {
		// A missing key and an explicit nil are both undefined, but the
		// key still becomes present.
		if _, ok := s.values[key]; !ok && value == nil {
			s.values[key] = nil
		}
		return nil
	}
	s.values[key] = value
	return s.notify(Change{Key: key, OldValue: old, NewValue: value})
}

// notify runs per-key subscribers, then wildcard subscribers, each in
// subscription order. Subscriptions added during notification are not
// called for this change; ones removed during notification are skipped.
func (s *Store) notify(c Change) error {
	keyed := slices.Clone(s.byKey[c.Key])
	wild := slices.Clone(s.wildcard)
	for _, sub := range append(keyed, wild...) {
		if !sub.active {
			continue
		}
		if err := sub.fn(c); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the value stored under key and whether the key is present.
func (s *Store) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// State returns a live read-only view of the store.
func (s *Store) State() View {
	return View{s: s}
}

// Snapshot returns a copy of the current values.
func (s *Store) Snapshot() map[string]any {
	return maps.Clone(s.values)
}

// OnChange subscribes fn to changes of key.
func (s *Store) OnChange(key string, fn Subscriber) SubscriptionID {
	sub := s.add(&subscription{key: key, fn: fn})
	s.byKey[key] = append(s.byKey[key], sub)
	return sub.id
}

// OnAnyChange subscribes fn to changes of every key.
func (s *Store) OnAnyChange(fn Subscriber) SubscriptionID {
	sub := s.add(&subscription{wildcard: true, fn: fn})
	s.wildcard = append(s.wildcard, sub)
	return sub.id
}

func (s *Store) add(sub *subscription) *subscription {
	s.nextID++
	sub.id = s.nextID
	sub.active = true
	s.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes a subscription. It reports whether id was active.
func (s *Store) Unsubscribe(id SubscriptionID) bool {
	sub, ok := s.subs[id]
	if !ok {
		return false
	}
	sub.active = false
	delete(s.subs, id)

	remove := func(list []*subscription) []*subscription {
		return slices.DeleteFunc(list, func(x *subscription) bool { return x == sub })
	}
	if sub.wildcard {
		s.wildcard = remove(s.wildcard)
		return true
	}
	s.byKey[sub.key] = remove(s.byKey[sub.key])
	if len(s.byKey[sub.key]) == 0 {
		delete(s.byKey, sub.key)
	}
	return true
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	return len(s.subs)
}

// Dispose removes every subscription. Further mutations return
// ErrDisposed; reads keep working.
func (s *Store) Dispose() {
	for _, sub := range s.subs {
		sub.active = false
	}
	clear(s.subs)
	clear(s.byKey)
	s.wildcard = nil
	s.disposed = true
}
