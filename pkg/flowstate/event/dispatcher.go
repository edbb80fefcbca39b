package event

import (
	"errors"
	"slices"
)

// ErrClosed is returned when dispatching on a closed Dispatcher.
var ErrClosed = errors.New("dispatcher is closed")

// Handler receives events.
type Handler func(Event)

// SubscriptionID identifies a subscription.
type SubscriptionID uint64

type subscription struct {
	id      SubscriptionID
	types   []Type // empty = all types
	handler Handler
	paused  bool
	active  bool
}

func (s *subscription) matches(t Type) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

// Dispatcher delivers events synchronously to its subscribers in
// subscription order. Dispatch returns after every handler has run.
//
// Dispatcher is not safe for concurrent use; it runs on the owning
// manager's thread of control.
type Dispatcher struct {
	subs   []*subscription
	nextID SubscriptionID
	closed bool
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers handler for the given event types.
func (d *Dispatcher) Subscribe(types []Type, handler Handler) SubscriptionID {
	d.nextID++
	d.subs = append(d.subs, &subscription{
		id:      d.nextID,
		types:   slices.Clone(types),
		handler: handler,
		active:  true,
	})
	return d.nextID
}

// SubscribeAll registers handler for every event type.
func (d *Dispatcher) SubscribeAll(handler Handler) SubscriptionID {
	return d.Subscribe(nil, handler)
}

// Unsubscribe removes a subscription. It reports whether id was known.
func (d *Dispatcher) Unsubscribe(id SubscriptionID) bool {
	for i, s := range d.subs {
		if s.id == id {
			s.active = false
			d.subs = slices.Delete(d.subs, i, i+1)
			return true
		}
	}
	return false
}

// Pause stops delivery to a subscription until Resume. Events dispatched
// while paused are dropped for that subscription.
func (d *Dispatcher) Pause(id SubscriptionID) bool {
	return d.setPaused(id, true)
}

// Resume continues delivery after Pause.
func (d *Dispatcher) Resume(id SubscriptionID) bool {
	return d.setPaused(id, false)
}

// IsPaused reports whether a subscription is paused.
func (d *Dispatcher) IsPaused(id SubscriptionID) bool {
	if s := d.find(id); s != nil {
		return s.paused
	}
	return false
}

func (d *Dispatcher) setPaused(id SubscriptionID, paused bool) bool {
	s := d.find(id)
	if s == nil {
		return false
	}
	s.paused = paused
	return true
}

func (d *Dispatcher) find(id SubscriptionID) *subscription {
	for _, s := range d.subs {
		if s.id == id {
			return s
		}
	}
	return nil
}

// Dispatch delivers evt to every matching, unpaused subscription.
// Handlers may subscribe or unsubscribe while being called; new
// subscriptions see the next event, removed ones are skipped.
func (d *Dispatcher) Dispatch(evt Event) error {
	if d.closed {
		return ErrClosed
	}
	for _, s := range slices.Clone(d.subs) {
		if !s.active || s.paused || !s.matches(evt.Type) {
			continue
		}
		s.handler(evt)
	}
	return nil
}

// Len returns the number of subscriptions.
func (d *Dispatcher) Len() int {
	return len(d.subs)
}

// Close removes every subscription. Later Dispatch calls return ErrClosed.
func (d *Dispatcher) Close() {
	for _, s := range d.subs {
		s.active = false
	}
	d.subs = nil
	d.closed = true
}
