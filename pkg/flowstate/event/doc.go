// Package event defines the change notifications a flowstate manager emits
// and the synchronous dispatcher that delivers them.
//
// # Events
//
// Every transaction that changes at least one key produces exactly one
// Event of type VariableChange. Its Data lists the changed keys with their
// old and new values and the controls that read any of them:
//
//	d := event.NewDispatcher()
//	id := d.SubscribeAll(func(evt event.Event) {
//	    fmt.Println(evt.Type, evt.Data.TargetControlIDs, evt.Data.NewValues)
//	})
//	defer d.Unsubscribe(id)
//
// # Accumulation
//
// An Accumulator gathers the changes of one transaction. Old values are
// captured at the first change of a key, new values at the last, and
// target IDs keep the order in which they were first added.
//
// # Delivery
//
// Dispatch calls handlers synchronously in subscription order on the
// caller's goroutine. A paused subscription misses events until resumed.
package event
