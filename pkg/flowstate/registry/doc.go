// Package registry provides a generic thread-safe registry of values
// indexed by key, iterated in insertion order.
//
// flowstate uses it wherever iteration order is observable: controls are
// targeted in registration order, and assignments listening to the same
// variable run in the order they were first registered. Re-registering a
// key replaces its value without moving it.
//
//	r := registry.New[string, int]()
//	r.Register("b", 1)
//	r.Register("a", 2)
//	r.Register("b", 3)
//	r.Keys()   // [b a]
//	r.Values() // [3 2]
//
// Use GetOrCreate for lazy initialization of nested registries:
//
//	byVar := registry.New[string, *registry.Registry[string, Assignment]]()
//	inner := byVar.GetOrCreate("button1", registry.New[string, Assignment])
//
// Range iterates over a snapshot, so it is safe to Register or Delete from
// inside the callback.
package registry
