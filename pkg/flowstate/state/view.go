package state

import (
	"maps"
	"slices"
)

// View is a live read-only handle on a Store. Reads through a View always
// reflect the store's current contents.
type View struct {
	s *Store
}

// Get returns the value for key and whether it is present.
func (v View) Get(key string) (any, bool) {
	if v.s == nil {
		return nil, false
	}
	return v.s.Get(key)
}

// Value returns the value for key, or nil.
func (v View) Value(key string) any {
	val, _ := v.Get(key)
	return val
}

// Has reports whether key is present.
func (v View) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Keys returns the present keys in sorted order.
func (v View) Keys() []string {
	if v.s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(v.s.values))
}

// Len returns the number of present keys.
func (v View) Len() int {
	if v.s == nil {
		return 0
	}
	return len(v.s.values)
}

// Snapshot returns a copy of the current contents.
func (v View) Snapshot() map[string]any {
	if v.s == nil {
		return map[string]any{}
	}
	return v.s.Snapshot()
}
