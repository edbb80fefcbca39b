package registry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	r := New[string, int]()
	assert.NotNil(t, r)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Keys())
}

func TestRegisterAndGet(t *testing.T) {
	r := New[string, int]()

	r.Register("one", 1)
	r.Register("two", 2)

	v, ok := r.Get("one")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = r.Get("three")
	assert.False(t, ok)
	assert.Equal(t, 0, v)
}

func TestInsertionOrder(t *testing.T) {
	r := New[string, int]()
	for i, k := range []string{"z", "a", "m", "b"} {
		r.Register(k, i)
	}

	assert.Equal(t, []string{"z", "a", "m", "b"}, r.Keys())
	assert.Equal(t, []int{0, 1, 2, 3}, r.Values())
}

func TestOverwriteKeepsPosition(t *testing.T) {
	r := New[string, string]()
	r.Register("first", "old")
	r.Register("second", "x")
	r.Register("first", "new")

	assert.Equal(t, []string{"first", "second"}, r.Keys())
	assert.Equal(t, "new", r.MustGet("first"))
}

func TestMustGetPanics(t *testing.T) {
	r := New[string, int]()
	assert.Panics(t, func() { r.MustGet("missing") })
}

func TestDelete(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)
	r.Register("b", 2)
	r.Register("c", 3)

	assert.True(t, r.Delete("b"))
	assert.False(t, r.Delete("b"))
	assert.False(t, r.Has("b"))
	assert.Equal(t, []string{"a", "c"}, r.Keys())

	r.Register("b", 4)
	assert.Equal(t, []string{"a", "c", "b"}, r.Keys())
}

func TestRange(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)
	r.Register("b", 2)
	r.Register("c", 3)

	var visited []string
	r.Range(func(k string, _ int) bool {
		visited = append(visited, k)
		return k != "b"
	})
	assert.Equal(t, []string{"a", "b"}, visited)
}

func TestRangeMutationDuringIteration(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)
	r.Register("b", 2)

	count := 0
	r.Range(func(k string, _ int) bool {
		count++
		r.Delete(k)
		r.Register(k+"x", 0)
		return true
	})

	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"ax", "bx"}, r.Keys())
}

func TestGetOrCreate(t *testing.T) {
	r := New[string, *Registry[string, int]]()

	inner := r.GetOrCreate("k", New[string, int])
	inner.Register("x", 1)

	again := r.GetOrCreate("k", New[string, int])
	assert.Same(t, inner, again)
	assert.Equal(t, 1, again.MustGet("x"))
}

func TestGetOrCreateConcurrent(t *testing.T) {
	r := New[string, int]()
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.GetOrCreate("key", func() int {
				calls.Add(1)
				return 42
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"key"}, r.Keys())
}

func TestClear(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)
	r.Clear()

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Keys())
	r.Register("b", 2)
	assert.Equal(t, []string{"b"}, r.Keys())
}
