package parser

import (
	"sync"

	"github.com/randalmurphal/flowstate/pkg/flowstate/ast"
)

// Cache memoizes parsed trees by source text. Trees are immutable, so one
// parse can be shared by every caller. Failed parses are not cached.
//
// Cache is safe for concurrent use.
type Cache struct {
	mu    sync.RWMutex
	trees map[string]ast.Node
	limit int
}

// NewCache creates a cache holding at most limit trees.
// A limit <= 0 means unbounded.
func NewCache(limit int) *Cache {
	return &Cache{
		trees: make(map[string]ast.Node),
		limit: limit,
	}
}

// Parse returns the cached tree for text, parsing it on first use.
func (c *Cache) Parse(text string) (ast.Node, error) {
	c.mu.RLock()
	n, ok := c.trees[text]
	c.mu.RUnlock()
	if ok {
		return n, nil
	}

	n, err := Parse(text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limit > 0 && len(c.trees) >= c.limit {
		// Expressions are registered up front and rarely churn, so dropping
		// everything is simpler than tracking recency.
		clear(c.trees)
	}
	c.trees[text] = n
	return n, nil
}

// Len returns the number of cached trees.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.trees)
}
