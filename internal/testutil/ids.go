package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs hands out compile IDs prefix-0001, prefix-0002, ...
//
// Unlike engine.FixedGenerator it never runs out, and it can be reset so a
// scenario rerun sees the same IDs.
//
// Thread-safety: all methods are safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int64
}

// NewSequentialIDs creates a generator. An empty prefix means "compile".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "compile"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Current returns how many IDs have been handed out.
func (g *SequentialIDs) Current() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Reset starts the sequence over at 1.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
