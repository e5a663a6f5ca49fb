// Package cmdcache memoizes rendered commands by statement shape, parameter
// nullness and dialect.
//
// Two statements with equal shape hashes and the same null signature
// normalize identically, so their rendered text can be shared. Statements
// whose normalization depended on parameter values (not just on nullness)
// must never be added.
package cmdcache

import (
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/roach88/relq/internal/nullsem"
	"github.com/roach88/relq/internal/querysql"
)

// DefaultMaxEntries is the capacity used when New is given a non-positive size.
const DefaultMaxEntries = 1024

// Key identifies a cached command. Mode names the null-semantics handling
// the command was rendered with, so engines in different modes can share a
// cache.
type Key struct {
	ShapeHash     string
	NullSignature string
	Dialect       string
	Mode          string
}

// Entry is a cached compilation result.
type Entry struct {
	Command *querysql.Command
	// CompileID is the ID of the compilation that produced the entry.
	CompileID string
}

// Stats counts cache traffic since creation.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// Cache is a bounded LRU cache of rendered commands. It is safe for
// concurrent use.
type Cache struct {
	mu    sync.Mutex
	lru   *lru.Cache
	stats Stats
}

// New creates a cache holding at most maxEntries commands.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &Cache{lru: lru.New(maxEntries)}
	c.lru.OnEvicted = func(lru.Key, interface{}) { c.stats.Evictions++ }
	return c
}

// Get returns the entry stored under key and marks it recently used.
func (c *Cache) Get(key Key) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(key)
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return v.(*Entry), true
}

// Add stores e under key, evicting the least recently used entry when full.
func (c *Cache) Add(key Key, e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, e)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Clear drops every entry. Stats are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Clear fires OnEvicted for every entry; those are not capacity evictions.
	evictions := c.stats.Evictions
	c.lru.Clear()
	c.stats.Evictions = evictions
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// NullSignature renders the nullness of every parameter as name=N or
// name=V, sorted by name and joined with "|".
func NullSignature(params nullsem.Parameters) string {
	var sb strings.Builder
	for i, name := range params.Names() {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(name)
		if params.IsNull(name) {
			sb.WriteString("=N")
		} else {
			sb.WriteString("=V")
		}
	}
	return sb.String()
}
