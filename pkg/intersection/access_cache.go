package intersection

import (
	"sync"
	"sync/atomic"

	"github.com/df07/go-light-kernel/pkg/scene"
)

// AccessCache is a bounded set-associative cache in front of a tree repository.
// A uid maps to one line; each line holds up to ways entries in most recently used order
// and is guarded by its own lock.
type AccessCache[T any] struct {
	lines  []cacheLine[T]
	ways   int
	hits   atomic.Uint64
	misses atomic.Uint64
}

type cacheLine[T any] struct {
	mu      sync.Mutex
	entries []cacheEntry[T]
}

type cacheEntry[T any] struct {
	key   scene.UniqueID
	value T
}

// NewAccessCache creates a cache with the given number of lines and ways per line
func NewAccessCache[T any](lines, ways int) *AccessCache[T] {
	lines = max(1, lines)
	ways = max(1, ways)
	c := &AccessCache[T]{lines: make([]cacheLine[T], lines), ways: ways}
	for i := range c.lines {
		c.lines[i].entries = make([]cacheEntry[T], 0, ways)
	}
	return c
}

func (c *AccessCache[T]) line(key scene.UniqueID) *cacheLine[T] {
	// Fibonacci hashing spreads sequential uids across lines
	h := uint64(key) * 0x9E3779B97F4A7C15
	return &c.lines[(h>>32)%uint64(len(c.lines))]
}

// Get returns the value cached for key, loading it with load on a miss.
// Load errors are returned without caching the value.
func (c *AccessCache[T]) Get(key scene.UniqueID, load func(scene.UniqueID) (T, error)) (T, error) {
	line := c.line(key)

	line.mu.Lock()
	for i, e := range line.entries {
		if e.key == key {
			// Move to front
			copy(line.entries[1:i+1], line.entries[:i])
			line.entries[0] = e
			line.mu.Unlock()
			c.hits.Add(1)
			return e.value, nil
		}
	}
	line.mu.Unlock()

	c.misses.Add(1)
	value, err := load(key)
	if err != nil {
		return value, err
	}

	line.mu.Lock()
	defer line.mu.Unlock()
	for _, e := range line.entries {
		if e.key == key {
			return e.value, nil
		}
	}
	if len(line.entries) < c.ways {
		line.entries = append(line.entries, cacheEntry[T]{})
	}
	// Shift right, evicting the least recently used entry when the line is full
	copy(line.entries[1:], line.entries[:len(line.entries)-1])
	line.entries[0] = cacheEntry[T]{key: key, value: value}
	return value, nil
}

// Clear evicts every entry; it must not run concurrently with Get
func (c *AccessCache[T]) Clear() {
	for i := range c.lines {
		line := &c.lines[i]
		line.mu.Lock()
		clear(line.entries)
		line.entries = line.entries[:0]
		line.mu.Unlock()
	}
}

// Len returns the number of resident entries
func (c *AccessCache[T]) Len() int {
	n := 0
	for i := range c.lines {
		line := &c.lines[i]
		line.mu.Lock()
		n += len(line.entries)
		line.mu.Unlock()
	}
	return n
}

// Capacity returns lines × ways
func (c *AccessCache[T]) Capacity() int {
	return len(c.lines) * c.ways
}

// Hits returns the number of lookups served from the cache
func (c *AccessCache[T]) Hits() uint64 { return c.hits.Load() }

// Misses returns the number of lookups that went to the loader
func (c *AccessCache[T]) Misses() uint64 { return c.misses.Load() }
