package core

import (
	"fmt"
	"sort"
)

// CDF is a discrete distribution over items with non-negative weights.
// Insert items, then call Prepare before sampling. A CDF whose weights sum to zero is invalid.
type CDF[T any] struct {
	items    []T
	weights  []float64
	cumul    []float64
	prepared bool
	total    float64
}

// NewCDF creates an empty distribution
func NewCDF[T any]() *CDF[T] {
	return &CDF[T]{}
}

// Insert appends an item with the given weight; negative weights panic
func (c *CDF[T]) Insert(item T, weight float64) {
	if weight < 0 {
		panic(fmt.Sprintf("cdf weight must be non-negative, got %f", weight))
	}
	c.items = append(c.items, item)
	c.weights = append(c.weights, weight)
	c.prepared = false
}

// Prepare normalizes the weights into a cumulative table
func (c *CDF[T]) Prepare() {
	c.total = 0
	for _, w := range c.weights {
		c.total += w
	}

	c.cumul = make([]float64, len(c.weights))
	if c.total > 0 {
		var sum float64
		for i, w := range c.weights {
			sum += w
			c.cumul[i] = sum / c.total
		}
		c.cumul[len(c.cumul)-1] = 1
	}
	c.prepared = true
}

// Len returns the number of inserted items
func (c *CDF[T]) Len() int {
	return len(c.items)
}

// Empty reports whether no item was inserted
func (c *CDF[T]) Empty() bool {
	return len(c.items) == 0
}

// Valid reports whether the distribution is prepared and has positive total weight
func (c *CDF[T]) Valid() bool {
	return c.prepared && c.total > 0
}

// Item returns the item at index i
func (c *CDF[T]) Item(i int) T {
	return c.items[i]
}

// Prob returns the normalized probability of the item at index i
func (c *CDF[T]) Prob(i int) float64 {
	if !c.Valid() || i < 0 || i >= len(c.weights) {
		return 0
	}
	return c.weights[i] / c.total
}

// Sample selects an item for u in [0, 1) and returns its index and probability.
// Items with zero weight are never selected. ok is false for an invalid distribution.
func (c *CDF[T]) Sample(u float64) (index int, prob float64, ok bool) {
	if !c.Valid() {
		return -1, 0, false
	}

	i := sort.Search(len(c.cumul), func(i int) bool { return c.cumul[i] > u })
	if i >= len(c.cumul) {
		i = len(c.cumul) - 1
	}
	// Skip any trailing zero-weight entries that share the same cumulative value
	for c.weights[i] == 0 && i > 0 {
		i--
	}
	return i, c.Prob(i), true
}

// String returns a string representation for debugging
func (c *CDF[T]) String() string {
	if c.Empty() {
		return "CDF{no items}"
	}

	result := fmt.Sprintf("CDF{%d items:\n", len(c.items))
	for i := range c.items {
		result += fmt.Sprintf("  [%d] %.1f%%\n", i, c.Prob(i)*100)
	}
	result += "}"
	return result
}
