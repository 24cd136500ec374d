package indicator

import (
	"sync"
	"sync/atomic"

	"trading-analytics/internal/series"
)

// Cached memoizes a calculation per index. The calculation runs at most once
// per index for sequential callers; concurrent callers racing on the same
// uncached index may both compute it, but the first stored value wins and is
// what every caller observes afterwards.
//
// The memo table is guarded by a mutex. The calculation itself runs outside
// the lock so it may read other indices of the same indicator.
type Cached[T any] struct {
	s        *series.BarSeries
	unstable int
	calc     func(index int) T

	mu     sync.Mutex
	values []T
	filled []bool
	prefix int // every index below prefix is filled

	fills atomic.Int64
}

// NewCached wraps calc with a per-index memo table.
func NewCached[T any](s *series.BarSeries, unstable int, calc func(index int) T) *Cached[T] {
	return &Cached[T]{s: s, unstable: unstable, calc: calc}
}

func (c *Cached[T]) UnstableBars() int          { return c.unstable }
func (c *Cached[T]) Series() *series.BarSeries { return c.s }

// Fills is the number of times the underlying calculation has run.
func (c *Cached[T]) Fills() int64 { return c.fills.Load() }

func (c *Cached[T]) Value(index int) T {
	if err := c.s.CheckIndex(index); err != nil {
		panic(err)
	}
	if v, ok := c.lookup(index); ok {
		return v
	}
	v := c.calc(index)
	c.fills.Add(1)
	return c.store(index, v)
}

func (c *Cached[T]) lookup(index int) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < len(c.filled) && c.filled[index] {
		return c.values[index], true
	}
	var zero T
	return zero, false
}

// store records v unless another caller got there first, and returns the
// value that ended up in the table.
func (c *Cached[T]) store(index int, v T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index >= len(c.filled) {
		n := c.s.BarCount()
		if n <= index {
			n = index + 1
		}
		values := make([]T, n)
		filled := make([]bool, n)
		copy(values, c.values)
		copy(filled, c.filled)
		c.values, c.filled = values, filled
	}
	if c.filled[index] {
		return c.values[index]
	}
	c.values[index] = v
	c.filled[index] = true
	for c.prefix < len(c.filled) && c.filled[c.prefix] {
		c.prefix++
	}
	return v
}

// firstMissing is the lowest index not yet cached.
func (c *Cached[T]) firstMissing() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefix
}

// Recursive is a cached indicator whose calculation reads its own previous
// values. A request for index i first fills every missing index below i in
// increasing order, so each calculation finds value(i-1) already in the memo
// table and the call depth stays constant regardless of series length.
type Recursive[T any] struct {
	*Cached[T]
}

// NewRecursive builds a self-referential indicator. calc may call Value on
// the returned indicator for indices below the one being computed.
func NewRecursive[T any](s *series.BarSeries, unstable int, calc func(index int) T) *Recursive[T] {
	return &Recursive[T]{Cached: NewCached(s, unstable, calc)}
}

func (r *Recursive[T]) Value(index int) T {
	if err := r.s.CheckIndex(index); err != nil {
		panic(err)
	}
	if v, ok := r.lookup(index); ok {
		return v
	}
	for i := max(r.firstMissing(), r.s.BeginIndex()); i < index; i++ {
		r.Cached.Value(i)
	}
	return r.Cached.Value(index)
}
