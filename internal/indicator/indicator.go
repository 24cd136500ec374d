// Package indicator provides lazily evaluated, memoized indicator series over
// a BarSeries.
//
// Every indicator is a function of a bar index. Values are computed on first
// access and cached per index; self-referential indicators (EMA, MMA,
// cumulative sums) are resolved iteratively so a request for the last of a
// very long series never recurses once per bar. Indicators are composable:
// an SMA of an RSI is just NewSMA(NewRSI(close, 14), 5).
package indicator

import (
	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
)

// Indicator is the capability shared by every indicator.
type Indicator[T any] interface {
	// Value returns the value at index. It panics with *series.IndexError
	// when index is outside the series bounds.
	Value(index int) T

	// UnstableBars is the number of leading bars whose values are not yet
	// meaningful. For a composite it is the maximum over its inputs.
	UnstableBars() int

	// Series returns the bar series the indicator is evaluated over.
	Series() *series.BarSeries
}

// Num is the common numeric indicator.
type Num = Indicator[num.Num]

// Func is an uncached indicator backed by a plain function. It suits cheap
// lookups such as price getters where memoization buys nothing.
type Func[T any] struct {
	s        *series.BarSeries
	unstable int
	fn       func(index int) T
}

// NewFunc wraps fn as an indicator over s.
func NewFunc[T any](s *series.BarSeries, unstable int, fn func(index int) T) *Func[T] {
	return &Func[T]{s: s, unstable: unstable, fn: fn}
}

func (f *Func[T]) Value(index int) T {
	if err := f.s.CheckIndex(index); err != nil {
		panic(err)
	}
	return f.fn(index)
}

func (f *Func[T]) UnstableBars() int          { return f.unstable }
func (f *Func[T]) Series() *series.BarSeries { return f.s }

// IsStable reports whether index is past ind's unstable period.
func IsStable[T any](ind Indicator[T], index int) bool {
	return index-ind.Series().BeginIndex() >= ind.UnstableBars()
}

// maxUnstable returns the largest unstable bar count among inds.
func maxUnstable(inds ...Num) int {
	n := 0
	for _, ind := range inds {
		if u := ind.UnstableBars(); u > n {
			n = u
		}
	}
	return n
}
