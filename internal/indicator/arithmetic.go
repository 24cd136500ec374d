package indicator

import (
	"trading-analytics/internal/num"
)

// binary combines two indicators index-wise. Any NaN input yields NaN
// without calling op.
func binary(a, b Num, op func(x, y num.Num) num.Num) *Cached[num.Num] {
	return NewCached(a.Series(), maxUnstable(a, b), func(i int) num.Num {
		x, y := a.Value(i), b.Value(i)
		if num.IsNaN(x) || num.IsNaN(y) {
			return num.NaN
		}
		return op(x, y)
	})
}

func unary(a Num, op func(x num.Num) num.Num) *Cached[num.Num] {
	return NewCached(a.Series(), a.UnstableBars(), func(i int) num.Num {
		x := a.Value(i)
		if num.IsNaN(x) {
			return num.NaN
		}
		return op(x)
	})
}

func Plus(a, b Num) *Cached[num.Num]  { return binary(a, b, num.Num.Plus) }
func Minus(a, b Num) *Cached[num.Num] { return binary(a, b, num.Num.Minus) }
func Times(a, b Num) *Cached[num.Num] { return binary(a, b, num.Num.Times) }

// Divide yields NaN where b is zero.
func Divide(a, b Num) *Cached[num.Num] { return binary(a, b, num.Num.DividedBy) }

func Min(a, b Num) *Cached[num.Num] { return binary(a, b, num.Num.Min) }
func Max(a, b Num) *Cached[num.Num] { return binary(a, b, num.Num.Max) }

func Abs(a Num) *Cached[num.Num]  { return unary(a, num.Num.Abs) }
func Sqrt(a Num) *Cached[num.Num] { return unary(a, num.Num.Sqrt) }
func Log(a Num) *Cached[num.Num]  { return unary(a, num.Num.Log) }

// Scale multiplies every value of a by k.
func Scale(a Num, k float64) *Cached[num.Num] {
	factor := a.Series().Factory().NumOf(k)
	return unary(a, func(x num.Num) num.Num { return x.Times(factor) })
}

// NewDifference is a(i) - a(i-1), zero at the first bar.
func NewDifference(a Num) *Cached[num.Num] {
	s := a.Series()
	return NewCached(s, a.UnstableBars()+1, func(i int) num.Num {
		if i == s.BeginIndex() {
			return s.Factory().Zero()
		}
		cur, prev := a.Value(i), a.Value(i-1)
		if num.IsNaN(cur) || num.IsNaN(prev) {
			return num.NaN
		}
		return cur.Minus(prev)
	})
}

// NewCumulativeSum is the running total of a from the first bar.
func NewCumulativeSum(a Num) *Recursive[num.Num] {
	s := a.Series()
	var r *Recursive[num.Num]
	r = NewRecursive(s, a.UnstableBars(), func(i int) num.Num {
		if i == s.BeginIndex() {
			return a.Value(i)
		}
		return r.Value(i - 1).Plus(a.Value(i))
	})
	return r
}
