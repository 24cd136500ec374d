package indicator

import (
	"trading-analytics/internal/num"
)

// smoothed builds an exponential smoothing of ind with the given multiplier.
// The first period values are the running SMA seed; after that
// value = prev + (price - prev) * multiplier.
func smoothed(ind Num, period int, multiplier num.Num) *Recursive[num.Num] {
	s := ind.Series()
	seed := NewSMA(ind, period)
	var r *Recursive[num.Num]
	r = NewRecursive(s, max(period, ind.UnstableBars()), func(i int) num.Num {
		if i-s.BeginIndex() < period {
			return seed.Value(i)
		}
		prev := r.Value(i - 1)
		return ind.Value(i).Minus(prev).Times(multiplier).Plus(prev)
	})
	return r
}

// NewEMA is the exponential moving average with multiplier 2/(period+1).
func NewEMA(ind Num, period int) *Recursive[num.Num] {
	f := ind.Series().Factory()
	return smoothed(ind, period, f.NumOf(2).DividedBy(f.NumOfInt(period+1)))
}

// NewMMA is Wilder's modified moving average (SMMA) with multiplier 1/period.
func NewMMA(ind Num, period int) *Recursive[num.Num] {
	f := ind.Series().Factory()
	return smoothed(ind, period, f.One().DividedBy(f.NumOfInt(period)))
}
