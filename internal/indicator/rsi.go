package indicator

import (
	"trading-analytics/internal/num"
)

// NewRSI is the Relative Strength Index using Wilder's smoothing of gains and
// losses. A window with no losses reads 100.
func NewRSI(ind Num, period int) *Cached[num.Num] {
	s := ind.Series()
	f := s.Factory()
	diff := NewDifference(ind)
	gain := unary(diff, func(x num.Num) num.Num { return x.Max(f.Zero()) })
	loss := unary(diff, func(x num.Num) num.Num { return x.Min(f.Zero()).Neg() })
	avgGain := NewMMA(gain, period)
	avgLoss := NewMMA(loss, period)
	hundred := f.NumOfInt(100)

	return NewCached(s, max(period, ind.UnstableBars()), func(i int) num.Num {
		g, l := avgGain.Value(i), avgLoss.Value(i)
		if num.IsNaN(g) || num.IsNaN(l) {
			return num.NaN
		}
		if l.IsZero() {
			return hundred
		}
		rs := g.DividedBy(l)
		return hundred.Minus(hundred.DividedBy(f.One().Plus(rs)))
	})
}
