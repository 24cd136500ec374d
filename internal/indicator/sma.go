package indicator

import (
	"trading-analytics/internal/num"
)

// NewSMA is the simple moving average of ind over period bars. Before a full
// window is available the average covers the bars seen so far.
func NewSMA(ind Num, period int) *Cached[num.Num] {
	s := ind.Series()
	f := s.Factory()
	return NewCached(s, max(period, ind.UnstableBars()), func(i int) num.Num {
		start := max(s.BeginIndex(), i-period+1)
		sum := f.Zero()
		for j := start; j <= i; j++ {
			sum = sum.Plus(ind.Value(j))
		}
		return sum.DividedBy(f.NumOfInt(i - start + 1))
	})
}
