package analysis

import (
	"trading-analytics/internal/num"
)

// MaxDrawdown is the largest (peak - value) / peak over values[from..to],
// tracking the running peak in one forward pass. It is zero for fewer than
// two values.
func MaxDrawdown(values []num.Num, from, to int) num.Num {
	dd, _ := drawdown(values, from, to)
	return dd
}

// MaxDrawdownLength is the longest run of bars spent below a previous peak:
// the distance from the index where the running peak was last set.
func MaxDrawdownLength(values []num.Num, from, to int) int {
	_, length := drawdown(values, from, to)
	return length
}

func drawdown(values []num.Num, from, to int) (num.Num, int) {
	from = max(from, 0)
	to = min(to, len(values)-1)
	if to < from {
		if len(values) > 0 {
			return values[0].Factory().Zero(), 0
		}
		return num.DoubleFactory().Zero(), 0
	}
	f := values[from].Factory()
	maxDD := f.Zero()
	maxLen := 0
	peak := values[from]
	peakIndex := from
	for i := from; i <= to; i++ {
		v := values[i]
		if num.IsNaN(v) {
			continue
		}
		if num.IsNaN(peak) || v.IsGreaterThan(peak) {
			peak, peakIndex = v, i
			continue
		}
		if !peak.IsPositive() {
			continue
		}
		dd := peak.Minus(v).DividedBy(peak)
		if dd.IsGreaterThan(maxDD) {
			maxDD = dd
		}
		if v.IsLessThan(peak) && i-peakIndex > maxLen {
			maxLen = i - peakIndex
		}
	}
	return maxDD, maxLen
}
