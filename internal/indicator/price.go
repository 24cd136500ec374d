package indicator

import (
	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
)

func barField(s *series.BarSeries, get func(series.Bar) num.Num) *Func[num.Num] {
	return NewFunc(s, 0, func(i int) num.Num { return get(s.Bar(i)) })
}

func NewClosePrice(s *series.BarSeries) *Func[num.Num] {
	return barField(s, func(b series.Bar) num.Num { return b.Close })
}

func NewOpenPrice(s *series.BarSeries) *Func[num.Num] {
	return barField(s, func(b series.Bar) num.Num { return b.Open })
}

func NewHighPrice(s *series.BarSeries) *Func[num.Num] {
	return barField(s, func(b series.Bar) num.Num { return b.High })
}

func NewLowPrice(s *series.BarSeries) *Func[num.Num] {
	return barField(s, func(b series.Bar) num.Num { return b.Low })
}

func NewVolume(s *series.BarSeries) *Func[num.Num] {
	return barField(s, func(b series.Bar) num.Num { return b.Volume })
}

// NewTypicalPrice is (high + low + close) / 3.
func NewTypicalPrice(s *series.BarSeries) *Func[num.Num] {
	return barField(s, series.Bar.TypicalPrice)
}

// NewConstant returns v at every index.
func NewConstant(s *series.BarSeries, v num.Num) *Func[num.Num] {
	return NewFunc(s, 0, func(int) num.Num { return v })
}

// NewPrevious returns ind shifted back by n bars. Indices before the series
// start are clamped to the first bar.
func NewPrevious(ind Num, n int) *Func[num.Num] {
	s := ind.Series()
	return NewFunc(s, ind.UnstableBars()+n, func(i int) num.Num {
		return ind.Value(max(i-n, s.BeginIndex()))
	})
}
