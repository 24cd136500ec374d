// Package series holds the append-only bar sequence every indicator and
// criterion is evaluated over.
package series

import (
	"fmt"
	"time"

	"trading-analytics/internal/num"
)

// YearLength is the year used to convert elapsed wall-clock time into years.
const YearLength = time.Duration(365.25 * 24 * float64(time.Hour))

// IndexError reports an index outside [BeginIndex, EndIndex]. Accessors panic
// with *IndexError since an out-of-range index is a programming error.
type IndexError struct {
	Series string
	Index  int
	Begin  int
	End    int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("series %q: index %d out of range [%d, %d]", e.Series, e.Index, e.Begin, e.End)
}

// BarSeries is an ordered, append-only sequence of bars. Indices are
// contiguous and start at 0.
type BarSeries struct {
	name    string
	factory num.Factory
	bars    []Bar
}

// New creates an empty series whose values are built with f.
func New(name string, f num.Factory) *BarSeries {
	if f == nil {
		f = num.DoubleFactory()
	}
	return &BarSeries{name: name, factory: f}
}

func (s *BarSeries) Name() string         { return s.name }
func (s *BarSeries) Factory() num.Factory { return s.factory }
func (s *BarSeries) BarCount() int        { return len(s.bars) }
func (s *BarSeries) IsEmpty() bool        { return len(s.bars) == 0 }

// BeginIndex is 0, or -1 for an empty series.
func (s *BarSeries) BeginIndex() int {
	if s.IsEmpty() {
		return -1
	}
	return 0
}

// EndIndex is the last valid index, or -1 for an empty series.
func (s *BarSeries) EndIndex() int { return len(s.bars) - 1 }

// AddBar appends b. The bar must end strictly after the current last bar.
func (s *BarSeries) AddBar(b Bar) error {
	if n := len(s.bars); n > 0 && !b.EndTime.After(s.bars[n-1].EndTime) {
		return fmt.Errorf("series %q: bar ending %s is not after last bar ending %s",
			s.name, b.EndTime.Format(time.RFC3339), s.bars[n-1].EndTime.Format(time.RFC3339))
	}
	if b.Amount == nil {
		b.Amount = s.factory.Zero()
	}
	s.bars = append(s.bars, b)
	return nil
}

// AddPrice appends a flat bar (open = high = low = close = price) one period
// after the last bar, or ending at start when the series is empty.
func (s *BarSeries) AddPrice(start time.Time, period time.Duration, price float64) error {
	end := start
	if n := len(s.bars); n > 0 {
		end = s.bars[n-1].EndTime.Add(period)
	}
	return s.AddBar(NewBar(s.factory, end, period, price, price, price, price, 0))
}

// CheckIndex returns an *IndexError when i is outside the series bounds.
func (s *BarSeries) CheckIndex(i int) error {
	if i < 0 || i >= len(s.bars) {
		return &IndexError{Series: s.name, Index: i, Begin: s.BeginIndex(), End: s.EndIndex()}
	}
	return nil
}

// Bar returns the bar at i and panics with *IndexError when i is out of range.
func (s *BarSeries) Bar(i int) Bar {
	if err := s.CheckIndex(i); err != nil {
		panic(err)
	}
	return s.bars[i]
}

func (s *BarSeries) FirstBar() Bar { return s.Bar(s.BeginIndex()) }
func (s *BarSeries) LastBar() Bar  { return s.Bar(s.EndIndex()) }

// DeltaYears is the elapsed time between the end instants of bars from and to,
// in years. It is negative when to precedes from.
func (s *BarSeries) DeltaYears(from, to int) float64 {
	d := s.Bar(to).EndTime.Sub(s.Bar(from).EndTime)
	return float64(d) / float64(YearLength)
}

// Num is a shorthand for s.Factory().NumOf(v).
func (s *BarSeries) Num(v float64) num.Num { return s.factory.NumOf(v) }
