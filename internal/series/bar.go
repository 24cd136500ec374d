package series

import (
	"time"

	"trading-analytics/internal/num"
)

// Bar is one OHLCV observation for a fixed time period. Bars are immutable
// once appended to a series.
type Bar struct {
	BeginTime time.Time
	EndTime   time.Time
	Period    time.Duration

	Open   num.Num
	High   num.Num
	Low    num.Num
	Close  num.Num
	Volume num.Num
	Amount num.Num // traded value, zero when unknown
	Trades int64
}

// NewBar builds a bar ending at end from float prices using f.
func NewBar(f num.Factory, end time.Time, period time.Duration, open, high, low, close, volume float64) Bar {
	return Bar{
		BeginTime: end.Add(-period),
		EndTime:   end,
		Period:    period,
		Open:      f.NumOf(open),
		High:      f.NumOf(high),
		Low:       f.NumOf(low),
		Close:     f.NumOf(close),
		Volume:    f.NumOf(volume),
		Amount:    f.Zero(),
	}
}

// TypicalPrice is (high + low + close) / 3.
func (b Bar) TypicalPrice() num.Num {
	three := b.Close.Factory().NumOfInt(3)
	return b.High.Plus(b.Low).Plus(b.Close).DividedBy(three)
}

// IsBullish reports whether the bar closed above its open.
func (b Bar) IsBullish() bool { return b.Close.IsGreaterThan(b.Open) }
