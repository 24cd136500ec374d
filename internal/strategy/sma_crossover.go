package strategy

import (
	"fmt"

	"trading-analytics/internal/indicator"
	"trading-analytics/internal/series"
)

// NewSMACrossover builds a long-only SMA crossover strategy.
//
// Entry: fast SMA crosses above slow SMA (golden cross)
// Exit:  fast SMA crosses below slow SMA (death cross)
func NewSMACrossover(s *series.BarSeries, fast, slow int) (*Strategy, error) {
	if fast < 1 || slow <= fast {
		return nil, fmt.Errorf("strategy: need 0 < fast < slow, got fast=%d slow=%d", fast, slow)
	}
	closes := indicator.NewClosePrice(s)
	fastSMA := indicator.NewSMA(closes, fast)
	slowSMA := indicator.NewSMA(closes, slow)
	return &Strategy{
		Name:         fmt.Sprintf("SMA_Crossover_%d_%d", fast, slow),
		Entry:        CrossedUp(fastSMA, slowSMA),
		Exit:         CrossedDown(fastSMA, slowSMA),
		UnstableBars: slow,
		Indicators:   []indicator.Num{fastSMA, slowSMA},
	}, nil
}

// NewSMACrossoverRSI adds an RSI filter: no entry while RSI is above 70
// (overbought) and no exit while RSI is below 30 (oversold).
func NewSMACrossoverRSI(s *series.BarSeries, fast, slow, rsiPeriod int) (*Strategy, error) {
	base, err := NewSMACrossover(s, fast, slow)
	if err != nil {
		return nil, err
	}
	if rsiPeriod < 1 {
		return nil, fmt.Errorf("strategy: rsi period must be positive, got %d", rsiPeriod)
	}
	rsi := indicator.NewRSI(indicator.NewClosePrice(s), rsiPeriod)
	overbought := indicator.NewConstant(s, s.Num(70))
	oversold := indicator.NewConstant(s, s.Num(30))
	return &Strategy{
		Name:         fmt.Sprintf("%s_RSI_%d", base.Name, rsiPeriod),
		Entry:        And(base.Entry, Not(Over(rsi, overbought))),
		Exit:         And(base.Exit, Not(Under(rsi, oversold))),
		UnstableBars: max(base.UnstableBars, rsi.UnstableBars()),
		Indicators:   append(base.Indicators, rsi),
	}, nil
}
