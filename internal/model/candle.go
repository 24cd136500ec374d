// Package model holds the stored candle shape shared by the bar stores.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
)

// TFCandle represents a resampled OHLC candle for a timeframe.
// TF is the timeframe duration in seconds (e.g., 60 = 1 minute).
// All prices are in paise (int64) to avoid floating-point drift.
type TFCandle struct {
	Token    string    `json:"token"`
	Exchange string    `json:"exchange"`
	TF       int       `json:"tf"`     // timeframe in seconds
	TS       time.Time `json:"ts"`     // bucket start time (UTC, TF-aligned)
	Open     int64     `json:"open"`   // paise
	High     int64     `json:"high"`   // paise
	Low      int64     `json:"low"`    // paise
	Close    int64     `json:"close"`  // paise
	Volume   int64     `json:"volume"` // cumulative quantity
	Count    int       `json:"count"`  // number of 1s candles merged
}

// Key returns "exchange:token".
func (c *TFCandle) Key() string {
	return c.Exchange + ":" + c.Token
}

// SeriesName is the name given to a series of these candles:
// "exchange:token:{TF}s".
func (c *TFCandle) SeriesName() string {
	return SeriesName(c.Exchange, c.Token, c.TF)
}

// SeriesName formats "exchange:token:{tf}s".
func SeriesName(exchange, token string, tf int) string {
	return fmt.Sprintf("%s:%s:%ds", exchange, token, tf)
}

// Period is the candle duration.
func (c *TFCandle) Period() time.Duration {
	return time.Duration(c.TF) * time.Second
}

// JSON returns the JSON-encoded TF candle.
func (c *TFCandle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Bar converts the candle into a series bar ending at TS+TF. Prices are
// divided by 100 in the factory's arithmetic.
func (c *TFCandle) Bar(f num.Factory) series.Bar {
	hundred := f.NumOfInt(100)
	rupees := func(paise int64) num.Num {
		return f.NumOf(float64(paise)).DividedBy(hundred)
	}
	return series.Bar{
		BeginTime: c.TS,
		EndTime:   c.TS.Add(c.Period()),
		Period:    c.Period(),
		Open:      rupees(c.Open),
		High:      rupees(c.High),
		Low:       rupees(c.Low),
		Close:     rupees(c.Close),
		Volume:    f.NumOf(float64(c.Volume)),
		Amount:    f.Zero(),
		Trades:    int64(c.Count),
	}
}

// FromBar is the inverse of Bar, rounding prices to the nearest paisa.
func FromBar(exchange, token string, b series.Bar) TFCandle {
	paise := func(v num.Num) int64 {
		return int64(math.Round(v.Float64() * 100))
	}
	return TFCandle{
		Token:    token,
		Exchange: exchange,
		TF:       int(b.Period / time.Second),
		TS:       b.BeginTime.UTC(),
		Open:     paise(b.Open),
		High:     paise(b.High),
		Low:      paise(b.Low),
		Close:    paise(b.Close),
		Volume:   int64(math.Round(b.Volume.Float64())),
		Count:    int(b.Trades),
	}
}

// ToSeries appends candles, which must be in ascending TS order, to a new
// series named name.
func ToSeries(name string, f num.Factory, candles []TFCandle) (*series.BarSeries, error) {
	s := series.New(name, f)
	for i := range candles {
		if err := s.AddBar(candles[i].Bar(s.Factory())); err != nil {
			return nil, fmt.Errorf("candle %s at %s: %w", candles[i].Key(), candles[i].TS.Format(time.RFC3339), err)
		}
	}
	return s, nil
}
