// Package parquet reads and writes bar files in the crawler's Parquet
// layout: one row per bar keyed by its start time in Unix milliseconds.
package parquet

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"time"

	goparquet "github.com/parquet-go/parquet-go"

	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
)

// Row is one stored bar.
type Row struct {
	Timestamp    int64   `json:"t" parquet:"t"` // bar start, Unix milliseconds
	Open         float64 `json:"o" parquet:"o"`
	High         float64 `json:"h" parquet:"h"`
	Low          float64 `json:"l" parquet:"l"`
	Close        float64 `json:"c" parquet:"c"`
	Volume       int64   `json:"v" parquet:"v"`
	VWAP         float64 `json:"vw,omitempty" parquet:"vw,optional"`
	Transactions int64   `json:"n,omitempty" parquet:"n,optional"`
}

// RowOf converts a series bar.
func RowOf(b series.Bar) Row {
	r := Row{
		Timestamp:    b.BeginTime.UnixMilli(),
		Open:         b.Open.Float64(),
		High:         b.High.Float64(),
		Low:          b.Low.Float64(),
		Close:        b.Close.Float64(),
		Volume:       int64(b.Volume.Float64()),
		Transactions: b.Trades,
	}
	if b.Amount != nil && !b.Amount.IsZero() && r.Volume > 0 {
		r.VWAP = b.Amount.Float64() / float64(r.Volume)
	}
	return r
}

// Bar converts the row into a bar lasting period.
func (r Row) Bar(f num.Factory, period time.Duration) series.Bar {
	begin := time.UnixMilli(r.Timestamp).UTC()
	b := series.NewBar(f, begin.Add(period), period, r.Open, r.High, r.Low, r.Close, float64(r.Volume))
	b.Trades = r.Transactions
	if r.VWAP > 0 {
		b.Amount = f.NumOf(r.VWAP * float64(r.Volume))
	}
	return b
}

// WriteSeries writes every bar of s to path.
func WriteSeries(path string, s *series.BarSeries) error {
	rows := make([]Row, 0, s.BarCount())
	for i := s.BeginIndex(); i <= s.EndIndex(); i++ {
		rows = append(rows, RowOf(s.Bar(i)))
	}
	if err := goparquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("parquet write %s: %w", path, err)
	}
	slog.Debug("parquet wrote bars", "path", path, "rows", len(rows))
	return nil
}

// ReadRows loads the rows of path sorted by timestamp.
func ReadRows(path string) ([]Row, error) {
	rows, err := goparquet.ReadFile[Row](path)
	if err != nil {
		return nil, fmt.Errorf("parquet read %s: %w", path, err)
	}
	slices.SortStableFunc(rows, func(a, b Row) int { return cmp.Compare(a.Timestamp, b.Timestamp) })
	return rows, nil
}

// ReadSeries loads path into a series named name. A zero period is
// inferred as the smallest gap between consecutive rows, one minute for a
// single row. Rows sharing a timestamp are rejected.
func ReadSeries(path, name string, f num.Factory, period time.Duration) (*series.BarSeries, error) {
	rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	if period <= 0 {
		period = InferPeriod(rows)
	}
	s := series.New(name, f)
	for _, r := range rows {
		if err := s.AddBar(r.Bar(s.Factory(), period)); err != nil {
			return nil, fmt.Errorf("parquet %s: %w", path, err)
		}
	}
	slog.Debug("parquet loaded series", "series", name, "bars", s.BarCount(), "period", period)
	return s, nil
}

// InferPeriod returns the smallest positive gap between sorted rows.
func InferPeriod(rows []Row) time.Duration {
	var best int64
	for i := 1; i < len(rows); i++ {
		if d := rows[i].Timestamp - rows[i-1].Timestamp; d > 0 && (best == 0 || d < best) {
			best = d
		}
	}
	if best == 0 {
		return time.Minute
	}
	return time.Duration(best) * time.Millisecond
}
