package parquet

import (
	"path/filepath"
	"testing"
	"time"

	goparquet "github.com/parquet-go/parquet-go"

	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
)

func fiveMinuteSeries(t *testing.T) *series.BarSeries {
	t.Helper()
	f := num.DoubleFactory()
	s := series.New("NSE:2885:300s", f)
	start := time.Date(2024, 2, 5, 3, 45, 0, 0, time.UTC)
	for i, c := range []float64{2900.5, 2910, 2895.25, 2920} {
		end := start.Add(time.Duration(i+1) * 5 * time.Minute)
		b := series.NewBar(f, end, 5*time.Minute, c-1, c+3, c-4, c, 1000)
		b.Amount = f.NumOf(c * 1000)
		b.Trades = int64(10 + i)
		if err := s.AddBar(b); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestWriteAndReadSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.parquet")
	src := fiveMinuteSeries(t)
	if err := WriteSeries(path, src); err != nil {
		t.Fatal(err)
	}

	got, err := ReadSeries(path, src.Name(), num.DoubleFactory(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.BarCount() != src.BarCount() {
		t.Fatalf("bars: %d", got.BarCount())
	}
	for i := 0; i < src.BarCount(); i++ {
		want, have := src.Bar(i), got.Bar(i)
		if !have.EndTime.Equal(want.EndTime) || have.Period != 5*time.Minute {
			t.Errorf("bar %d timing: %v %v", i, have.EndTime, have.Period)
		}
		if have.Close.Float64() != want.Close.Float64() || have.Trades != want.Trades {
			t.Errorf("bar %d: close=%s trades=%d", i, have.Close, have.Trades)
		}
		if d := have.Amount.Float64() - want.Amount.Float64(); d > 1e-6 || d < -1e-6 {
			t.Errorf("bar %d amount: %s vs %s", i, have.Amount, want.Amount)
		}
	}
}

func TestReadSeries_SortsRowsAndHonoursPeriod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unsorted.parquet")
	base := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC).UnixMilli()
	rows := []Row{
		{Timestamp: base + 120_000, Open: 3, High: 3, Low: 3, Close: 3},
		{Timestamp: base, Open: 1, High: 1, Low: 1, Close: 1},
		{Timestamp: base + 60_000, Open: 2, High: 2, Low: 2, Close: 2},
	}
	if err := goparquet.WriteFile(path, rows); err != nil {
		t.Fatal(err)
	}

	s, err := ReadSeries(path, "x", nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if s.Bar(0).Close.Float64() != 1 || s.Bar(2).Close.Float64() != 3 || s.Bar(0).Period != time.Minute {
		t.Errorf("sorted: %v %v", s.Bar(0).Close, s.Bar(2).Close)
	}

	// An explicit period wins over the inferred one.
	s, err = ReadSeries(path, "x", nil, 30*time.Second)
	if err != nil || s.Bar(1).Period != 30*time.Second {
		t.Errorf("explicit period: %v", err)
	}
}

func TestReadSeries_DuplicateTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.parquet")
	rows := []Row{{Timestamp: 1000, Close: 1}, {Timestamp: 1000, Close: 2}}
	if err := goparquet.WriteFile(path, rows); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSeries(path, "dup", nil, 0); err == nil {
		t.Error("expected error for duplicate timestamps")
	}
	if _, err := ReadSeries(filepath.Join(t.TempDir(), "missing.parquet"), "m", nil, 0); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestInferPeriod(t *testing.T) {
	if got := InferPeriod(nil); got != time.Minute {
		t.Errorf("empty: %v", got)
	}
	rows := []Row{{Timestamp: 0}, {Timestamp: 300_000}, {Timestamp: 900_000}}
	if got := InferPeriod(rows); got != 5*time.Minute {
		t.Errorf("gaps: %v", got)
	}
}
