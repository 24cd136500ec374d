package sqlite

import (
	"context"
	"testing"
	"time"

	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
	"trading-analytics/internal/trading"
)

func TestJournal_SaveAndReadTrades(t *testing.T) {
	w, r := openStore(t, 0)
	ctx := context.Background()

	s := series.New("NSE:99926000:60s", num.DoubleFactory())
	start := time.Date(2024, 1, 2, 3, 45, 0, 0, time.UTC)
	for _, c := range []float64{100, 102, 105} {
		if err := s.AddPrice(start, time.Minute, c); err != nil {
			t.Fatal(err)
		}
	}
	record := trading.NewTradingRecord("SMA_Crossover_2_4", trading.Buy, nil, nil)
	if err := record.Enter(0, s.Bar(0).Close, s.Num(1)); err != nil {
		t.Fatal(err)
	}
	if err := record.Exit(2, s.Bar(2).Close, s.Num(1)); err != nil {
		t.Fatal(err)
	}

	// Saving twice replaces the run's rows.
	for i := 0; i < 2; i++ {
		if err := w.SaveTrades(ctx, "run-1", record.Name(), s, record); err != nil {
			t.Fatal(err)
		}
	}

	trades, err := r.Trades(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	if trades[0].Action != "BUY" || trades[1].Action != "SELL" {
		t.Errorf("actions: %s %s", trades[0].Action, trades[1].Action)
	}
	if trades[1].Price != 105 || trades[1].Index != 2 || trades[1].Amount != 1 {
		t.Errorf("exit: %+v", trades[1])
	}
	if !trades[0].BarTime.Equal(s.Bar(0).EndTime) {
		t.Errorf("bar time: %v want %v", trades[0].BarTime, s.Bar(0).EndTime)
	}
	if trades[0].Strategy != "SMA_Crossover_2_4" || trades[0].Series != s.Name() {
		t.Errorf("labels: %+v", trades[0])
	}

	none, err := r.Trades(ctx, "missing")
	if err != nil || len(none) != 0 {
		t.Errorf("missing run: %v %v", none, err)
	}
}
