package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"trading-analytics/internal/model"
	"trading-analytics/internal/num"
	"trading-analytics/internal/report"
)

func openStore(t *testing.T, keep int) (*Writer, *Reader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.db")
	w, err := New(WriterConfig{DBPath: path, KeepReports: keep})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	r, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return w, r
}

func minuteCandles(exchange, token string, closes ...int64) []model.TFCandle {
	start := time.Date(2024, 1, 2, 3, 45, 0, 0, time.UTC)
	out := make([]model.TFCandle, len(closes))
	for i, c := range closes {
		out[i] = model.TFCandle{
			Token: token, Exchange: exchange, TF: 60,
			TS:   start.Add(time.Duration(i) * time.Minute),
			Open: c, High: c + 50, Low: c - 50, Close: c,
			Volume: 100, Count: 60,
		}
	}
	return out
}

func TestCandles_WriteAndLoadSeries(t *testing.T) {
	w, r := openStore(t, 0)
	ctx := context.Background()

	// Written out of order and with a duplicate: rows come back sorted and replaced.
	cs := minuteCandles("NSE", "99926000", 2150000, 2151000, 2149050)
	if err := w.WriteTFCandles(ctx, []model.TFCandle{cs[2], cs[0], cs[1]}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteTFCandles(ctx, cs[2:]); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteTFCandles(ctx, minuteCandles("NSE", "2885", 100000)); err != nil {
		t.Fatal(err)
	}

	got, err := r.ReadTFCandles(ctx, "NSE", "99926000", 60, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != cs[0] || got[2] != cs[2] {
		t.Fatalf("candles: %+v", got)
	}

	s, err := r.LoadSeries(ctx, num.DecimalFactory(8), "NSE", "99926000", 60)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "NSE:99926000:60s" || s.BarCount() != 3 {
		t.Fatalf("series %s with %d bars", s.Name(), s.BarCount())
	}
	if s.Bar(2).Close.String() != "21490.5" {
		t.Errorf("paise conversion: %s", s.Bar(2).Close)
	}

	empty, err := r.LoadSeries(ctx, nil, "NSE", "missing", 60)
	if err != nil || !empty.IsEmpty() {
		t.Errorf("missing instrument: %v", err)
	}
}

func sampleReport(runID string, at time.Time, sharpe *float64) report.Report {
	return report.Report{
		RunID:     runID,
		Series:    "NSE:99926000:60s",
		Strategy:  "SMA_Crossover_9_21",
		Bars:      375,
		Positions: 4,
		CreatedAt: at,
		Results: []report.Result{
			{Criterion: "sharpe", Value: sharpe, Text: "x"},
			{Criterion: "sortino", Text: "NaN"},
		},
	}
}

func ptr(v float64) *float64 { return &v }

func TestReports_SaveLatestAndHistory(t *testing.T) {
	w, r := openStore(t, 0)
	ctx := context.Background()
	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	if _, err := r.LatestReport(ctx, "NSE:99926000:60s"); !errors.Is(err, ErrNoReport) {
		t.Errorf("expected ErrNoReport, got %v", err)
	}

	for i, v := range []float64{0.5, 1.25, -0.3} {
		rep := sampleReport(string(rune('a'+i)), base.Add(time.Duration(i)*time.Hour), ptr(v))
		if err := w.Save(ctx, rep); err != nil {
			t.Fatal(err)
		}
	}
	if w.Name() != "sqlite" {
		t.Errorf("sink name: %s", w.Name())
	}

	latest, err := r.LatestReport(ctx, "NSE:99926000:60s")
	if err != nil {
		t.Fatal(err)
	}
	if latest.RunID != "c" || latest.Positions != 4 || len(latest.Results) != 2 || latest.Results[1].Value != nil {
		t.Errorf("latest: %+v", latest)
	}

	history, err := r.CriterionHistory(ctx, "NSE:99926000:60s", "sharpe")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 || history[0] != 0.5 || history[2] != -0.3 {
		t.Errorf("history: %v", history)
	}
	undefined, _ := r.CriterionHistory(ctx, "NSE:99926000:60s", "sortino")
	if len(undefined) != 0 {
		t.Errorf("NaN scores should be skipped: %v", undefined)
	}
}

func TestReports_PruneKeepsNewest(t *testing.T) {
	w, r := openStore(t, 2)
	ctx := context.Background()
	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		rep := sampleReport(string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute), ptr(float64(i)))
		if err := w.Save(ctx, rep); err != nil {
			t.Fatal(err)
		}
	}
	history, _ := r.CriterionHistory(ctx, "NSE:99926000:60s", "sharpe")
	if len(history) != 2 || history[0] != 2 || history[1] != 3 {
		t.Errorf("after prune: %v", history)
	}

	// Saving the same run again replaces it.
	if err := w.Save(ctx, sampleReport("d", base.Add(time.Hour), ptr(9))); err != nil {
		t.Fatal(err)
	}
	latest, _ := r.LatestReport(ctx, "NSE:99926000:60s")
	if latest.RunID != "d" || *latest.Results[0].Value != 9 {
		t.Errorf("replaced report: %+v", latest)
	}
}
