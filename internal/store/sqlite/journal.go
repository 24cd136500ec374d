package sqlite

import (
	"context"
	"fmt"
	"time"

	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
	"trading-analytics/internal/trading"
)

// TradeRow is one journaled execution of a backtest run.
type TradeRow struct {
	RunID    string    `json:"run_id"`
	Strategy string    `json:"strategy"`
	Series   string    `json:"series"`
	Seq      int       `json:"seq"`
	Action   string    `json:"action"`
	Index    int       `json:"index"`
	BarTime  time.Time `json:"bar_time"`
	Price    float64   `json:"price"`
	Amount   float64   `json:"amount"`
	Cost     float64   `json:"cost"`
}

// SaveTrades journals every trade of record under runID. Bar times are the
// end of the bar each trade executed on.
func (w *Writer) SaveTrades(ctx context.Context, runID, strategy string, s *series.BarSeries, record trading.Record) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("sqlite clear trades: %w", err)
	}
	for seq, t := range record.Trades() {
		price := t.Price
		if num.IsNaN(price) {
			price = s.Bar(t.Index).Close
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trades (run_id, strategy, series, seq, action, bar_index, bar_time, price, amount, cost)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, strategy, s.Name(), seq, t.Type.String(), t.Index, s.Bar(t.Index).EndTime.Unix(),
			price.Float64(), floatOf(t.Amount), floatOf(t.Cost))
		if err != nil {
			return fmt.Errorf("sqlite insert trade %d: %w", seq, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit trades: %w", err)
	}
	return nil
}

func floatOf(v num.Num) float64 {
	if num.IsNaN(v) {
		return 0
	}
	return v.Float64()
}

// Trades returns the journaled trades of a run in execution order.
func (r *Reader) Trades(ctx context.Context, runID string) ([]TradeRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, strategy, series, seq, action, bar_index, bar_time, price, amount, cost
		FROM trades WHERE run_id = ? ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRow
	for rows.Next() {
		var t TradeRow
		var barTime int64
		if err := rows.Scan(&t.RunID, &t.Strategy, &t.Series, &t.Seq, &t.Action, &t.Index,
			&barTime, &t.Price, &t.Amount, &t.Cost); err != nil {
			return nil, fmt.Errorf("sqlite scan trades: %w", err)
		}
		t.BarTime = time.Unix(barTime, 0).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}
