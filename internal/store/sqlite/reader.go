package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trading-analytics/internal/model"
	"trading-analytics/internal/num"
	"trading-analytics/internal/report"
	"trading-analytics/internal/series"
)

// Reader provides read-only access to stored candles and reports.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	slog.Info("sqlite reader opened", "path", dbPath)
	return &Reader{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// ReadTFCandles reads TF candles from the candles_tf table for a given exchange:token and TF.
// Results are ordered by timestamp ascending.
func (r *Reader) ReadTFCandles(ctx context.Context, exchange, token string, tf int, afterTS int64) ([]model.TFCandle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT token, exchange, tf, ts, open, high, low, close, volume, count
		FROM candles_tf
		WHERE exchange = ? AND token = ? AND tf = ? AND ts > ?
		ORDER BY ts ASC
	`, exchange, token, tf, afterTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles_tf: %w", err)
	}
	defer rows.Close()

	var candles []model.TFCandle
	for rows.Next() {
		var c model.TFCandle
		var tsUnix int64
		var volume sql.NullInt64
		var count sql.NullInt64
		if err := rows.Scan(&c.Token, &c.Exchange, &c.TF, &tsUnix, &c.Open, &c.High, &c.Low, &c.Close, &volume, &count); err != nil {
			return nil, fmt.Errorf("sqlite scan candles_tf: %w", err)
		}
		c.TS = time.Unix(tsUnix, 0).UTC()
		c.Volume = volume.Int64
		c.Count = int(count.Int64)
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// LoadSeries reads every stored candle of exchange:token at tf into a
// series named model.SeriesName(exchange, token, tf).
func (r *Reader) LoadSeries(ctx context.Context, f num.Factory, exchange, token string, tf int) (*series.BarSeries, error) {
	candles, err := r.ReadTFCandles(ctx, exchange, token, tf, -1)
	if err != nil {
		return nil, err
	}
	s, err := model.ToSeries(model.SeriesName(exchange, token, tf), f, candles)
	if err != nil {
		return nil, fmt.Errorf("sqlite load series: %w", err)
	}
	slog.Debug("sqlite loaded series", "series", s.Name(), "bars", s.BarCount())
	return s, nil
}

// ErrNoReport is returned when no report matches.
var ErrNoReport = errors.New("sqlite: no report")

// LatestReport loads the most recent report stored for a series.
func (r *Reader) LatestReport(ctx context.Context, seriesName string) (report.Report, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `
		SELECT data FROM analysis_reports
		WHERE series = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, seriesName).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return report.Report{}, fmt.Errorf("%w for %s", ErrNoReport, seriesName)
		}
		return report.Report{}, fmt.Errorf("sqlite read report: %w", err)
	}

	var rep report.Report
	if err := json.Unmarshal([]byte(data), &rep); err != nil {
		return report.Report{}, fmt.Errorf("unmarshal report: %w", err)
	}
	return rep, nil
}

// CriterionHistory returns the stored values of one criterion for a series,
// oldest first. Undefined scores are skipped.
func (r *Reader) CriterionHistory(ctx context.Context, seriesName, criterion string) ([]float64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT res.value
		FROM analysis_results res
		JOIN analysis_reports rep ON rep.run_id = res.run_id
		WHERE rep.series = ? AND res.criterion = ? AND res.value IS NOT NULL
		ORDER BY rep.created_at ASC
	`, seriesName, criterion)
	if err != nil {
		return nil, fmt.Errorf("sqlite query results: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("sqlite scan results: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
