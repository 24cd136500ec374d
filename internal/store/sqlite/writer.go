package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trading-analytics/internal/model"
	"trading-analytics/internal/report"
)

const defaultKeepReports = 100

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/candles.db"
	// KeepReports bounds the stored reports per series; <= 0 uses 100.
	KeepReports int
}

// Writer is a single-connection SQLite writer with transaction batching.
type Writer struct {
	db   *sql.DB
	keep int
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	keep := cfg.KeepReports
	if keep <= 0 {
		keep = defaultKeepReports
	}
	slog.Info("sqlite opened", "path", cfg.DBPath)
	return &Writer{db: db, keep: keep}, nil
}

func open(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles_tf (
			token      TEXT    NOT NULL,
			exchange   TEXT    NOT NULL,
			tf         INTEGER NOT NULL,
			ts         INTEGER NOT NULL,
			open       INTEGER NOT NULL,
			high       INTEGER NOT NULL,
			low        INTEGER NOT NULL,
			close      INTEGER NOT NULL,
			volume     INTEGER,
			count      INTEGER,
			PRIMARY KEY (exchange, token, tf, ts)
		);

		CREATE TABLE IF NOT EXISTS analysis_reports (
			run_id     TEXT    PRIMARY KEY,
			series     TEXT    NOT NULL,
			strategy   TEXT    NOT NULL,
			bars       INTEGER NOT NULL,
			positions  INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			data       TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_analysis_reports_series
			ON analysis_reports (series, created_at);

		CREATE TABLE IF NOT EXISTS trades (
			run_id    TEXT    NOT NULL,
			strategy  TEXT    NOT NULL,
			series    TEXT    NOT NULL,
			seq       INTEGER NOT NULL,
			action    TEXT    NOT NULL,
			bar_index INTEGER NOT NULL,
			bar_time  INTEGER NOT NULL,
			price     REAL    NOT NULL,
			amount    REAL    NOT NULL,
			cost      REAL    NOT NULL,
			PRIMARY KEY (run_id, seq)
		);

		CREATE TABLE IF NOT EXISTS analysis_results (
			run_id    TEXT NOT NULL REFERENCES analysis_reports (run_id) ON DELETE CASCADE,
			criterion TEXT NOT NULL,
			value     REAL,
			text      TEXT NOT NULL,
			PRIMARY KEY (run_id, criterion)
		);
	`)
	return err
}

// WriteTFCandles inserts candles in a single transaction, replacing rows
// with the same key.
func (w *Writer) WriteTFCandles(ctx context.Context, candles []model.TFCandle) error {
	if len(candles) == 0 {
		return nil
	}
	start := time.Now()
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles_tf (token, exchange, tf, ts, open, high, low, close, volume, count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare candles_tf: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx, c.Token, c.Exchange, c.TF, c.TS.Unix(), c.Open, c.High, c.Low, c.Close, c.Volume, c.Count)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert candles_tf: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit candles_tf: %w", err)
	}
	slog.Debug("sqlite committed TF candles", "count", len(candles), "elapsed", time.Since(start))
	return nil
}

// Name identifies the writer as a report sink.
func (w *Writer) Name() string { return "sqlite" }

// Save stores rep and its per-criterion results, then prunes the series to
// the newest KeepReports reports.
func (w *Writer) Save(ctx context.Context, rep report.Report) error {
	data, err := rep.JSON()
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO analysis_reports (run_id, series, strategy, bars, positions, created_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rep.RunID, rep.Series, rep.Strategy, rep.Bars, rep.Positions, rep.CreatedAt.UnixNano(), string(data))
	if err != nil {
		return fmt.Errorf("sqlite insert report: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM analysis_results WHERE run_id = ?`, rep.RunID); err != nil {
		return fmt.Errorf("sqlite clear results: %w", err)
	}
	for _, res := range rep.Results {
		var value sql.NullFloat64
		if res.Value != nil {
			value = sql.NullFloat64{Float64: *res.Value, Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO analysis_results (run_id, criterion, value, text) VALUES (?, ?, ?, ?)`,
			rep.RunID, res.Criterion, value, res.Text)
		if err != nil {
			return fmt.Errorf("sqlite insert result %s: %w", res.Criterion, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit report: %w", err)
	}

	// Prune old reports for this series
	if err := w.prune(ctx, rep.Series); err != nil {
		slog.Warn("sqlite prune reports", "series", rep.Series, "error", err)
	}
	slog.Debug("sqlite saved report", "run_id", rep.RunID, "series", rep.Series)
	return nil
}

func (w *Writer) prune(ctx context.Context, seriesName string) error {
	_, err := w.db.ExecContext(ctx, `
		DELETE FROM analysis_results WHERE run_id IN (
			SELECT run_id FROM analysis_reports WHERE series = ?
			ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, seriesName, w.keep)
	if err != nil {
		return err
	}
	_, err = w.db.ExecContext(ctx, `
		DELETE FROM analysis_reports WHERE run_id IN (
			SELECT run_id FROM analysis_reports WHERE series = ?
			ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, seriesName, w.keep)
	return err
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
