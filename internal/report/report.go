// Package report evaluates a set of criteria against one backtest and
// collects the scores into a serialisable Report.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"text/tabwriter"
	"time"

	"trading-analytics/internal/criteria"
	"trading-analytics/internal/logger"
	"trading-analytics/internal/metrics"
	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
	"trading-analytics/internal/trading"
)

// Result is one criterion score. Value is nil when the score is undefined.
type Result struct {
	Criterion string   `json:"criterion"`
	Value     *float64 `json:"value"`
	Text      string   `json:"text"`
	Micros    int64    `json:"micros"`
}

// Undefined reports whether the criterion returned NaN.
func (r Result) Undefined() bool { return r.Value == nil }

// Report is the outcome of one Evaluate call.
type Report struct {
	RunID     string    `json:"run_id"`
	Series    string    `json:"series"`
	Strategy  string    `json:"strategy"`
	Bars      int       `json:"bars"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Positions int       `json:"positions"`
	Open      bool      `json:"open"`
	Results   []Result  `json:"results"`
	CreatedAt time.Time `json:"created_at"`
}

// Lookup returns the result for a canonical criterion name.
func (r Report) Lookup(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Criterion == name {
			return res, true
		}
	}
	return Result{}, false
}

// JSON encodes the report.
func (r Report) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// WriteTable prints a human readable table of the results.
func (r Report) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", r.RunID)
	fmt.Fprintf(tw, "series\t%s (%d bars)\n", r.Series, r.Bars)
	fmt.Fprintf(tw, "strategy\t%s (%d positions)\n", r.Strategy, r.Positions)
	fmt.Fprintln(tw, "\t")
	fmt.Fprintln(tw, "CRITERION\tVALUE")
	for _, res := range r.Results {
		fmt.Fprintf(tw, "%s\t%s\n", res.Criterion, res.Text)
	}
	return tw.Flush()
}

// Runner evaluates criteria in order.
type Runner struct {
	Criteria []criteria.Criterion
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// NewRunner builds the named criteria with cfg. An empty names list means
// every registered criterion.
func NewRunner(names []string, cfg criteria.Settings, m *metrics.Metrics, log *slog.Logger) (*Runner, error) {
	var (
		cs  []criteria.Criterion
		err error
	)
	if len(names) == 0 {
		cs, err = criteria.All(cfg)
	} else {
		cs = make([]criteria.Criterion, 0, len(names))
		for _, name := range names {
			c, cerr := criteria.ByName(name, cfg)
			if cerr != nil {
				err = cerr
				break
			}
			cs = append(cs, c)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	return &Runner{Criteria: cs, Metrics: m, Logger: log}, nil
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Evaluate scores record on s with every criterion. The run ID comes from
// ctx when set there, otherwise a new one is generated. A cancelled ctx
// stops between criteria and returns the partial report with ctx's error.
func (r *Runner) Evaluate(ctx context.Context, s *series.BarSeries, record trading.Record) (Report, error) {
	runID := logger.RunID(ctx)
	if runID == "" {
		runID = logger.NewRunID()
		ctx = logger.WithRunID(ctx, runID)
	}
	log := r.log().With(logger.LogWithRun(ctx)...)
	started := r.now()

	rep := Report{
		RunID:     runID,
		Series:    s.Name(),
		Bars:      s.BarCount(),
		Results:   make([]Result, 0, len(r.Criteria)),
		CreatedAt: started.UTC(),
	}
	if !s.IsEmpty() {
		rep.From = s.FirstBar().BeginTime
		rep.To = s.LastBar().EndTime
	}
	if !trading.IsNil(record) {
		rep.Positions = record.PositionCount()
		if cur := record.CurrentPosition(); cur != nil && cur.IsOpened() {
			rep.Open = true
		}
		if named, ok := record.(interface{ Name() string }); ok {
			rep.Strategy = named.Name()
		}
	}

	for _, c := range r.Criteria {
		if err := ctx.Err(); err != nil {
			return rep, fmt.Errorf("report %s: %w", runID, err)
		}
		t0 := time.Now()
		v := c.Calculate(s, record)
		elapsed := time.Since(t0)

		res := Result{Criterion: c.Name(), Text: format(v), Micros: elapsed.Microseconds()}
		if !num.IsNaN(v) {
			if f := v.Float64(); !math.IsNaN(f) && !math.IsInf(f, 0) {
				res.Value = &f
			}
		}
		rep.Results = append(rep.Results, res)

		if r.Metrics != nil {
			r.Metrics.CriterionDur.WithLabelValues(res.Criterion).Observe(elapsed.Seconds())
			r.Metrics.EvaluationsTotal.WithLabelValues(res.Criterion).Inc()
			if res.Undefined() {
				r.Metrics.NaNResults.WithLabelValues(res.Criterion).Inc()
			}
		}
		log.Debug("criterion evaluated", "criterion", res.Criterion, "value", res.Text, "elapsed", elapsed)
	}

	total := r.now().Sub(started)
	if r.Metrics != nil {
		r.Metrics.RunsTotal.Inc()
		r.Metrics.RunDur.Observe(total.Seconds())
		r.Metrics.PositionsTotal.Add(float64(rep.Positions))
	}
	log.Info("analysis complete",
		"series", rep.Series,
		"strategy", rep.Strategy,
		"criteria", len(rep.Results),
		"positions", rep.Positions,
		"duration", total,
	)
	return rep, nil
}

func format(v num.Num) string {
	if num.IsNaN(v) {
		return "NaN"
	}
	return v.String()
}

// Sink persists or publishes reports.
type Sink interface {
	Name() string
	Save(ctx context.Context, rep Report) error
}

// Deliver hands rep to every sink in order. A failing sink does not stop
// the others; the failures are joined.
func Deliver(ctx context.Context, rep Report, m *metrics.Metrics, sinks ...Sink) error {
	var errs []error
	for _, sink := range sinks {
		start := time.Now()
		err := sink.Save(ctx, rep)
		m.ObserveStore(sink.Name(), start, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}
