package criteria

import (
	"slices"

	"trading-analytics/internal/analysis"
	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
	"trading-analytics/internal/trading"
)

// MaxDrawdown is the largest peak-to-trough decline of the equity curve as
// a fraction of the peak.
type MaxDrawdown struct{ cfg Settings }

func NewMaxDrawdown(cfg Settings) (*MaxDrawdown, error) {
	return validated(cfg, func(c Settings) *MaxDrawdown { return &MaxDrawdown{cfg: c} })
}

func (*MaxDrawdown) Name() string { return "max-drawdown" }

func (c *MaxDrawdown) Calculate(s *series.BarSeries, record trading.Record) num.Num {
	if degenerate(s, record) {
		return zero(s)
	}
	values, from, to := equity(s, record, c.cfg)
	return analysis.MaxDrawdown(values, from, to)
}

func (c *MaxDrawdown) CalculatePosition(s *series.BarSeries, p *trading.Position) num.Num {
	values, from, to, ok := positionEquity(s, p, c.cfg)
	if !ok {
		return zero(s)
	}
	return analysis.MaxDrawdown(values, from, to)
}

func (*MaxDrawdown) BetterThan(a, b num.Num) bool { return less(a, b) }

// DrawdownLength is the longest number of bars the equity curve spent below
// a previous peak.
type DrawdownLength struct{ cfg Settings }

func NewDrawdownLength(cfg Settings) (*DrawdownLength, error) {
	return validated(cfg, func(c Settings) *DrawdownLength { return &DrawdownLength{cfg: c} })
}

func (*DrawdownLength) Name() string { return "drawdown-length" }

func (c *DrawdownLength) Calculate(s *series.BarSeries, record trading.Record) num.Num {
	if degenerate(s, record) {
		return zero(s)
	}
	values, from, to := equity(s, record, c.cfg)
	return s.Factory().NumOfInt(analysis.MaxDrawdownLength(values, from, to))
}

func (c *DrawdownLength) CalculatePosition(s *series.BarSeries, p *trading.Position) num.Num {
	values, from, to, ok := positionEquity(s, p, c.cfg)
	if !ok {
		return zero(s)
	}
	return s.Factory().NumOfInt(analysis.MaxDrawdownLength(values, from, to))
}

func (*DrawdownLength) BetterThan(a, b num.Num) bool { return less(a, b) }

// positionEquity is the equity curve of p restricted to its holding span.
func positionEquity(s *series.BarSeries, p *trading.Position, cfg Settings) ([]num.Num, int, int, bool) {
	if s == nil || s.IsEmpty() || p == nil || p.IsNew() {
		return nil, 0, 0, false
	}
	cf := analysis.NewPositionCashFlow(s, p, cfg.Mode)
	to := s.EndIndex()
	if p.Exit != nil {
		to = min(to, p.Exit.Index)
	}
	return cf.Values(), p.Entry.Index, to, true
}

// ────────────────────────────────────────────────────────────
// Tail risk
// ────────────────────────────────────────────────────────────

// ValueAtRisk is the per-bar log return at the lower (1 - Confidence) tail
// of the equity curve's returns, capped at zero. Values closer to zero are
// better.
type ValueAtRisk struct{ cfg Settings }

func NewValueAtRisk(cfg Settings) (*ValueAtRisk, error) {
	return validated(cfg, func(c Settings) *ValueAtRisk { return &ValueAtRisk{cfg: c} })
}

func (*ValueAtRisk) Name() string { return "value-at-risk" }

func (c *ValueAtRisk) Calculate(s *series.BarSeries, record trading.Record) num.Num {
	if degenerate(s, record) {
		return zero(s)
	}
	values, from, to := equity(s, record, c.cfg)
	return valueAtRisk(s.Factory(), logReturns(values, from, to), c.cfg.Confidence)
}

func (c *ValueAtRisk) CalculatePosition(s *series.BarSeries, p *trading.Position) num.Num {
	values, from, to, ok := positionEquity(s, p, c.cfg)
	if !ok {
		return zero(s)
	}
	return valueAtRisk(s.Factory(), logReturns(values, from, to), c.cfg.Confidence)
}

func (*ValueAtRisk) BetterThan(a, b num.Num) bool { return greater(a, b) }

// ExpectedShortfall is the mean log return within the lower
// (1 - Confidence) tail.
type ExpectedShortfall struct{ cfg Settings }

func NewExpectedShortfall(cfg Settings) (*ExpectedShortfall, error) {
	return validated(cfg, func(c Settings) *ExpectedShortfall { return &ExpectedShortfall{cfg: c} })
}

func (*ExpectedShortfall) Name() string { return "expected-shortfall" }

func (c *ExpectedShortfall) Calculate(s *series.BarSeries, record trading.Record) num.Num {
	if degenerate(s, record) {
		return zero(s)
	}
	values, from, to := equity(s, record, c.cfg)
	return expectedShortfall(s.Factory(), logReturns(values, from, to), c.cfg.Confidence)
}

func (c *ExpectedShortfall) CalculatePosition(s *series.BarSeries, p *trading.Position) num.Num {
	values, from, to, ok := positionEquity(s, p, c.cfg)
	if !ok {
		return zero(s)
	}
	return expectedShortfall(s.Factory(), logReturns(values, from, to), c.cfg.Confidence)
}

func (*ExpectedShortfall) BetterThan(a, b num.Num) bool { return greater(a, b) }

// logReturns returns ln(v[i]/v[i-1]) for i in (from, to], skipping NaN.
func logReturns(values []num.Num, from, to int) []num.Num {
	from = max(from, 0)
	to = min(to, len(values)-1)
	var out []num.Num
	for i := from + 1; i <= to; i++ {
		r := values[i].DividedBy(values[i-1]).Log()
		if !num.IsNaN(r) {
			out = append(out, r)
		}
	}
	return out
}

// tail sorts returns ascending and keeps the n - floor(n*confidence)
// smallest.
func tail(returns []num.Num, confidence float64) []num.Num {
	if len(returns) == 0 {
		return nil
	}
	sorted := slices.Clone(returns)
	slices.SortFunc(sorted, func(a, b num.Num) int {
		switch {
		case a.IsLessThan(b):
			return -1
		case a.IsGreaterThan(b):
			return 1
		}
		return 0
	})
	n := len(sorted)
	k := max(n-int(float64(n)*confidence), 1)
	return sorted[:k]
}

func valueAtRisk(f num.Factory, returns []num.Num, confidence float64) num.Num {
	t := tail(returns, confidence)
	if len(t) == 0 {
		return f.Zero()
	}
	return t[len(t)-1].Min(f.Zero())
}

func expectedShortfall(f num.Factory, returns []num.Num, confidence float64) num.Num {
	t := tail(returns, confidence)
	if len(t) == 0 {
		return f.Zero()
	}
	return num.Sum(f, t...).DividedBy(f.NumOfInt(len(t)))
}
