package criteria

import (
	"trading-analytics/internal/analysis"
	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
	"trading-analytics/internal/stats"
	"trading-analytics/internal/trading"
)

// ────────────────────────────────────────────────────────────
// Sharpe
// ────────────────────────────────────────────────────────────

// Sharpe is the mean excess return over its sample standard deviation,
// annualized by the observed sampling rate. It is zero with fewer than two
// samples or zero variance.
type Sharpe struct{ cfg Settings }

func NewSharpe(cfg Settings) (*Sharpe, error) {
	return validated(cfg, func(c Settings) *Sharpe { return &Sharpe{cfg: c} })
}

func (*Sharpe) Name() string { return "sharpe" }

func (c *Sharpe) Calculate(s *series.BarSeries, record trading.Record) num.Num {
	if degenerate(s, record) {
		return zero(s)
	}
	return c.fromSummary(stats.SummarizeSamples(s.Factory(), c.cfg.samples(s, record)))
}

func (c *Sharpe) fromSummary(acc *stats.Accumulator) num.Num {
	f := acc.Factory()
	if acc.Count() < 2 {
		return f.Zero()
	}
	stdev := acc.StdDev()
	if stdev.IsZero() {
		return f.Zero()
	}
	return c.cfg.annualize(acc.Mean().DividedBy(stdev), acc)
}

func (c *Sharpe) CalculatePosition(s *series.BarSeries, p *trading.Position) num.Num {
	return viaRecord(c, s, p)
}

func (*Sharpe) BetterThan(a, b num.Num) bool { return greater(a, b) }

// ────────────────────────────────────────────────────────────
// Sortino
// ────────────────────────────────────────────────────────────

// Sortino divides the mean excess return by the downside deviation below
// the threshold. It is NaN whenever that deviation is zero, including when
// every sample at or below the threshold sits exactly on it.
type Sortino struct{ cfg Settings }

func NewSortino(cfg Settings) (*Sortino, error) {
	return validated(cfg, func(c Settings) *Sortino { return &Sortino{cfg: c} })
}

func (*Sortino) Name() string { return "sortino" }

func (c *Sortino) Calculate(s *series.BarSeries, record trading.Record) num.Num {
	if degenerate(s, record) {
		return zero(s)
	}
	samples := c.cfg.samples(s, record)
	return c.fromSamples(s.Factory(), samples)
}

func (c *Sortino) fromSamples(f num.Factory, samples []analysis.Sample) num.Num {
	acc := stats.SummarizeSamples(f, samples)
	if acc.Count() < 2 {
		return f.Zero()
	}
	dd := stats.DownsideDeviation(f, stats.Values(samples), f.NumOf(c.cfg.Threshold))
	if dd.IsNaN() || dd.IsZero() {
		return num.NaN
	}
	return c.cfg.annualize(acc.Mean().DividedBy(dd), acc)
}

func (c *Sortino) CalculatePosition(s *series.BarSeries, p *trading.Position) num.Num {
	return viaRecord(c, s, p)
}

func (*Sortino) BetterThan(a, b num.Num) bool { return greater(a, b) }

// ────────────────────────────────────────────────────────────
// Omega
// ────────────────────────────────────────────────────────────

// Omega is the sum of sample gains above the threshold over the sum of
// losses below it. Without losses it is NaN when there are gains and zero
// when there is no movement at all.
type Omega struct{ cfg Settings }

func NewOmega(cfg Settings) (*Omega, error) {
	return validated(cfg, func(c Settings) *Omega { return &Omega{cfg: c} })
}

func (*Omega) Name() string { return "omega" }

func (c *Omega) Calculate(s *series.BarSeries, record trading.Record) num.Num {
	if degenerate(s, record) {
		return zero(s)
	}
	f := s.Factory()
	up, down := stats.PartialMoments(f, stats.Values(c.cfg.samples(s, record)), f.NumOf(c.cfg.Threshold))
	if down.IsZero() {
		if up.IsZero() {
			return f.Zero()
		}
		return num.NaN
	}
	return up.DividedBy(down)
}

func (c *Omega) CalculatePosition(s *series.BarSeries, p *trading.Position) num.Num {
	return viaRecord(c, s, p)
}

func (*Omega) BetterThan(a, b num.Num) bool { return greater(a, b) }

// ────────────────────────────────────────────────────────────
// Return over maximum drawdown
// ────────────────────────────────────────────────────────────

// Calmar is the net rate of return over the maximum drawdown of the equity
// curve. With no drawdown the net return itself is returned in the
// configured representation.
type Calmar struct{ cfg Settings }

func NewCalmar(cfg Settings) (*Calmar, error) {
	return validated(cfg, func(c Settings) *Calmar { return &Calmar{cfg: c} })
}

func (*Calmar) Name() string { return "return-over-max-drawdown" }

func (c *Calmar) Calculate(s *series.BarSeries, record trading.Record) num.Num {
	if degenerate(s, record) {
		return zero(s)
	}
	values, from, to := equity(s, record, c.cfg)
	total := totalReturn(values, from, to)
	dd := analysis.MaxDrawdown(values, from, to)
	if dd.IsZero() {
		return c.cfg.Representation.FromTotalReturn(total)
	}
	return total.Minus(s.Factory().One()).DividedBy(dd)
}

func (c *Calmar) CalculatePosition(s *series.BarSeries, p *trading.Position) num.Num {
	return viaRecord(c, s, p)
}

func (*Calmar) BetterThan(a, b num.Num) bool { return greater(a, b) }

// equity returns the cash-flow values of record and the evaluated range.
func equity(s *series.BarSeries, record trading.Record, cfg Settings) ([]num.Num, int, int) {
	cf := analysis.NewCashFlow(s, record, cfg.cashFlowOptions())
	return cf.Values(), record.StartIndex(s), record.EndIndex(s)
}

// totalReturn is values[to] / values[from].
func totalReturn(values []num.Num, from, to int) num.Num {
	if len(values) == 0 || to < from {
		return num.DoubleFactory().One()
	}
	return values[to].DividedBy(values[from])
}
