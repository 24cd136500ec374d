// Package criteria scores a trading record (or a single position) against a
// bar series. Each criterion is a small value type implementing Criterion
// and fixes its own optimisation direction through BetterThan.
package criteria

import (
	"errors"
	"fmt"
	"time"

	"trading-analytics/internal/analysis"
	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
	"trading-analytics/internal/stats"
	"trading-analytics/internal/trading"
)

// Criterion is the scoring capability. Calculate returns zero for a nil
// record and may return num.NaN when the measure is undefined.
type Criterion interface {
	Name() string
	Calculate(s *series.BarSeries, record trading.Record) num.Num
	CalculatePosition(s *series.BarSeries, p *trading.Position) num.Num
	// BetterThan reports whether a is a better score than b.
	BetterThan(a, b num.Num) bool
}

// ErrInvalidSettings is wrapped by every Settings validation failure.
var ErrInvalidSettings = errors.New("criteria: invalid settings")

// Annualization selects whether per-period ratios are scaled to a year.
type Annualization int

const (
	Annualized Annualization = iota
	PerPeriod
)

func (a Annualization) String() string {
	if a == PerPeriod {
		return "PERIOD"
	}
	return "ANNUALIZED"
}

func ParseAnnualization(s string) (Annualization, error) {
	switch normalize(s) {
	case "", "annualized", "annual":
		return Annualized, nil
	case "period", "per-period":
		return PerPeriod, nil
	}
	return Annualized, fmt.Errorf("%w: unknown annualization %q", ErrInvalidSettings, s)
}

// Settings carries every knob shared by the criteria. The zero value is not
// valid; start from DefaultSettings.
type Settings struct {
	Representation analysis.Representation
	Sampling       analysis.SamplingFrequency
	// Zone is where calendar sampling boundaries are evaluated; nil is UTC.
	Zone          *time.Location
	Annualization Annualization
	CashPolicy    analysis.CashReturnPolicy
	Mode          analysis.EquityCurveMode
	OpenPositions analysis.OpenPositionHandling
	ExpandLots    bool
	// RiskFreeRate is annual, as a decimal (0.05 for 5%).
	RiskFreeRate float64
	// Confidence is the VaR / expected shortfall level, in (0, 1).
	Confidence float64
	// Threshold is the per-sample target return for Sortino and Omega.
	Threshold float64
}

// DefaultSettings: decimal representation, per-bar annualized sampling in
// UTC, zero risk-free rate, cash earning the risk-free rate, mark-to-market
// equity including open positions, 95% confidence and a zero threshold.
func DefaultSettings() Settings {
	return Settings{
		Representation: analysis.Decimal,
		Sampling:       analysis.SampleBar,
		Zone:           time.UTC,
		Annualization:  Annualized,
		CashPolicy:     analysis.CashEarnsRiskFree,
		Mode:           analysis.MarkToMarket,
		OpenPositions:  analysis.IncludeOpen,
		Confidence:     0.95,
	}
}

// Validate checks every enum and numeric bound.
func (c Settings) Validate() error {
	if _, err := analysis.ParseRepresentation(c.Representation.String()); err != nil {
		return fmt.Errorf("%w: representation %d", ErrInvalidSettings, int(c.Representation))
	}
	if _, err := analysis.ParseSamplingFrequency(c.Sampling.String()); err != nil {
		return fmt.Errorf("%w: sampling frequency %d", ErrInvalidSettings, int(c.Sampling))
	}
	if c.Annualization != Annualized && c.Annualization != PerPeriod {
		return fmt.Errorf("%w: annualization %d", ErrInvalidSettings, int(c.Annualization))
	}
	if c.CashPolicy != analysis.CashEarnsRiskFree && c.CashPolicy != analysis.CashEarnsZero {
		return fmt.Errorf("%w: cash return policy %d", ErrInvalidSettings, int(c.CashPolicy))
	}
	if c.Mode != analysis.MarkToMarket && c.Mode != analysis.Realized {
		return fmt.Errorf("%w: equity curve mode %d", ErrInvalidSettings, int(c.Mode))
	}
	if c.OpenPositions != analysis.IncludeOpen && c.OpenPositions != analysis.IgnoreOpen {
		return fmt.Errorf("%w: open position handling %d", ErrInvalidSettings, int(c.OpenPositions))
	}
	if !(c.Confidence > 0 && c.Confidence < 1) {
		return fmt.Errorf("%w: confidence %v outside (0, 1)", ErrInvalidSettings, c.Confidence)
	}
	if c.RiskFreeRate <= -1 {
		return fmt.Errorf("%w: risk-free rate %v", ErrInvalidSettings, c.RiskFreeRate)
	}
	return nil
}

// openHandling is IgnoreOpen in realized mode whatever was configured.
func (c Settings) openHandling() analysis.OpenPositionHandling {
	if c.Mode == analysis.Realized {
		return analysis.IgnoreOpen
	}
	return c.OpenPositions
}

func (c Settings) cashFlowOptions() analysis.CashFlowOptions {
	opts := analysis.DefaultCashFlowOptions()
	opts.Mode = c.Mode
	opts.OpenPositions = c.openHandling()
	return opts
}

func (c Settings) sampler() analysis.Sampler {
	return analysis.Sampler{
		Frequency:     c.Sampling,
		Zone:          c.Zone,
		OpenPositions: c.openHandling(),
		ExpandLots:    c.ExpandLots,
	}
}

// samples returns the excess-return samples of record.
func (c Settings) samples(s *series.BarSeries, record trading.Record) []analysis.Sample {
	excess := analysis.NewExcessReturns(s, s.Num(c.RiskFreeRate), c.CashPolicy, record, c.cashFlowOptions())
	return analysis.RatioSamples(s, record, c.sampler(), excess)
}

// annualize scales a per-period ratio by the observed annualization factor.
// Without elapsed time the per-period value is returned unchanged.
func (c Settings) annualize(perPeriod num.Num, acc *stats.Accumulator) num.Num {
	if c.Annualization == PerPeriod || num.IsNaN(perPeriod) {
		return perPeriod
	}
	if factor, ok := acc.AnnualizationFactor(); ok {
		return perPeriod.Times(factor)
	}
	return perPeriod
}

// zero is the neutral result for degenerate input.
func zero(s *series.BarSeries) num.Num {
	if s == nil {
		return num.DoubleFactory().Zero()
	}
	return s.Factory().Zero()
}

// degenerate reports whether there is nothing to evaluate.
func degenerate(s *series.BarSeries, record trading.Record) bool {
	return s == nil || s.IsEmpty() || trading.IsNil(record)
}

// viaRecord evaluates a position by wrapping it in a one-position record.
func viaRecord(c Criterion, s *series.BarSeries, p *trading.Position) num.Num {
	if p == nil || p.IsNew() {
		return zero(s)
	}
	return c.Calculate(s, trading.RecordOf(p))
}

func greater(a, b num.Num) bool { return a.IsGreaterThan(b) }
func less(a, b num.Num) bool    { return a.IsLessThan(b) }

func validated[T any](c Settings, build func(Settings) T) (T, error) {
	if err := c.Validate(); err != nil {
		var none T
		return none, err
	}
	return build(c), nil
}
