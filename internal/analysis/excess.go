package analysis

import (
	"fmt"

	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
	"trading-analytics/internal/trading"
)

// CashReturnPolicy decides what idle, out-of-market equity earns.
type CashReturnPolicy int

const (
	// CashEarnsRiskFree credits idle bars with the risk-free rate, so flat
	// periods score close to zero excess return.
	CashEarnsRiskFree CashReturnPolicy = iota
	// CashEarnsZero leaves idle equity flat, so flat periods underperform
	// cash by the risk-free rate.
	CashEarnsZero
)

func (p CashReturnPolicy) String() string {
	if p == CashEarnsZero {
		return "CASH_EARNS_ZERO"
	}
	return "CASH_EARNS_RISK_FREE"
}

func ParseCashReturnPolicy(s string) (CashReturnPolicy, error) {
	switch normalizeName(s) {
	case "", "CASH_EARNS_RISK_FREE", "RISK_FREE":
		return CashEarnsRiskFree, nil
	case "CASH_EARNS_ZERO", "ZERO":
		return CashEarnsZero, nil
	}
	return CashEarnsRiskFree, fmt.Errorf("analysis: unknown cash return policy %q", s)
}

// ExcessReturns measures equity growth over an interval against an
// annualized risk-free rate compounded over the interval's actual elapsed
// time.
type ExcessReturns struct {
	s          *series.BarSeries
	cash       *CashFlow
	invested   []bool
	annualRate num.Num
	policy     CashReturnPolicy
}

// NewExcessReturns builds excess returns for record. annualRate is a decimal
// rate, e.g. 0.05 for 5% a year.
func NewExcessReturns(s *series.BarSeries, annualRate num.Num, policy CashReturnPolicy, record trading.Record, opts CashFlowOptions) *ExcessReturns {
	if annualRate == nil {
		annualRate = s.Factory().Zero()
	}
	e := &ExcessReturns{
		s:          s,
		cash:       NewCashFlow(s, record, opts),
		invested:   make([]bool, s.BarCount()),
		annualRate: annualRate,
		policy:     policy,
	}
	if s.IsEmpty() {
		return e
	}
	final := opts.FinalIndex
	if final < 0 {
		final = s.EndIndex()
		if !trading.IsNil(record) {
			final = record.EndIndex(s)
		}
	}
	for _, p := range cashFlowPositions(record, final, opts.Mode, opts.OpenPositions) {
		end := min(final, s.EndIndex())
		if p.Exit != nil {
			end = min(end, p.Exit.Index)
		}
		for i := p.Entry.Index + 1; i <= end; i++ {
			e.invested[i] = true
		}
	}
	return e
}

func (e *ExcessReturns) CashFlow() *CashFlow { return e.cash }

// RiskFreeReturn is (1 + annualRate)^years - 1 over the elapsed time between
// the end instants of bars from and to.
func (e *ExcessReturns) RiskFreeReturn(from, to int) num.Num {
	f := e.s.Factory()
	years := f.NumOf(e.s.DeltaYears(from, to))
	if !years.IsPositive() {
		return f.Zero()
	}
	return f.One().Plus(e.annualRate).Pow(years).Minus(f.One())
}

// ExcessReturn is the compounded growth of equity from bar from to bar to,
// minus the risk-free return over the same span. Bars not in a position grow
// by the risk-free rate or not at all, depending on the cash policy.
func (e *ExcessReturns) ExcessReturn(from, to int) num.Num {
	f := e.s.Factory()
	if to <= from {
		return f.Zero()
	}
	growth := f.One()
	for i := from + 1; i <= to; i++ {
		switch {
		case e.invested[i]:
			growth = growth.Times(e.cash.Value(i).DividedBy(e.cash.Value(i - 1)))
		case e.policy == CashEarnsRiskFree:
			growth = growth.Times(f.One().Plus(e.RiskFreeReturn(i-1, i)))
		}
	}
	return growth.Minus(f.One()).Minus(e.RiskFreeReturn(from, to))
}
