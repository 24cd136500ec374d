package criteria

import (
	"trading-analytics/internal/analysis"
	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
	"trading-analytics/internal/trading"
)

// GrossReturn compounds the price ratio of every closed position, before
// costs, in the configured representation.
type GrossReturn struct{ cfg Settings }

func NewGrossReturn(cfg Settings) (*GrossReturn, error) {
	return validated(cfg, func(c Settings) *GrossReturn { return &GrossReturn{cfg: c} })
}

func (*GrossReturn) Name() string { return "gross-return" }

func (c *GrossReturn) Calculate(s *series.BarSeries, record trading.Record) num.Num {
	if degenerate(s, record) {
		return zero(s)
	}
	total := s.Factory().One()
	for _, p := range record.Positions() {
		total = total.Times(p.GrossReturn())
	}
	return c.cfg.Representation.FromTotalReturn(total)
}

func (c *GrossReturn) CalculatePosition(s *series.BarSeries, p *trading.Position) num.Num {
	if s == nil || p == nil || !p.IsClosed() {
		return zero(s)
	}
	return c.cfg.Representation.FromTotalReturn(p.GrossReturn())
}

func (*GrossReturn) BetterThan(a, b num.Num) bool { return greater(a, b) }

// NetReturn is the growth of the equity curve over the evaluated range,
// after costs, in the configured representation.
type NetReturn struct{ cfg Settings }

func NewNetReturn(cfg Settings) (*NetReturn, error) {
	return validated(cfg, func(c Settings) *NetReturn { return &NetReturn{cfg: c} })
}

func (*NetReturn) Name() string { return "net-return" }

func (c *NetReturn) Calculate(s *series.BarSeries, record trading.Record) num.Num {
	if degenerate(s, record) {
		return zero(s)
	}
	values, from, to := equity(s, record, c.cfg)
	return c.cfg.Representation.FromTotalReturn(totalReturn(values, from, to))
}

func (c *NetReturn) CalculatePosition(s *series.BarSeries, p *trading.Position) num.Num {
	values, from, to, ok := positionEquity(s, p, c.cfg)
	if !ok {
		return zero(s)
	}
	return c.cfg.Representation.FromTotalReturn(totalReturn(values, from, to))
}

func (*NetReturn) BetterThan(a, b num.Num) bool { return greater(a, b) }

// NumberOfPositions counts closed positions. Fewer is better.
type NumberOfPositions struct{}

func (NumberOfPositions) Name() string { return "positions" }

func (NumberOfPositions) Calculate(s *series.BarSeries, record trading.Record) num.Num {
	if degenerate(s, record) {
		return zero(s)
	}
	return s.Factory().NumOfInt(record.PositionCount())
}

func (NumberOfPositions) CalculatePosition(s *series.BarSeries, p *trading.Position) num.Num {
	if s == nil || p == nil || !p.IsClosed() {
		return zero(s)
	}
	return s.Factory().One()
}

func (NumberOfPositions) BetterThan(a, b num.Num) bool { return less(a, b) }

// ProfitLoss sums net profit over closed positions and, when open positions
// are marked to market, the open position valued at the last close.
type ProfitLoss struct{ cfg Settings }

func NewProfitLoss(cfg Settings) (*ProfitLoss, error) {
	return validated(cfg, func(c Settings) *ProfitLoss { return &ProfitLoss{cfg: c} })
}

func (*ProfitLoss) Name() string { return "profit-loss" }

func (c *ProfitLoss) Calculate(s *series.BarSeries, record trading.Record) num.Num {
	if degenerate(s, record) {
		return zero(s)
	}
	total := s.Factory().Zero()
	for _, p := range record.Positions() {
		total = total.Plus(p.Profit())
	}
	if open := c.open(s, record); open != nil {
		end := record.EndIndex(s)
		total = total.Plus(open.ProfitAt(end, s.Bar(end).Close))
	}
	return total
}

func (c *ProfitLoss) CalculatePosition(s *series.BarSeries, p *trading.Position) num.Num {
	return viaRecord(c, s, p)
}

func (c *ProfitLoss) open(s *series.BarSeries, record trading.Record) *trading.Position {
	if c.cfg.openHandling() == analysis.IgnoreOpen {
		return nil
	}
	if cur := record.CurrentPosition(); cur != nil && cur.IsOpened() && cur.Entry.Index <= record.EndIndex(s) {
		return cur
	}
	return nil
}

func (*ProfitLoss) BetterThan(a, b num.Num) bool { return greater(a, b) }

// TransactionCost sums transaction and holding costs of every position up
// to the end of the evaluated range. Lower is better.
type TransactionCost struct{ cfg Settings }

func NewTransactionCost(cfg Settings) (*TransactionCost, error) {
	return validated(cfg, func(c Settings) *TransactionCost { return &TransactionCost{cfg: c} })
}

func (*TransactionCost) Name() string { return "transaction-cost" }

func (c *TransactionCost) Calculate(s *series.BarSeries, record trading.Record) num.Num {
	if degenerate(s, record) {
		return zero(s)
	}
	end := record.EndIndex(s)
	total := s.Factory().Zero()
	for _, p := range record.Positions() {
		total = total.Plus(p.PositionCost(end))
	}
	if cur := record.CurrentPosition(); cur != nil && cur.IsOpened() && c.cfg.openHandling() == analysis.IncludeOpen {
		total = total.Plus(cur.PositionCost(end))
	}
	return total
}

func (c *TransactionCost) CalculatePosition(s *series.BarSeries, p *trading.Position) num.Num {
	if s == nil || p == nil || p.IsNew() {
		return zero(s)
	}
	return p.PositionCost(s.EndIndex())
}

func (*TransactionCost) BetterThan(a, b num.Num) bool { return less(a, b) }
