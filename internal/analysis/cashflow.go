package analysis

import (
	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
	"trading-analytics/internal/trading"
)

// CashFlowOptions configures equity curve construction.
type CashFlowOptions struct {
	Mode          EquityCurveMode
	OpenPositions OpenPositionHandling
	// Initial is the equity at the first bar; nil means 1.
	Initial num.Num
	// FinalIndex is the evaluation horizon; a negative value means the
	// record's end index on the series.
	FinalIndex int
}

// DefaultCashFlowOptions marks open positions to market from a basis of 1
// up to the record's end.
func DefaultCashFlowOptions() CashFlowOptions {
	return CashFlowOptions{Mode: MarkToMarket, OpenPositions: IncludeOpen, FinalIndex: -1}
}

// CashFlow is the equity curve implied by a trading record: one value per
// bar index, starting from the initial basis. Before an entry and after an
// exit the curve is flat; consecutive positions chain so each starts from
// the equity the previous one ended with.
type CashFlow struct {
	s      *series.BarSeries
	values []num.Num
	mode   EquityCurveMode
}

// NewCashFlow builds the equity curve of record over s.
func NewCashFlow(s *series.BarSeries, record trading.Record, opts CashFlowOptions) *CashFlow {
	cf := newCashFlow(s, opts)
	if s.IsEmpty() {
		return cf
	}
	final := opts.FinalIndex
	if final < 0 {
		final = s.EndIndex()
		if !trading.IsNil(record) {
			final = record.EndIndex(s)
		}
	}
	for _, p := range cashFlowPositions(record, final, opts.Mode, opts.OpenPositions) {
		cf.addPosition(p, final)
	}
	cf.fillTo(s.EndIndex())
	return cf
}

// NewPositionCashFlow builds the equity curve of a single position. An open
// position is marked to market unless mode is Realized.
func NewPositionCashFlow(s *series.BarSeries, p *trading.Position, mode EquityCurveMode) *CashFlow {
	cf := newCashFlow(s, CashFlowOptions{Mode: mode})
	if s.IsEmpty() {
		return cf
	}
	if p != nil && !p.IsNew() && (p.IsClosed() || mode == MarkToMarket) {
		cf.addPosition(p, s.EndIndex())
	}
	cf.fillTo(s.EndIndex())
	return cf
}

func newCashFlow(s *series.BarSeries, opts CashFlowOptions) *CashFlow {
	cf := &CashFlow{s: s, mode: opts.Mode}
	if s.IsEmpty() {
		return cf
	}
	initial := opts.Initial
	if initial == nil {
		initial = s.Factory().One()
	}
	cf.values = append(make([]num.Num, 0, s.BarCount()), initial)
	return cf
}

func (cf *CashFlow) Series() *series.BarSeries { return cf.s }
func (cf *CashFlow) UnstableBars() int         { return 0 }
func (cf *CashFlow) Mode() EquityCurveMode     { return cf.mode }

// Size is the number of values, one per bar.
func (cf *CashFlow) Size() int { return len(cf.values) }

// Value is the equity at index; it panics with *series.IndexError when index
// is outside the series.
func (cf *CashFlow) Value(index int) num.Num {
	if err := cf.s.CheckIndex(index); err != nil {
		panic(err)
	}
	return cf.values[index]
}

// Values returns a copy of the curve.
func (cf *CashFlow) Values() []num.Num { return append([]num.Num(nil), cf.values...) }

// addPosition appends the segment of p from its entry up to
// min(exit, final).
func (cf *CashFlow) addPosition(p *trading.Position, final int) {
	entry := p.Entry
	end := min(final, cf.s.EndIndex())
	if p.Exit != nil {
		end = min(end, p.Exit.Index)
	}
	if entry.Index > end {
		return
	}
	cf.fillTo(entry.Index)
	if entry.Index < len(cf.values)-1 {
		cf.continuePosition(p, end)
		return
	}
	basis := cf.values[entry.Index]
	if !basis.IsPositive() {
		return
	}
	periods := end - entry.Index
	if periods == 0 {
		return
	}

	f := cf.s.Factory()
	isLong := entry.IsBuy()
	entryPrice := entry.NetPrice
	holding := p.HoldingCost(end)

	if cf.mode == Realized {
		for i := entry.Index + 1; i < end; i++ {
			cf.values = append(cf.values, basis)
		}
		if p.Exit != nil && end >= p.Exit.Index {
			exitPrice := addCost(p.Exit.NetPrice, holding, isLong)
			cf.values = append(cf.values, basis.Times(ratio(isLong, entryPrice, exitPrice)))
		} else {
			cf.values = append(cf.values, basis)
		}
		return
	}

	avgCost := holding.DividedBy(f.NumOfInt(periods))
	for i := entry.Index + 1; i < end; i++ {
		price := addCost(cf.s.Bar(i).Close, avgCost, isLong)
		cf.values = append(cf.values, basis.Times(ratio(isLong, entryPrice, price)))
	}
	exitPrice := cf.s.Bar(end).Close
	if p.Exit != nil && end == p.Exit.Index {
		exitPrice = p.Exit.NetPrice
	}
	cf.values = append(cf.values, basis.Times(ratio(isLong, entryPrice, addCost(exitPrice, avgCost, isLong))))
}

// continuePosition extends the curve for a position whose entry lies inside
// an already written segment, as with the open remainder of a partially
// exited lot. The held amount is re-marked from the last written equity at
// that bar's close.
func (cf *CashFlow) continuePosition(p *trading.Position, end int) {
	last := len(cf.values) - 1
	if end <= last {
		return
	}
	basis := cf.values[last]
	if !basis.IsPositive() {
		return
	}
	f := cf.s.Factory()
	isLong := p.Entry.IsBuy()
	ref := cf.s.Bar(last).Close
	avgCost := p.HoldingCost(end).DividedBy(f.NumOfInt(end - p.Entry.Index))
	exited := p.Exit != nil && end == p.Exit.Index

	for i := last + 1; i <= end; i++ {
		price := cf.s.Bar(i).Close
		if i == end && exited {
			price = p.Exit.NetPrice
		}
		if cf.mode == Realized && !(i == end && exited) {
			cf.values = append(cf.values, basis)
			continue
		}
		cf.values = append(cf.values, basis.Times(ratio(isLong, ref, addCost(price, avgCost, isLong))))
	}
}

// fillTo extends the curve flat up to and including index.
func (cf *CashFlow) fillTo(index int) {
	if len(cf.values) == 0 {
		return
	}
	last := cf.values[len(cf.values)-1]
	for len(cf.values) <= index {
		cf.values = append(cf.values, last)
	}
}

// ratio is price/entry for longs and entry/price for shorts.
func ratio(isLong bool, entryPrice, price num.Num) num.Num {
	if isLong {
		return price.DividedBy(entryPrice)
	}
	return entryPrice.DividedBy(price)
}

// addCost makes a price less favourable by cost: lower for longs, higher for
// shorts.
func addCost(price, cost num.Num, isLong bool) num.Num {
	if isLong {
		return price.Minus(cost)
	}
	return price.Plus(cost)
}
