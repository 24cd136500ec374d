package trading

import (
	"fmt"

	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
)

// Record is the read side of a trading history consumed by analysis.
type Record interface {
	StartingType() TradeType
	// Positions returns the closed positions in chronological order.
	Positions() []*Position
	// CurrentPosition is the open (or empty) position being built.
	CurrentPosition() *Position
	// OpenPositions returns every open position. Multi-lot records return
	// one position per lot.
	OpenPositions() []*Position
	Trades() []Trade
	PositionCount() int
	LastEntry() (Trade, bool)
	LastExit() (Trade, bool)
	TransactionCostModel() CostModel
	HoldingCostModel() CostModel
	// StartIndex and EndIndex bound the evaluated range on s.
	StartIndex(s *series.BarSeries) int
	EndIndex(s *series.BarSeries) int
}

// window optionally restricts a record to a sub-range of the series.
type window struct {
	start, end int
	bounded    bool
}

// SetRange restricts evaluation to bars start..end.
func (w *window) SetRange(start, end int) {
	w.start, w.end, w.bounded = start, end, true
}

func (w *window) StartIndex(s *series.BarSeries) int {
	if w.bounded {
		return max(w.start, s.BeginIndex())
	}
	return s.BeginIndex()
}

func (w *window) EndIndex(s *series.BarSeries) int {
	if w.bounded {
		return min(w.end, s.EndIndex())
	}
	return s.EndIndex()
}

// IsNil reports whether r is nil, including a nil record pointer held in a
// non-nil interface.
func IsNil(r Record) bool {
	switch v := r.(type) {
	case nil:
		return true
	case *TradingRecord:
		return v == nil
	case *LotRecord:
		return v == nil
	}
	return false
}

// TradingRecord is the single-position-at-a-time history of one strategy
// run: closed positions plus one current position that is empty or open.
type TradingRecord struct {
	window

	name         string
	startingType TradeType
	txCost       CostModel
	holdingCost  CostModel

	positions []*Position
	current   *Position
	trades    []Trade
}

// NewTradingRecord creates a record whose positions enter on startingType.
// Nil cost models mean zero cost.
func NewTradingRecord(name string, startingType TradeType, tx, holding CostModel) *TradingRecord {
	if tx == nil {
		tx = ZeroCost{}
	}
	if holding == nil {
		holding = ZeroCost{}
	}
	return &TradingRecord{
		name:         name,
		startingType: startingType,
		txCost:       tx,
		holdingCost:  holding,
		current:      NewPosition(startingType, tx, holding),
	}
}

// RecordOf wraps a single position in a record with the position's cost
// models. An empty position yields an empty record.
func RecordOf(p *Position) *TradingRecord {
	r := NewTradingRecord("position", p.StartingType(), p.TransactionCostModel(), p.HoldingCostModel())
	if p.Entry != nil {
		r.trades = append(r.trades, *p.Entry)
	}
	switch {
	case p.IsClosed():
		r.trades = append(r.trades, *p.Exit)
		r.positions = append(r.positions, p)
	case p.IsOpened():
		r.current = p
	}
	return r
}

func (r *TradingRecord) Name() string                     { return r.name }
func (r *TradingRecord) StartingType() TradeType          { return r.startingType }
func (r *TradingRecord) TransactionCostModel() CostModel { return r.txCost }
func (r *TradingRecord) HoldingCostModel() CostModel     { return r.holdingCost }
func (r *TradingRecord) CurrentPosition() *Position       { return r.current }
func (r *TradingRecord) PositionCount() int               { return len(r.positions) }

// IsClosed reports whether no position is currently open.
func (r *TradingRecord) IsClosed() bool { return !r.current.IsOpened() }

func (r *TradingRecord) Positions() []*Position {
	return append([]*Position(nil), r.positions...)
}

func (r *TradingRecord) OpenPositions() []*Position {
	if r.current.IsOpened() {
		return []*Position{r.current}
	}
	return nil
}

func (r *TradingRecord) Trades() []Trade {
	return append([]Trade(nil), r.trades...)
}

// Operate enters when no position is open and exits otherwise.
func (r *TradingRecord) Operate(index int, price, amount num.Num) error {
	if err := r.checkChronology(index); err != nil {
		return err
	}
	t, err := r.current.Operate(index, price, amount)
	if err != nil {
		return fmt.Errorf("record %q: %w", r.name, err)
	}
	r.trades = append(r.trades, t)
	if r.current.IsClosed() {
		r.positions = append(r.positions, r.current)
		r.current = NewPosition(r.startingType, r.txCost, r.holdingCost)
	}
	return nil
}

// Enter opens a new position. It fails when one is already open.
func (r *TradingRecord) Enter(index int, price, amount num.Num) error {
	if r.current.IsOpened() {
		return fmt.Errorf("record %q: enter at %d: %w", r.name, index, ErrPositionOpen)
	}
	return r.Operate(index, price, amount)
}

// Exit closes the open position. It fails when none is open.
func (r *TradingRecord) Exit(index int, price, amount num.Num) error {
	if !r.current.IsOpened() {
		return fmt.Errorf("record %q: exit at %d: %w", r.name, index, ErrNoOpenPosition)
	}
	return r.Operate(index, price, amount)
}

func (r *TradingRecord) LastTrade() (Trade, bool) {
	if len(r.trades) == 0 {
		return Trade{}, false
	}
	return r.trades[len(r.trades)-1], true
}

func (r *TradingRecord) LastEntry() (Trade, bool) { return lastOf(r.trades, r.startingType) }
func (r *TradingRecord) LastExit() (Trade, bool) {
	return lastOf(r.trades, r.startingType.Complement())
}

func (r *TradingRecord) checkChronology(index int) error {
	if t, ok := r.LastTrade(); ok && index < t.Index {
		return fmt.Errorf("record %q: trade at %d after trade at %d: %w", r.name, index, t.Index, ErrNonChronological)
	}
	return nil
}

func lastOf(trades []Trade, typ TradeType) (Trade, bool) {
	for i := len(trades) - 1; i >= 0; i-- {
		if trades[i].Type == typ {
			return trades[i], true
		}
	}
	return Trade{}, false
}

var (
	_ Record = (*TradingRecord)(nil)
	_ Record = (*LotRecord)(nil)
)
