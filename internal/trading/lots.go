package trading

import (
	"fmt"

	"trading-analytics/internal/num"
)

// LotRecord is a trading record that can hold several open lots on the
// same side. Exits close lots first-in first-out, splitting a lot when the
// exit amount only covers part of it.
type LotRecord struct {
	window

	name         string
	startingType TradeType
	txCost       CostModel
	holdingCost  CostModel

	lots   []Trade // open entry trades, oldest first
	closed []*Position
	trades []Trade
}

// NewLotRecord creates an empty multi-lot record.
func NewLotRecord(name string, startingType TradeType, tx, holding CostModel) *LotRecord {
	if tx == nil {
		tx = ZeroCost{}
	}
	if holding == nil {
		holding = ZeroCost{}
	}
	return &LotRecord{name: name, startingType: startingType, txCost: tx, holdingCost: holding}
}

func (r *LotRecord) Name() string                     { return r.name }
func (r *LotRecord) StartingType() TradeType          { return r.startingType }
func (r *LotRecord) TransactionCostModel() CostModel { return r.txCost }
func (r *LotRecord) HoldingCostModel() CostModel     { return r.holdingCost }
func (r *LotRecord) PositionCount() int               { return len(r.closed) }
func (r *LotRecord) LotCount() int                    { return len(r.lots) }

func (r *LotRecord) Positions() []*Position { return append([]*Position(nil), r.closed...) }
func (r *LotRecord) Trades() []Trade        { return append([]Trade(nil), r.trades...) }

func (r *LotRecord) LastEntry() (Trade, bool) { return lastOf(r.trades, r.startingType) }
func (r *LotRecord) LastExit() (Trade, bool) {
	return lastOf(r.trades, r.startingType.Complement())
}

// Enter opens a new lot.
func (r *LotRecord) Enter(index int, price, amount num.Num) error {
	if err := r.check(index, amount); err != nil {
		return err
	}
	t := NewTrade(index, r.startingType, price, amount, r.txCost)
	r.lots = append(r.lots, t)
	r.trades = append(r.trades, t)
	return nil
}

// Exit closes amount across the open lots, oldest first. A nil or NaN
// amount closes everything.
func (r *LotRecord) Exit(index int, price, amount num.Num) error {
	if len(r.lots) == 0 {
		return fmt.Errorf("lot record %q: exit at %d: %w", r.name, index, ErrNoOpenPosition)
	}
	open := r.openAmount()
	if num.IsNaN(amount) {
		amount = open
	}
	if err := r.check(index, amount); err != nil {
		return err
	}
	if amount.IsGreaterThan(open) {
		return fmt.Errorf("lot record %q: exit %s exceeds open %s: %w", r.name, amount, open, ErrInvalidAmount)
	}
	for _, lot := range r.lots {
		if index < lot.Index {
			return fmt.Errorf("lot record %q: exit at %d, entry at %d: %w", r.name, index, lot.Index, ErrExitBeforeEntry)
		}
	}

	exit := NewTrade(index, r.startingType.Complement(), price, amount, r.txCost)
	r.trades = append(r.trades, exit)

	remaining := amount
	for remaining.IsPositive() && len(r.lots) > 0 {
		lot := r.lots[0]
		part := remaining.Min(lot.Amount)
		entryPart := portion(lot, part)
		exitPart := portion(exit, part)
		p := NewPosition(r.startingType, r.txCost, r.holdingCost)
		p.Entry, p.Exit = &entryPart, &exitPart
		r.closed = append(r.closed, p)

		if part.IsEqual(lot.Amount) {
			r.lots = r.lots[1:]
		} else {
			rest := portion(lot, lot.Amount.Minus(part))
			r.lots[0] = rest
		}
		remaining = remaining.Minus(part)
	}
	return nil
}

// OpenPositions returns one open position per lot.
func (r *LotRecord) OpenPositions() []*Position {
	out := make([]*Position, 0, len(r.lots))
	for _, lot := range r.lots {
		entry := lot
		p := NewPosition(r.startingType, r.txCost, r.holdingCost)
		p.Entry = &entry
		out = append(out, p)
	}
	return out
}

// CurrentPosition aggregates the open lots into one position: the earliest
// entry index, the amount-weighted average price, the total amount and the
// summed entry costs. It is empty when no lot is open.
func (r *LotRecord) CurrentPosition() *Position {
	p := NewPosition(r.startingType, r.txCost, r.holdingCost)
	if len(r.lots) == 0 {
		return p
	}
	first := r.lots[0]
	amount, notional, cost := first.Amount, first.Value(), first.Cost
	index := first.Index
	for _, lot := range r.lots[1:] {
		amount = amount.Plus(lot.Amount)
		notional = notional.Plus(lot.Value())
		cost = cost.Plus(lot.Cost)
		index = min(index, lot.Index)
	}
	price := notional.DividedBy(amount)
	perAsset := cost.DividedBy(amount)
	net := price.Plus(perAsset)
	if r.startingType == Sell {
		net = price.Minus(perAsset)
	}
	p.Entry = &Trade{Index: index, Type: r.startingType, Price: price, Amount: amount, Cost: cost, NetPrice: net}
	return p
}

func (r *LotRecord) openAmount() num.Num {
	total := r.lots[0].Amount
	for _, lot := range r.lots[1:] {
		total = total.Plus(lot.Amount)
	}
	return total
}

func (r *LotRecord) check(index int, amount num.Num) error {
	if num.IsNaN(amount) || !amount.IsPositive() {
		return fmt.Errorf("lot record %q: trade at %d: %w", r.name, index, ErrInvalidAmount)
	}
	if len(r.trades) > 0 && index < r.trades[len(r.trades)-1].Index {
		return fmt.Errorf("lot record %q: trade at %d: %w", r.name, index, ErrNonChronological)
	}
	return nil
}

// portion scales t down to part of its amount, splitting the cost pro rata.
func portion(t Trade, part num.Num) Trade {
	out := t
	out.Amount = part
	if !t.Cost.IsZero() {
		out.Cost = t.Cost.Times(part).DividedBy(t.Amount)
	}
	return out
}
