package trading

import (
	"fmt"

	"trading-analytics/internal/num"
)

// PositionState is where a position is in its lifecycle.
type PositionState int

const (
	Empty PositionState = iota
	Opened
	Closed
)

func (s PositionState) String() string {
	switch s {
	case Opened:
		return "OPENED"
	case Closed:
		return "CLOSED"
	default:
		return "EMPTY"
	}
}

// Position is an entry trade plus an optional exit trade of the opposite
// side.
type Position struct {
	Entry *Trade
	Exit  *Trade

	startingType TradeType
	txCost       CostModel
	holdingCost  CostModel
}

// NewPosition returns an empty position that will enter on startingType.
// Nil cost models mean zero cost.
func NewPosition(startingType TradeType, tx, holding CostModel) *Position {
	if tx == nil {
		tx = ZeroCost{}
	}
	if holding == nil {
		holding = ZeroCost{}
	}
	return &Position{startingType: startingType, txCost: tx, holdingCost: holding}
}

// NewClosedPosition builds a closed position from an existing entry/exit
// pair.
func NewClosedPosition(entry, exit Trade, tx, holding CostModel) (*Position, error) {
	if entry.Type == exit.Type {
		return nil, fmt.Errorf("position %s@%d/%s@%d: %w", entry.Type, entry.Index, exit.Type, exit.Index, ErrSameSide)
	}
	if exit.Index < entry.Index {
		return nil, fmt.Errorf("position exit %d < entry %d: %w", exit.Index, entry.Index, ErrExitBeforeEntry)
	}
	p := NewPosition(entry.Type, tx, holding)
	p.Entry, p.Exit = &entry, &exit
	return p, nil
}

func (p *Position) State() PositionState {
	switch {
	case p.Entry == nil:
		return Empty
	case p.Exit == nil:
		return Opened
	default:
		return Closed
	}
}

func (p *Position) IsNew() bool    { return p.State() == Empty }
func (p *Position) IsOpened() bool { return p.State() == Opened }
func (p *Position) IsClosed() bool { return p.State() == Closed }

func (p *Position) StartingType() TradeType          { return p.startingType }
func (p *Position) TransactionCostModel() CostModel { return p.txCost }
func (p *Position) HoldingCostModel() CostModel     { return p.holdingCost }

// Enter opens the position.
func (p *Position) Enter(index int, price, amount num.Num) (Trade, error) {
	if !p.IsNew() {
		return Trade{}, fmt.Errorf("enter at %d: %w", index, ErrPositionOpen)
	}
	t := NewTrade(index, p.startingType, price, amount, p.txCost)
	p.Entry = &t
	return t, nil
}

// Close exits an opened position with the complementary side.
func (p *Position) Close(index int, price, amount num.Num) (Trade, error) {
	switch p.State() {
	case Empty:
		return Trade{}, fmt.Errorf("exit at %d: %w", index, ErrNoOpenPosition)
	case Closed:
		return Trade{}, fmt.Errorf("exit at %d: %w", index, ErrPositionClosed)
	}
	if index < p.Entry.Index {
		return Trade{}, fmt.Errorf("exit at %d, entry at %d: %w", index, p.Entry.Index, ErrExitBeforeEntry)
	}
	t := NewTrade(index, p.startingType.Complement(), price, amount, p.txCost)
	p.Exit = &t
	return t, nil
}

// Operate enters an empty position or exits an opened one.
func (p *Position) Operate(index int, price, amount num.Num) (Trade, error) {
	if p.IsNew() {
		return p.Enter(index, price, amount)
	}
	return p.Close(index, price, amount)
}

// Profit is the net profit of a closed position, zero while open.
func (p *Position) Profit() num.Num {
	if !p.IsClosed() {
		return p.zero()
	}
	return p.GrossProfit(p.Exit.Price).Minus(p.PositionCost(p.Exit.Index))
}

// ProfitAt is the net profit if the position were valued at finalPrice on
// bar finalIndex.
func (p *Position) ProfitAt(finalIndex int, finalPrice num.Num) num.Num {
	if p.IsNew() {
		return p.zero()
	}
	return p.GrossProfit(finalPrice).Minus(p.PositionCost(finalIndex))
}

// GrossProfit is the profit before costs. Open positions are valued at
// finalPrice; closed positions use their exit. Short positions profit when
// the price falls.
func (p *Position) GrossProfit(finalPrice num.Num) num.Num {
	if p.IsNew() {
		return p.zero()
	}
	var gross num.Num
	if p.IsOpened() {
		gross = p.Entry.Amount.Times(finalPrice).Minus(p.Entry.Value())
	} else {
		gross = p.Exit.Value().Minus(p.Entry.Value())
	}
	if p.Entry.IsSell() {
		gross = gross.Neg()
	}
	return gross
}

// GrossReturn is the price ratio of a closed position (1 means flat), zero
// while open.
func (p *Position) GrossReturn() num.Num {
	if !p.IsClosed() {
		return p.zero()
	}
	return p.GrossReturnBetween(p.Entry.Price, p.Exit.Price)
}

// GrossReturnBetween is exit/entry for longs and entry/exit for shorts.
func (p *Position) GrossReturnBetween(entryPrice, exitPrice num.Num) num.Num {
	if p.startingType == Sell {
		return entryPrice.DividedBy(exitPrice)
	}
	return exitPrice.DividedBy(entryPrice)
}

// PositionCost is transaction plus holding cost up to finalIndex.
func (p *Position) PositionCost(finalIndex int) num.Num {
	if p.IsNew() {
		return p.zero()
	}
	return p.txCost.PositionCost(p, finalIndex).Plus(p.HoldingCost(finalIndex))
}

// HoldingCost is the holding cost accrued up to finalIndex.
func (p *Position) HoldingCost(finalIndex int) num.Num {
	if p.IsNew() {
		return p.zero()
	}
	return p.holdingCost.PositionCost(p, finalIndex)
}

func (p *Position) HasProfit() bool { return p.Profit().IsPositive() }
func (p *Position) HasLoss() bool   { return p.Profit().IsNegative() }

func (p *Position) zero() num.Num {
	if p.Entry != nil {
		return factoryOf(p.Entry.Price).Zero()
	}
	return num.DoubleFactory().Zero()
}

func (p *Position) String() string {
	return fmt.Sprintf("Position{state=%s entry=%v exit=%v}", p.State(), p.Entry, p.Exit)
}
