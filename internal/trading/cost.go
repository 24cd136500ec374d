package trading

import (
	"fmt"

	"trading-analytics/internal/num"
)

// CostModel charges trades at execution time and positions over their
// holding period.
type CostModel interface {
	// TradeCost is the cost of trading amount at price.
	TradeCost(price, amount num.Num) num.Num
	// PositionCost is the total cost of p from entry up to finalIndex.
	PositionCost(p *Position, finalIndex int) num.Num
}

// ZeroCost never charges anything.
type ZeroCost struct{}

func (ZeroCost) TradeCost(price, _ num.Num) num.Num { return zeroLike(price) }

func (ZeroCost) PositionCost(p *Position, _ int) num.Num {
	if p == nil || p.Entry == nil {
		return num.DoubleFactory().Zero()
	}
	return zeroLike(p.Entry.Price)
}

// LinearTransactionCost charges Rate * notional + Fixed per trade.
type LinearTransactionCost struct {
	Rate  float64
	Fixed float64
}

// NewLinearTransactionCost validates the rate and fixed fee.
func NewLinearTransactionCost(rate, fixed float64) (LinearTransactionCost, error) {
	if rate < 0 || fixed < 0 {
		return LinearTransactionCost{}, fmt.Errorf("trading: transaction cost must be non-negative (rate=%g fixed=%g)", rate, fixed)
	}
	return LinearTransactionCost{Rate: rate, Fixed: fixed}, nil
}

func (m LinearTransactionCost) TradeCost(price, amount num.Num) num.Num {
	f := factoryOf(price)
	return price.Times(amount).Times(f.NumOf(m.Rate)).Plus(f.NumOf(m.Fixed))
}

// PositionCost sums the entry cost and, once the exit is reached, the exit
// cost.
func (m LinearTransactionCost) PositionCost(p *Position, finalIndex int) num.Num {
	if p == nil || p.Entry == nil {
		return num.DoubleFactory().Zero()
	}
	total := p.Entry.Cost
	if p.Exit != nil && p.Exit.Index <= finalIndex {
		total = total.Plus(p.Exit.Cost)
	}
	return total
}

// LinearBorrowingCost charges short positions Rate * entry value per bar
// held. Long positions are free.
type LinearBorrowingCost struct {
	Rate float64
}

func (LinearBorrowingCost) TradeCost(price, _ num.Num) num.Num { return zeroLike(price) }

func (m LinearBorrowingCost) PositionCost(p *Position, finalIndex int) num.Num {
	if p == nil || p.Entry == nil {
		return num.DoubleFactory().Zero()
	}
	f := factoryOf(p.Entry.Price)
	if p.Entry.IsBuy() {
		return f.Zero()
	}
	end := finalIndex
	if p.Exit != nil && p.Exit.Index < end {
		end = p.Exit.Index
	}
	bars := max(end-p.Entry.Index, 0)
	return p.Entry.Value().Times(f.NumOf(m.Rate)).Times(f.NumOfInt(bars))
}

func factoryOf(v num.Num) num.Factory {
	if v == nil {
		return num.DoubleFactory()
	}
	return v.Factory()
}

func zeroLike(v num.Num) num.Num { return factoryOf(v).Zero() }
