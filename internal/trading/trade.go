// Package trading models trades, positions and trading records.
//
// A Position moves EMPTY -> OPENED -> CLOSED; invalid transitions return
// errors wrapping the sentinels in errors.go. A TradingRecord holds the
// closed positions of one strategy run plus the current position, and
// enforces BUY/SELL alternation from its starting side.
package trading

import (
	"fmt"
	"strings"

	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
)

// TradeType is the side of a trade.
type TradeType int

const (
	Buy TradeType = iota
	Sell
)

// Complement returns the opposite side.
func (t TradeType) Complement() TradeType {
	if t == Buy {
		return Sell
	}
	return Buy
}

func (t TradeType) String() string {
	if t == Buy {
		return "BUY"
	}
	return "SELL"
}

// ParseTradeType accepts "buy"/"long" and "sell"/"short".
func ParseTradeType(s string) (TradeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "long":
		return Buy, nil
	case "sell", "short":
		return Sell, nil
	default:
		return Buy, fmt.Errorf("trading: unknown trade type %q", s)
	}
}

// Trade is a single execution.
type Trade struct {
	Index  int
	Type   TradeType
	Price  num.Num // price per asset, NaN when the bar close should be used
	Amount num.Num
	Cost   num.Num // transaction cost charged at execution
	// NetPrice is Price adjusted by the per-asset cost: higher for buys,
	// lower for sells.
	NetPrice num.Num
}

// NewTrade builds a trade and charges it with model.
func NewTrade(index int, typ TradeType, price, amount num.Num, model CostModel) Trade {
	if model == nil {
		model = ZeroCost{}
	}
	cost := model.TradeCost(price, amount)
	perAsset := cost.DividedBy(amount)
	if cost.IsZero() {
		perAsset = cost
	}
	net := price.Plus(perAsset)
	if typ == Sell {
		net = price.Minus(perAsset)
	}
	return Trade{Index: index, Type: typ, Price: price, Amount: amount, Cost: cost, NetPrice: net}
}

// BuyAt is a buy at the close of bar index.
func BuyAt(s *series.BarSeries, index int, amount num.Num, model CostModel) Trade {
	return NewTrade(index, Buy, s.Bar(index).Close, amount, model)
}

// SellAt is a sell at the close of bar index.
func SellAt(s *series.BarSeries, index int, amount num.Num, model CostModel) Trade {
	return NewTrade(index, Sell, s.Bar(index).Close, amount, model)
}

func (t Trade) IsBuy() bool  { return t.Type == Buy }
func (t Trade) IsSell() bool { return t.Type == Sell }

// Value is price times amount.
func (t Trade) Value() num.Num { return t.Price.Times(t.Amount) }

// PriceAt returns the trade price, falling back to the bar close when the
// price is undefined.
func (t Trade) PriceAt(s *series.BarSeries) num.Num {
	if num.IsNaN(t.Price) {
		return s.Bar(t.Index).Close
	}
	return t.Price
}

func (t Trade) String() string {
	return fmt.Sprintf("%s@%d price=%s amount=%s", t.Type, t.Index, t.Price, t.Amount)
}
