package strategy

import (
	"trading-analytics/internal/indicator"
	"trading-analytics/internal/num"
	"trading-analytics/internal/trading"
)

// Rule is a trading condition evaluated at a bar index against the record
// built so far.
type Rule interface {
	IsSatisfied(index int, record trading.Record) bool
}

// RuleFunc adapts a plain function to Rule.
type RuleFunc func(index int, record trading.Record) bool

func (f RuleFunc) IsSatisfied(index int, record trading.Record) bool { return f(index, record) }

// CrossedUp is satisfied when a moves from at or below b to above b.
func CrossedUp(a, b indicator.Num) Rule {
	return RuleFunc(func(i int, _ trading.Record) bool {
		if i < 1 {
			return false
		}
		return a.Value(i-1).IsLessThanOrEqual(b.Value(i-1)) && a.Value(i).IsGreaterThan(b.Value(i))
	})
}

// CrossedDown is satisfied when a moves from at or above b to below b.
func CrossedDown(a, b indicator.Num) Rule {
	return RuleFunc(func(i int, _ trading.Record) bool {
		if i < 1 {
			return false
		}
		return a.Value(i-1).IsGreaterThanOrEqual(b.Value(i-1)) && a.Value(i).IsLessThan(b.Value(i))
	})
}

// Over is satisfied when a is strictly above b.
func Over(a, b indicator.Num) Rule {
	return RuleFunc(func(i int, _ trading.Record) bool { return a.Value(i).IsGreaterThan(b.Value(i)) })
}

// Under is satisfied when a is strictly below b.
func Under(a, b indicator.Num) Rule {
	return RuleFunc(func(i int, _ trading.Record) bool { return a.Value(i).IsLessThan(b.Value(i)) })
}

// StopLoss is satisfied when the open position has lost at least pct
// percent of its entry price at price(index).
func StopLoss(price indicator.Num, pct float64) Rule {
	return RuleFunc(func(i int, record trading.Record) bool {
		entry, ok := openEntry(record)
		if !ok {
			return false
		}
		return move(entry, price.Value(i)).IsLessThanOrEqual(entry.Price.Factory().NumOf(-pct / 100))
	})
}

// StopGain is satisfied when the open position has gained at least pct
// percent of its entry price at price(index).
func StopGain(price indicator.Num, pct float64) Rule {
	return RuleFunc(func(i int, record trading.Record) bool {
		entry, ok := openEntry(record)
		if !ok {
			return false
		}
		return move(entry, price.Value(i)).IsGreaterThanOrEqual(entry.Price.Factory().NumOf(pct / 100))
	})
}

func openEntry(record trading.Record) (trading.Trade, bool) {
	if trading.IsNil(record) {
		return trading.Trade{}, false
	}
	cur := record.CurrentPosition()
	if cur == nil || !cur.IsOpened() {
		return trading.Trade{}, false
	}
	return *cur.Entry, true
}

// move is the signed fractional price move in the position's favour.
func move(entry trading.Trade, price num.Num) num.Num {
	change := price.Minus(entry.Price).DividedBy(entry.Price)
	if entry.IsSell() {
		return change.Neg()
	}
	return change
}

// And is satisfied when every rule is.
func And(rules ...Rule) Rule {
	return RuleFunc(func(i int, record trading.Record) bool {
		for _, r := range rules {
			if !r.IsSatisfied(i, record) {
				return false
			}
		}
		return true
	})
}

// Or is satisfied when any rule is.
func Or(rules ...Rule) Rule {
	return RuleFunc(func(i int, record trading.Record) bool {
		for _, r := range rules {
			if r.IsSatisfied(i, record) {
				return true
			}
		}
		return false
	})
}

func Not(r Rule) Rule {
	return RuleFunc(func(i int, record trading.Record) bool { return !r.IsSatisfied(i, record) })
}
