package analysis

import (
	"trading-analytics/internal/num"
	"trading-analytics/internal/trading"
)

// cashFlowPositions returns the positions contributing to the equity curve
// up to final: closed positions entered by final, with overlapping ones (lot
// splits sharing an exit) merged, followed by the current open position
// when open positions are included.
func cashFlowPositions(record trading.Record, final int, mode EquityCurveMode, h OpenPositionHandling) []*trading.Position {
	if trading.IsNil(record) {
		return nil
	}
	var closed []*trading.Position
	for _, p := range record.Positions() {
		if p != nil && p.Entry != nil && p.Entry.Index <= final {
			closed = append(closed, p)
		}
	}
	out := mergeOverlapping(closed)
	if effectiveHandling(mode, h) == IncludeOpen {
		if cur := record.CurrentPosition(); cur != nil && cur.IsOpened() && cur.Entry.Index <= final {
			out = append(out, cur)
		}
	}
	return out
}

// mergeOverlapping folds positions whose entry falls before the previous
// position's exit into one amount-weighted position.
func mergeOverlapping(ps []*trading.Position) []*trading.Position {
	var out []*trading.Position
	var group []*trading.Position
	groupEnd := -1
	flush := func() {
		switch len(group) {
		case 0:
		case 1:
			out = append(out, group[0])
		default:
			out = append(out, aggregate(group))
		}
		group = nil
	}
	for _, p := range ps {
		if len(group) > 0 && p.Entry.Index < groupEnd {
			group = append(group, p)
			groupEnd = max(groupEnd, exitIndex(p))
			continue
		}
		flush()
		group = append(group, p)
		groupEnd = exitIndex(p)
	}
	flush()
	return out
}

func exitIndex(p *trading.Position) int {
	if p.Exit == nil {
		return int(^uint(0) >> 1)
	}
	return p.Exit.Index
}

// aggregate combines closed positions into one: earliest entry, latest exit,
// amount-weighted prices and summed costs.
func aggregate(group []*trading.Position) *trading.Position {
	first := group[0]
	entries := make([]trading.Trade, 0, len(group))
	exits := make([]trading.Trade, 0, len(group))
	for _, p := range group {
		entries = append(entries, *p.Entry)
		exits = append(exits, *p.Exit)
	}
	entry := combine(entries, false)
	exit := combine(exits, true)
	merged := trading.NewPosition(first.StartingType(), first.TransactionCostModel(), first.HoldingCostModel())
	merged.Entry, merged.Exit = &entry, &exit
	return merged
}

func combine(trades []trading.Trade, latest bool) trading.Trade {
	out := trades[0]
	amount := out.Amount
	notional := out.Price.Times(out.Amount)
	netNotional := out.NetPrice.Times(out.Amount)
	cost := out.Cost
	for _, t := range trades[1:] {
		amount = amount.Plus(t.Amount)
		notional = notional.Plus(t.Price.Times(t.Amount))
		netNotional = netNotional.Plus(t.NetPrice.Times(t.Amount))
		cost = cost.Plus(t.Cost)
		if latest {
			out.Index = max(out.Index, t.Index)
		} else {
			out.Index = min(out.Index, t.Index)
		}
	}
	out.Amount = amount
	out.Cost = cost
	out.Price = weighted(notional, amount)
	out.NetPrice = weighted(netNotional, amount)
	return out
}

func weighted(total, amount num.Num) num.Num {
	return total.DividedBy(amount)
}

// positionsForSampling returns the positions used by trade-based sampling.
// Closed positions exited by final are always included. When open positions
// are included, positions still open at final are marked to market, and
// multi-lot open exposure is expanded into one position per lot if
// expandLots is set.
func positionsForSampling(record trading.Record, final int, h OpenPositionHandling, expandLots bool) []*trading.Position {
	if trading.IsNil(record) {
		return nil
	}
	var out []*trading.Position
	for _, p := range record.Positions() {
		if p == nil || p.Entry == nil || p.Entry.Index > final {
			continue
		}
		if h == IgnoreOpen && (p.Exit == nil || p.Exit.Index > final) {
			continue
		}
		out = append(out, p)
	}
	if h == IgnoreOpen {
		return out
	}
	open := record.OpenPositions()
	if !expandLots {
		open = nil
		if cur := record.CurrentPosition(); cur != nil && cur.IsOpened() {
			open = []*trading.Position{cur}
		}
	}
	for _, p := range open {
		if p != nil && p.Entry != nil && p.Entry.Index <= final {
			out = append(out, p)
		}
	}
	return out
}
