// Package strategy drives a bar series through entry and exit rules and
// records the resulting trades.
//
// A Strategy pairs an entry Rule with an exit Rule. The Runner walks the
// series bar by bar, fills at the close and emits a Signal for every trade.
package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"trading-analytics/internal/indicator"
	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
	"trading-analytics/internal/trading"
)

// Signal describes one trade taken by the runner.
type Signal struct {
	StrategyName string  `json:"strategy_name"`
	Action       Action  `json:"action"`
	Index        int     `json:"index"`
	Price        float64 `json:"price"`
	Reason       string  `json:"reason"`
}

// Action represents a trading action.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

func actionOf(t trading.TradeType) Action {
	if t == trading.Sell {
		return ActionSell
	}
	return ActionBuy
}

// Strategy is a named pair of entry and exit rules. Rules are not consulted
// before UnstableBars.
type Strategy struct {
	Name         string
	Entry        Rule
	Exit         Rule
	StartingType trading.TradeType
	UnstableBars int
	// Indicators the rules read, for cache statistics.
	Indicators []indicator.Num
}

// ShouldEnter reports whether a position should be opened at index.
func (s *Strategy) ShouldEnter(index int, record trading.Record) bool {
	if index < s.UnstableBars || s.Entry == nil {
		return false
	}
	if cur := record.CurrentPosition(); cur != nil && cur.IsOpened() {
		return false
	}
	return s.Entry.IsSatisfied(index, record)
}

// ShouldExit reports whether the open position should be closed at index.
func (s *Strategy) ShouldExit(index int, record trading.Record) bool {
	if index < s.UnstableBars || s.Exit == nil {
		return false
	}
	cur := record.CurrentPosition()
	if cur == nil || !cur.IsOpened() {
		return false
	}
	return s.Exit.IsSatisfied(index, record)
}

// Runner executes strategies over a series.
type Runner struct {
	// Amount traded per entry; nil means one unit.
	Amount      num.Num
	TxCost      trading.CostModel
	HoldingCost trading.CostModel
	// Signals receives every trade. Sends never block; a full channel drops
	// the signal.
	Signals chan<- Signal
	Logger  *slog.Logger
}

// Run walks bars begin..end, entering and exiting at the close. It stops
// early with ctx's error when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, s *series.BarSeries, strat *Strategy) (*trading.TradingRecord, error) {
	if strat == nil {
		return nil, fmt.Errorf("strategy: nil strategy")
	}
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	record := trading.NewTradingRecord(strat.Name, strat.StartingType, r.TxCost, r.HoldingCost)
	if s.IsEmpty() {
		return record, nil
	}
	amount := r.Amount
	if amount == nil {
		amount = s.Factory().One()
	}

	for i := s.BeginIndex(); i <= s.EndIndex(); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return record, fmt.Errorf("strategy %q: stopped at bar %d: %w", strat.Name, i, err)
			}
		}
		var reason string
		switch {
		case strat.ShouldEnter(i, record):
			reason = "entry rule"
		case strat.ShouldExit(i, record):
			reason = "exit rule"
		default:
			continue
		}
		price := s.Bar(i).Close
		if err := record.Operate(i, price, amount); err != nil {
			return record, fmt.Errorf("strategy %q: %w", strat.Name, err)
		}
		last, _ := record.LastTrade()
		sig := Signal{
			StrategyName: strat.Name,
			Action:       actionOf(last.Type),
			Index:        i,
			Price:        price.Float64(),
			Reason:       reason,
		}
		log.Debug("trade", "strategy", strat.Name, "action", sig.Action, "index", i, "price", sig.Price)
		r.emit(sig)
	}
	log.Info("strategy run complete",
		"strategy", strat.Name,
		"bars", s.BarCount(),
		"positions", record.PositionCount(),
		"open", !record.IsClosed(),
	)
	return record, nil
}

func (r *Runner) emit(sig Signal) {
	if r.Signals == nil {
		return
	}
	select {
	case r.Signals <- sig:
	default:
		// signal channel full, drop
	}
}
