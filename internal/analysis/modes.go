// Package analysis derives equity curves, returns and return samples from a
// trading record. Everything here is a pure function of the bar series and
// the record; nothing is cached across calls.
package analysis

import (
	"fmt"
	"strings"
)

// EquityCurveMode decides how an open position contributes to equity.
type EquityCurveMode int

const (
	// MarkToMarket values an open position at the latest close.
	MarkToMarket EquityCurveMode = iota
	// Realized freezes equity at the last exit; open positions are ignored
	// whatever the OpenPositionHandling says.
	Realized
)

func (m EquityCurveMode) String() string {
	if m == Realized {
		return "REALIZED"
	}
	return "MARK_TO_MARKET"
}

// OpenPositionHandling decides whether an open position is included in
// mark-to-market evaluation.
type OpenPositionHandling int

const (
	IncludeOpen OpenPositionHandling = iota
	IgnoreOpen
)

func (h OpenPositionHandling) String() string {
	if h == IgnoreOpen {
		return "IGNORE"
	}
	return "MARK_TO_MARKET"
}

// effectiveHandling forces IgnoreOpen in realized mode.
func effectiveHandling(mode EquityCurveMode, h OpenPositionHandling) OpenPositionHandling {
	if mode == Realized {
		return IgnoreOpen
	}
	return h
}

// normalizeName upper-cases s and collapses runs of separators into "_", so
// "mark-to-market", "Mark To Market" and "MARK_TO_MARKET" are equal.
func normalizeName(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.TrimSpace(s) {
		isAlnum := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
		if !isAlnum {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte('_')
			pending = false
		}
		b.WriteString(strings.ToUpper(string(r)))
	}
	return b.String()
}

func ParseEquityCurveMode(s string) (EquityCurveMode, error) {
	switch normalizeName(s) {
	case "", "MARK_TO_MARKET", "MTM":
		return MarkToMarket, nil
	case "REALIZED":
		return Realized, nil
	}
	return MarkToMarket, fmt.Errorf("analysis: unknown equity curve mode %q", s)
}

func ParseOpenPositionHandling(s string) (OpenPositionHandling, error) {
	switch normalizeName(s) {
	case "", "MARK_TO_MARKET", "MTM", "INCLUDE":
		return IncludeOpen, nil
	case "IGNORE":
		return IgnoreOpen, nil
	}
	return IncludeOpen, fmt.Errorf("analysis: unknown open position handling %q", s)
}
