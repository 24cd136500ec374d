package analysis

import (
	"fmt"

	"trading-analytics/internal/num"
)

// Representation is how a return value is expressed.
type Representation int

const (
	// Multiplicative is the 1-based total return: 1.05 for +5%.
	Multiplicative Representation = iota
	// Decimal is the 0-based rate of return: 0.05 for +5%.
	Decimal
	// Percentage is the rate of return times 100: 5 for +5%.
	Percentage
	// Log is ln(total return).
	Log
)

var representationNames = map[Representation]string{
	Multiplicative: "MULTIPLICATIVE",
	Decimal:        "DECIMAL",
	Percentage:     "PERCENTAGE",
	Log:            "LOG",
}

func (r Representation) String() string {
	if name, ok := representationNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Representation(%d)", int(r))
}

// IncludesBase reports whether the neutral value is 1 rather than 0.
func (r Representation) IncludesBase() bool { return r == Multiplicative }

// ParseRepresentation accepts the variant names case-insensitively.
func ParseRepresentation(s string) (Representation, error) {
	norm := normalizeName(s)
	for r, name := range representationNames {
		if name == norm {
			return r, nil
		}
	}
	return Decimal, fmt.Errorf("analysis: unknown return representation %q", s)
}

type representationOps struct {
	fromTotal func(total num.Num) num.Num
	toTotal   func(v num.Num) num.Num
}

func hundred(v num.Num) num.Num { return v.Factory().NumOfInt(100) }
func one(v num.Num) num.Num     { return v.Factory().One() }

var representations = map[Representation]representationOps{
	Multiplicative: {
		fromTotal: func(t num.Num) num.Num { return t },
		toTotal:   func(v num.Num) num.Num { return v },
	},
	Decimal: {
		fromTotal: func(t num.Num) num.Num { return t.Minus(one(t)) },
		toTotal:   func(v num.Num) num.Num { return v.Plus(one(v)) },
	},
	Percentage: {
		fromTotal: func(t num.Num) num.Num { return t.Minus(one(t)).Times(hundred(t)) },
		toTotal:   func(v num.Num) num.Num { return v.DividedBy(hundred(v)).Plus(one(v)) },
	},
	Log: {
		fromTotal: func(t num.Num) num.Num { return t.Log() },
		toTotal:   func(v num.Num) num.Num { return v.Exp() },
	},
}

func (r Representation) ops() representationOps {
	if o, ok := representations[r]; ok {
		return o
	}
	return representations[Decimal]
}

// FromTotalReturn converts a 1-based total return into r.
func (r Representation) FromTotalReturn(total num.Num) num.Num {
	if num.IsNaN(total) {
		return num.NaN
	}
	return r.ops().fromTotal(total)
}

// FromRateOfReturn converts a 0-based rate of return into r.
func (r Representation) FromRateOfReturn(rate num.Num) num.Num {
	if num.IsNaN(rate) {
		return num.NaN
	}
	return r.FromTotalReturn(rate.Plus(one(rate)))
}

// FromLogReturn converts a log return into r.
func (r Representation) FromLogReturn(logReturn num.Num) num.Num {
	if r == Log {
		return logReturn
	}
	if num.IsNaN(logReturn) {
		return num.NaN
	}
	return r.FromTotalReturn(logReturn.Exp())
}

// ToTotalReturn converts a value in r back into a 1-based total return.
func (r Representation) ToTotalReturn(v num.Num) num.Num {
	if num.IsNaN(v) {
		return num.NaN
	}
	return r.ops().toTotal(v)
}

// ToRateOfReturn converts a value in r back into a 0-based rate of return.
func (r Representation) ToRateOfReturn(v num.Num) num.Num {
	total := r.ToTotalReturn(v)
	if num.IsNaN(total) {
		return num.NaN
	}
	return total.Minus(one(total))
}
