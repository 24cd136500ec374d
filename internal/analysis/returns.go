package analysis

import (
	"fmt"

	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
	"trading-analytics/internal/trading"
)

// ReturnType selects how consecutive equity values become a return.
type ReturnType int

const (
	// LogReturn is ln(V_i / V_{i-1}).
	LogReturn ReturnType = iota
	// SimpleReturn is V_i / V_{i-1} - 1.
	SimpleReturn
)

func (t ReturnType) String() string {
	if t == SimpleReturn {
		return "SIMPLE"
	}
	return "LOG"
}

func ParseReturnType(s string) (ReturnType, error) {
	switch normalizeName(s) {
	case "", "LOG":
		return LogReturn, nil
	case "SIMPLE", "ARITHMETIC", "DECIMAL":
		return SimpleReturn, nil
	}
	return LogReturn, fmt.Errorf("analysis: unknown return type %q", s)
}

// Returns is the per-bar return series derived from an equity curve. The
// value at the first bar is NaN since there is no previous value.
type Returns struct {
	s              *series.BarSeries
	typ            ReturnType
	representation Representation
	raw            []num.Num
	values         []num.Num
}

// NewReturns derives returns from the cash flow of record.
func NewReturns(s *series.BarSeries, record trading.Record, typ ReturnType, rep Representation, opts CashFlowOptions) *Returns {
	return ReturnsOf(NewCashFlow(s, record, opts), typ, rep)
}

// ReturnsOf derives returns from an existing equity curve.
func ReturnsOf(cf *CashFlow, typ ReturnType, rep Representation) *Returns {
	r := &Returns{s: cf.Series(), typ: typ, representation: rep}
	n := cf.Size()
	r.raw = make([]num.Num, n)
	r.values = make([]num.Num, n)
	for i := 0; i < n; i++ {
		if i == 0 {
			r.raw[i], r.values[i] = num.NaN, num.NaN
			continue
		}
		raw := periodReturn(typ, cf.values[i-1], cf.values[i])
		r.raw[i] = raw
		if typ == LogReturn {
			r.values[i] = rep.FromLogReturn(raw)
		} else {
			r.values[i] = rep.FromRateOfReturn(raw)
		}
	}
	return r
}

func periodReturn(typ ReturnType, prev, cur num.Num) num.Num {
	growth := cur.DividedBy(prev)
	if typ == LogReturn {
		return growth.Log()
	}
	return growth.Minus(growth.Factory().One())
}

func (r *Returns) Series() *series.BarSeries      { return r.s }
func (r *Returns) UnstableBars() int              { return 0 }
func (r *Returns) Type() ReturnType               { return r.typ }
func (r *Returns) Representation() Representation { return r.representation }

// Size is the number of defined returns (bar count minus one).
func (r *Returns) Size() int { return max(len(r.values)-1, 0) }

// Value is the return at index in the configured representation.
func (r *Returns) Value(index int) num.Num {
	if err := r.s.CheckIndex(index); err != nil {
		panic(err)
	}
	return r.values[index]
}

// Raw is the return at index as a log return or a decimal rate, depending
// on the return type.
func (r *Returns) Raw(index int) num.Num {
	if err := r.s.CheckIndex(index); err != nil {
		panic(err)
	}
	return r.raw[index]
}

// Values returns a copy of every value including the leading NaN.
func (r *Returns) Values() []num.Num { return append([]num.Num(nil), r.values...) }
