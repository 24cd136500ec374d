package num

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPrecision is the number of decimal places kept by divisions and
// transcendental functions in the Decimal backend.
const DefaultPrecision = 20

// Decimal is the arbitrary-precision backend.
type Decimal struct {
	d decimal.Decimal
	f *decimalFactory
}

type decimalFactory struct {
	precision int32
	zero, one Decimal
}

// DecimalFactory returns a decimal backend factory rounding divisions to
// precision decimal places.
func DecimalFactory(precision int) Factory {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	f := &decimalFactory{precision: int32(precision)}
	f.zero = Decimal{d: decimal.Zero, f: f}
	f.one = Decimal{d: decimal.NewFromInt(1), f: f}
	return f
}

func (f *decimalFactory) Name() string { return fmt.Sprintf("decimal(%d)", f.precision) }

func (f *decimalFactory) NumOf(v float64) Num {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NaN
	}
	return f.wrap(decimal.NewFromFloat(v))
}

func (f *decimalFactory) NumOfInt(v int) Num { return f.wrap(decimal.NewFromInt(int64(v))) }

func (f *decimalFactory) Parse(s string) (Num, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		return NaN, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("num: parse decimal %q: %w", s, err)
	}
	return f.wrap(d), nil
}

func (f *decimalFactory) Zero() Num { return f.zero }
func (f *decimalFactory) One() Num  { return f.one }

func (f *decimalFactory) wrap(d decimal.Decimal) Decimal { return Decimal{d: d, f: f} }

// operand converts o into this backend. Values from another backend are
// converted through float64.
func (x Decimal) operand(o Num) decimal.Decimal {
	if od, ok := o.(Decimal); ok {
		return od.d
	}
	return decimal.NewFromFloat(o.Float64())
}

func (x Decimal) factory() *decimalFactory {
	if x.f == nil {
		return DecimalFactory(DefaultPrecision).(*decimalFactory)
	}
	return x.f
}

func (x Decimal) Plus(o Num) Num {
	if anyNaN(x, o) {
		return NaN
	}
	return x.factory().wrap(x.d.Add(x.operand(o)))
}

func (x Decimal) Minus(o Num) Num {
	if anyNaN(x, o) {
		return NaN
	}
	return x.factory().wrap(x.d.Sub(x.operand(o)))
}

func (x Decimal) Times(o Num) Num {
	if anyNaN(x, o) {
		return NaN
	}
	return x.factory().wrap(x.d.Mul(x.operand(o)))
}

func (x Decimal) DividedBy(o Num) Num {
	if anyNaN(x, o) || o.IsZero() {
		return NaN
	}
	f := x.factory()
	return f.wrap(x.d.DivRound(x.operand(o), f.precision))
}

// Pow uses exact repeated multiplication for integer exponents and
// exp(y*ln(x)) otherwise.
func (x Decimal) Pow(o Num) Num {
	if anyNaN(x, o) {
		return NaN
	}
	f := x.factory()
	y := x.operand(o)
	if y.IsInteger() {
		n := y.IntPart()
		if n >= 0 {
			return f.wrap(x.d.Pow(y))
		}
		if x.d.IsZero() {
			return NaN
		}
		return f.one.DividedBy(f.wrap(x.d.Pow(y.Neg())))
	}
	if x.d.IsZero() && y.IsPositive() {
		return f.zero
	}
	if !x.d.IsPositive() {
		return NaN
	}
	return x.Log().Times(f.wrap(y)).Exp()
}

// Sqrt refines the float64 root with Newton iterations.
func (x Decimal) Sqrt() Num {
	if x.d.IsNegative() {
		return NaN
	}
	if x.d.IsZero() {
		return x
	}
	f := x.factory()
	two := decimal.NewFromInt(2)
	guess := decimal.NewFromFloat(math.Sqrt(x.d.InexactFloat64()))
	if guess.IsZero() {
		guess = decimal.NewFromInt(1)
	}
	for i := 0; i < 8; i++ {
		next := guess.Add(x.d.DivRound(guess, f.precision)).DivRound(two, f.precision)
		if next.Equal(guess) {
			break
		}
		guess = next
	}
	return f.wrap(guess)
}

func (x Decimal) Log() Num {
	if !x.d.IsPositive() {
		return NaN
	}
	f := x.factory()
	ln, err := x.d.Ln(f.precision)
	if err != nil {
		return NaN
	}
	return f.wrap(ln)
}

func (x Decimal) Exp() Num {
	f := x.factory()
	e, err := x.d.ExpTaylor(f.precision)
	if err != nil {
		return NaN
	}
	return f.wrap(e)
}

func (x Decimal) Abs() Num { return x.factory().wrap(x.d.Abs()) }
func (x Decimal) Neg() Num { return x.factory().wrap(x.d.Neg()) }

func (x Decimal) Min(o Num) Num {
	if anyNaN(x, o) {
		return NaN
	}
	if o.IsLessThan(x) {
		return o
	}
	return x
}

func (x Decimal) Max(o Num) Num {
	if anyNaN(x, o) {
		return NaN
	}
	if o.IsGreaterThan(x) {
		return o
	}
	return x
}

func (x Decimal) IsNaN() bool      { return false }
func (x Decimal) IsZero() bool     { return x.d.IsZero() }
func (x Decimal) IsPositive() bool { return x.d.IsPositive() }
func (x Decimal) IsNegative() bool { return x.d.IsNegative() }

func (x Decimal) cmp(o Num) (int, bool) {
	if anyNaN(x, o) {
		return 0, false
	}
	return x.d.Cmp(x.operand(o)), true
}

func (x Decimal) IsEqual(o Num) bool {
	c, ok := x.cmp(o)
	return ok && c == 0
}

func (x Decimal) IsGreaterThan(o Num) bool {
	c, ok := x.cmp(o)
	return ok && c > 0
}

func (x Decimal) IsGreaterThanOrEqual(o Num) bool {
	c, ok := x.cmp(o)
	return ok && c >= 0
}

func (x Decimal) IsLessThan(o Num) bool {
	c, ok := x.cmp(o)
	return ok && c < 0
}

func (x Decimal) IsLessThanOrEqual(o Num) bool {
	c, ok := x.cmp(o)
	return ok && c <= 0
}

func (x Decimal) Float64() float64 { return x.d.InexactFloat64() }
func (x Decimal) String() string   { return x.d.String() }
func (x Decimal) Factory() Factory { return x.factory() }

// Decimal exposes the underlying shopspring value.
func (x Decimal) Decimal() decimal.Decimal { return x.d }
