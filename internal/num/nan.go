package num

import "math"

// NaN is the shared "not a number" sentinel. Every operation on it returns
// NaN and every comparison involving it is false.
var NaN Num = nan{}

type nan struct{}

func (nan) Plus(Num) Num      { return NaN }
func (nan) Minus(Num) Num     { return NaN }
func (nan) Times(Num) Num     { return NaN }
func (nan) DividedBy(Num) Num { return NaN }
func (nan) Pow(Num) Num       { return NaN }
func (nan) Sqrt() Num         { return NaN }
func (nan) Log() Num          { return NaN }
func (nan) Exp() Num          { return NaN }
func (nan) Abs() Num          { return NaN }
func (nan) Neg() Num          { return NaN }
func (nan) Min(Num) Num       { return NaN }
func (nan) Max(Num) Num       { return NaN }

func (nan) IsNaN() bool      { return true }
func (nan) IsZero() bool     { return false }
func (nan) IsPositive() bool { return false }
func (nan) IsNegative() bool { return false }

func (nan) IsEqual(Num) bool              { return false }
func (nan) IsGreaterThan(Num) bool        { return false }
func (nan) IsGreaterThanOrEqual(Num) bool { return false }
func (nan) IsLessThan(Num) bool           { return false }
func (nan) IsLessThanOrEqual(Num) bool    { return false }

func (nan) Float64() float64 { return math.NaN() }
func (nan) String() string   { return "NaN" }
func (nan) Factory() Factory { return DoubleFactory() }

// IsNaN reports whether v is nil or NaN.
func IsNaN(v Num) bool {
	return v == nil || v.IsNaN()
}

// anyNaN reports whether any operand is NaN.
func anyNaN(a, b Num) bool {
	return a.IsNaN() || b == nil || b.IsNaN()
}
