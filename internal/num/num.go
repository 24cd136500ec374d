// Package num provides the numeric abstraction every analysis computation is
// written against.
//
// Two backends are available: Double (float64, fast) and Decimal
// (arbitrary precision, backed by shopspring/decimal). Both share a single NaN
// sentinel for undefined arithmetic: division by zero, log of a non-positive
// value and similar operations yield NaN instead of panicking, and NaN
// propagates through every later operation. Comparisons involving NaN are
// always false.
package num

import (
	"fmt"
	"strings"
)

// Num is an immutable numeric value.
type Num interface {
	Plus(o Num) Num
	Minus(o Num) Num
	Times(o Num) Num
	DividedBy(o Num) Num
	// Pow raises the value to a real exponent.
	Pow(o Num) Num
	Sqrt() Num
	// Log is the natural logarithm.
	Log() Num
	Exp() Num
	Abs() Num
	Neg() Num
	Min(o Num) Num
	Max(o Num) Num

	IsNaN() bool
	IsZero() bool
	IsPositive() bool
	IsNegative() bool

	IsEqual(o Num) bool
	IsGreaterThan(o Num) bool
	IsGreaterThanOrEqual(o Num) bool
	IsLessThan(o Num) bool
	IsLessThanOrEqual(o Num) bool

	Float64() float64
	String() string
	Factory() Factory
}

// Factory constructs values for one backend so constants stay consistent with
// the numbers they are combined with.
type Factory interface {
	Name() string
	NumOf(v float64) Num
	NumOfInt(v int) Num
	Parse(s string) (Num, error)
	Zero() Num
	One() Num
}

// FactoryByName returns the backend registered under name ("double" or
// "decimal"). precision only applies to the decimal backend; values <= 0 use
// DefaultPrecision.
func FactoryByName(name string, precision int) (Factory, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "double", "float64":
		return DoubleFactory(), nil
	case "decimal":
		return DecimalFactory(precision), nil
	default:
		return nil, fmt.Errorf("num: unknown backend %q", name)
	}
}

// Sum adds values using f for the empty case.
func Sum(f Factory, values ...Num) Num {
	total := f.Zero()
	for _, v := range values {
		total = total.Plus(v)
	}
	return total
}
