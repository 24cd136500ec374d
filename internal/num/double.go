package num

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Double is the float64 backend.
type Double float64

type doubleFactory struct{}

var doubles = doubleFactory{}

// DoubleFactory returns the float64 backend factory.
func DoubleFactory() Factory { return doubles }

func (doubleFactory) Name() string { return "double" }

func (doubleFactory) NumOf(v float64) Num { return ofFloat(v) }

func (doubleFactory) NumOfInt(v int) Num { return Double(v) }

func (doubleFactory) Parse(s string) (Num, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		return NaN, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("num: parse double %q: %w", s, err)
	}
	return ofFloat(v), nil
}

func (doubleFactory) Zero() Num { return Double(0) }
func (doubleFactory) One() Num  { return Double(1) }

// ofFloat maps NaN and infinities onto the shared sentinel.
func ofFloat(v float64) Num {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NaN
	}
	return Double(v)
}

func (d Double) Plus(o Num) Num {
	if anyNaN(d, o) {
		return NaN
	}
	return ofFloat(float64(d) + o.Float64())
}

func (d Double) Minus(o Num) Num {
	if anyNaN(d, o) {
		return NaN
	}
	return ofFloat(float64(d) - o.Float64())
}

func (d Double) Times(o Num) Num {
	if anyNaN(d, o) {
		return NaN
	}
	return ofFloat(float64(d) * o.Float64())
}

func (d Double) DividedBy(o Num) Num {
	if anyNaN(d, o) || o.IsZero() {
		return NaN
	}
	return ofFloat(float64(d) / o.Float64())
}

func (d Double) Pow(o Num) Num {
	if anyNaN(d, o) {
		return NaN
	}
	return ofFloat(math.Pow(float64(d), o.Float64()))
}

func (d Double) Sqrt() Num {
	if d < 0 {
		return NaN
	}
	return Double(math.Sqrt(float64(d)))
}

func (d Double) Log() Num {
	if d <= 0 {
		return NaN
	}
	return Double(math.Log(float64(d)))
}

func (d Double) Exp() Num { return ofFloat(math.Exp(float64(d))) }
func (d Double) Abs() Num { return Double(math.Abs(float64(d))) }
func (d Double) Neg() Num { return -d }

func (d Double) Min(o Num) Num {
	if anyNaN(d, o) {
		return NaN
	}
	if o.IsLessThan(d) {
		return o
	}
	return d
}

func (d Double) Max(o Num) Num {
	if anyNaN(d, o) {
		return NaN
	}
	if o.IsGreaterThan(d) {
		return o
	}
	return d
}

func (d Double) IsNaN() bool      { return false }
func (d Double) IsZero() bool     { return d == 0 }
func (d Double) IsPositive() bool { return d > 0 }
func (d Double) IsNegative() bool { return d < 0 }

func (d Double) IsEqual(o Num) bool {
	return !anyNaN(d, o) && float64(d) == o.Float64()
}

func (d Double) IsGreaterThan(o Num) bool {
	return !anyNaN(d, o) && float64(d) > o.Float64()
}

func (d Double) IsGreaterThanOrEqual(o Num) bool {
	return !anyNaN(d, o) && float64(d) >= o.Float64()
}

func (d Double) IsLessThan(o Num) bool {
	return !anyNaN(d, o) && float64(d) < o.Float64()
}

func (d Double) IsLessThanOrEqual(o Num) bool {
	return !anyNaN(d, o) && float64(d) <= o.Float64()
}

func (d Double) Float64() float64 { return float64(d) }
func (d Double) String() string   { return strconv.FormatFloat(float64(d), 'g', -1, 64) }
func (d Double) Factory() Factory { return doubles }
