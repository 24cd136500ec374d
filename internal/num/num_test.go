package num

import (
	"math"
	"testing"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got Num, want, tol float64) {
	t.Helper()
	if got.IsNaN() {
		t.Fatalf("%s: got NaN, want %.10f", label, want)
	}
	if math.Abs(got.Float64()-want) > tol {
		t.Errorf("%s: got %.10f, want %.10f (tol=%g)", label, got.Float64(), want, tol)
	}
}

var backends = []Factory{DoubleFactory(), DecimalFactory(DefaultPrecision)}

// ────────────────────────────────────────────────────────────
// Arithmetic
// ────────────────────────────────────────────────────────────

func TestArithmetic_BothBackends(t *testing.T) {
	for _, f := range backends {
		a, b := f.NumOf(7.5), f.NumOfInt(2)
		assertClose(t, f.Name()+" plus", a.Plus(b), 9.5, 1e-12)
		assertClose(t, f.Name()+" minus", a.Minus(b), 5.5, 1e-12)
		assertClose(t, f.Name()+" times", a.Times(b), 15, 1e-12)
		assertClose(t, f.Name()+" div", a.DividedBy(b), 3.75, 1e-12)
		assertClose(t, f.Name()+" pow int", b.Pow(f.NumOfInt(10)), 1024, 1e-9)
		assertClose(t, f.Name()+" pow neg", b.Pow(f.NumOfInt(-2)), 0.25, 1e-12)
		assertClose(t, f.Name()+" pow frac", f.NumOf(9).Pow(f.NumOf(0.5)), 3, 1e-9)
		assertClose(t, f.Name()+" sqrt", f.NumOf(2).Sqrt(), math.Sqrt2, 1e-12)
		assertClose(t, f.Name()+" log", f.NumOf(math.E).Log(), 1, 1e-9)
		assertClose(t, f.Name()+" exp", f.One().Exp(), math.E, 1e-9)
		assertClose(t, f.Name()+" abs", f.NumOf(-3).Abs(), 3, 0)
		assertClose(t, f.Name()+" neg", f.NumOf(3).Neg(), -3, 0)
		assertClose(t, f.Name()+" min", a.Min(b), 2, 0)
		assertClose(t, f.Name()+" max", a.Max(b), 7.5, 0)
	}
}

func TestDecimal_ExactTenths(t *testing.T) {
	f := DecimalFactory(DefaultPrecision)
	sum := f.Zero()
	for i := 0; i < 10; i++ {
		sum = sum.Plus(f.NumOf(0.1))
	}
	if !sum.IsEqual(f.One()) {
		t.Errorf("ten tenths: got %s, want exactly 1", sum)
	}
}

func TestSum(t *testing.T) {
	f := DoubleFactory()
	assertClose(t, "empty", Sum(f), 0, 0)
	assertClose(t, "three", Sum(f, f.NumOf(1), f.NumOf(2), f.NumOf(3)), 6, 0)
}

// ────────────────────────────────────────────────────────────
// NaN policy
// ────────────────────────────────────────────────────────────

func TestUndefinedArithmeticYieldsNaN(t *testing.T) {
	for _, f := range backends {
		cases := map[string]Num{
			"div by zero":   f.One().DividedBy(f.Zero()),
			"log zero":      f.Zero().Log(),
			"log negative":  f.NumOf(-1).Log(),
			"sqrt negative": f.NumOf(-4).Sqrt(),
			"nan input":     f.NumOf(math.NaN()),
			"inf input":     f.NumOf(math.Inf(1)),
		}
		for name, v := range cases {
			if !v.IsNaN() {
				t.Errorf("%s %s: got %s, want NaN", f.Name(), name, v)
			}
		}
	}
}

func TestNaNPropagatesAndComparesFalse(t *testing.T) {
	for _, f := range backends {
		one := f.One()
		if !one.Plus(NaN).IsNaN() || !NaN.Times(one).IsNaN() || !one.Max(NaN).IsNaN() {
			t.Errorf("%s: NaN did not propagate", f.Name())
		}
		if one.IsEqual(NaN) || one.IsGreaterThan(NaN) || one.IsLessThanOrEqual(NaN) {
			t.Errorf("%s: comparison with NaN returned true", f.Name())
		}
		if NaN.IsEqual(NaN) || NaN.IsZero() || NaN.IsPositive() {
			t.Errorf("%s: NaN predicate returned true", f.Name())
		}
	}
	if !IsNaN(nil) {
		t.Error("IsNaN(nil) should be true")
	}
	if !math.IsNaN(NaN.Float64()) {
		t.Error("NaN.Float64() should be math.NaN()")
	}
}

// ────────────────────────────────────────────────────────────
// Factories
// ────────────────────────────────────────────────────────────

func TestParse(t *testing.T) {
	for _, f := range backends {
		v, err := f.Parse(" 12.25 ")
		if err != nil {
			t.Fatalf("%s parse: %v", f.Name(), err)
		}
		assertClose(t, f.Name()+" parse", v, 12.25, 0)

		v, err = f.Parse("NaN")
		if err != nil || !v.IsNaN() {
			t.Errorf("%s parse NaN: got %v, %v", f.Name(), v, err)
		}
		if _, err := f.Parse("12,5"); err == nil {
			t.Errorf("%s: expected error for malformed input", f.Name())
		}
	}
}

func TestFactoryByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "double", false},
		{"double", "double", false},
		{"Decimal", "decimal(8)", false},
		{"bigfloat", "", true},
	}
	for _, tt := range tests {
		f, err := FactoryByName(tt.name, 8)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tt.name, err)
		}
		if f.Name() != tt.want {
			t.Errorf("%q: got %s, want %s", tt.name, f.Name(), tt.want)
		}
	}
}

func TestMixedBackendsConvertThroughFloat(t *testing.T) {
	d := DecimalFactory(10).NumOf(1.5)
	got := d.Plus(DoubleFactory().NumOf(2.5))
	assertClose(t, "decimal+double", got, 4, 1e-12)
	if _, ok := got.(Decimal); !ok {
		t.Errorf("result should stay in the receiver's backend, got %T", got)
	}
}
