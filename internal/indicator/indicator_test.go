package indicator

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

var t0 = time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)

func closes(t testing.TB, prices ...float64) *series.BarSeries {
	t.Helper()
	s := series.New("TEST", num.DoubleFactory())
	for _, p := range prices {
		if err := s.AddPrice(t0, time.Minute, p); err != nil {
			t.Fatalf("AddPrice: %v", err)
		}
	}
	return s
}

func assertClose(t *testing.T, label string, got num.Num, want, tol float64) {
	t.Helper()
	if math.Abs(got.Float64()-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f)", label, got.Float64(), want, tol)
	}
}

// ────────────────────────────────────────────────────────────
// Memoization
// ────────────────────────────────────────────────────────────

func TestCached_CalculatesOncePerIndex(t *testing.T) {
	s := closes(t, 1, 2, 3, 4, 5)
	calls := make(map[int]int)
	c := NewCached(s, 0, func(i int) num.Num {
		calls[i]++
		return s.Bar(i).Close.Times(s.Num(2))
	})

	for round := 0; round < 3; round++ {
		for i := 0; i <= s.EndIndex(); i++ {
			assertClose(t, "doubled", c.Value(i), float64(2*(i+1)), 0)
		}
	}
	for i := 0; i <= s.EndIndex(); i++ {
		if calls[i] != 1 {
			t.Errorf("index %d calculated %d times, want 1", i, calls[i])
		}
	}
	if c.Fills() != 5 {
		t.Errorf("Fills: got %d, want 5", c.Fills())
	}
}

func TestCached_ConcurrentReadersAgree(t *testing.T) {
	s := closes(t, make([]float64, 200)...)
	c := NewCached(s, 0, func(i int) int { return i * i })

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := s.EndIndex(); i >= 0; i-- {
				if v := c.Value(i); v != i*i {
					t.Errorf("index %d: got %d", i, v)
				}
			}
		}()
	}
	wg.Wait()
}

func TestCached_OutOfRangePanics(t *testing.T) {
	s := closes(t, 1, 2)
	c := NewCached(s, 0, func(i int) int { return i })
	defer func() {
		err, _ := recover().(error)
		var ie *series.IndexError
		if !errors.As(err, &ie) {
			t.Fatalf("expected *series.IndexError panic, got %v", err)
		}
	}()
	c.Value(2)
}

// ────────────────────────────────────────────────────────────
// Iterative recursion
// ────────────────────────────────────────────────────────────

func TestRecursive_DeepSeriesDoesNotOverflow(t *testing.T) {
	const n = 50_000
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = 100 + math.Sin(float64(i)/50)
	}
	s := closes(t, prices...)

	ema := NewEMA(NewClosePrice(s), 20)
	if v := ema.Value(n - 1); v.IsNaN() {
		t.Fatal("EMA at last index is NaN")
	}
	if ema.Fills() != n {
		t.Errorf("Fills: got %d, want %d", ema.Fills(), n)
	}

	sum := NewCumulativeSum(NewConstant(s, s.Num(1)))
	assertClose(t, "cumulative count", sum.Value(n-1), n, 0)
}

func TestRecursive_CalculatesOncePerIndex(t *testing.T) {
	s := closes(t, 1, 1, 1, 1, 1, 1)
	calls := 0
	var r *Recursive[int]
	r = NewRecursive(s, 0, func(i int) int {
		calls++
		if i == 0 {
			return 1
		}
		return r.Value(i-1) * 2
	})
	if got := r.Value(5); got != 32 {
		t.Errorf("Value(5): got %d, want 32", got)
	}
	r.Value(3)
	r.Value(5)
	if calls != 6 {
		t.Errorf("calls: got %d, want 6", calls)
	}
}

// ────────────────────────────────────────────────────────────
// Moving averages and RSI
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness_Period3(t *testing.T) {
	s := closes(t, 100, 102, 104, 103, 105)
	sma := NewSMA(NewClosePrice(s), 3)
	want := []float64{100, 101, 102, 103, 104}
	for i, w := range want {
		assertClose(t, "SMA(3)", sma.Value(i), w, 1e-9)
	}
	if sma.UnstableBars() != 3 {
		t.Errorf("unstable: %d", sma.UnstableBars())
	}
}

func TestEMA_SeededWithSMA(t *testing.T) {
	// EMA(3): seed at index 2 = (10+11+12)/3 = 11, multiplier 0.5
	// index 3: 11 + (13-11)*0.5 = 12
	// index 4: 12 + (14-12)*0.5 = 13
	s := closes(t, 10, 11, 12, 13, 14)
	ema := NewEMA(NewClosePrice(s), 3)
	assertClose(t, "EMA seed", ema.Value(2), 11, 1e-12)
	assertClose(t, "EMA[3]", ema.Value(3), 12, 1e-12)
	assertClose(t, "EMA[4]", ema.Value(4), 13, 1e-12)
}

func TestMMA_WilderSmoothing(t *testing.T) {
	// MMA(2): seed at index 1 = 3, then 3 + (6-3)/2 = 4.5
	s := closes(t, 2, 4, 6)
	mma := NewMMA(NewClosePrice(s), 2)
	assertClose(t, "MMA seed", mma.Value(1), 3, 1e-12)
	assertClose(t, "MMA[2]", mma.Value(2), 4.5, 1e-12)
}

func TestRSI_AllGainsIs100(t *testing.T) {
	s := closes(t, 1, 2, 3, 4, 5, 6)
	rsi := NewRSI(NewClosePrice(s), 3)
	assertClose(t, "RSI", rsi.Value(5), 100, 0)
}

func TestRSI_BalancedMoves(t *testing.T) {
	// Alternating +1/-1 moves with period 2 after the seed:
	// gains 0,1,0,1  losses 0,0,1,0
	s := closes(t, 10, 11, 10, 11)
	rsi := NewRSI(NewClosePrice(s), 2)
	// avgGain: seed idx1 = 0.5, idx2 = 0.25, idx3 = 0.625
	// avgLoss: seed idx1 = 0,   idx2 = 0.5,  idx3 = 0.25
	// RS = 2.5 -> RSI = 100 - 100/3.5
	assertClose(t, "RSI[3]", rsi.Value(3), 100-100/3.5, 1e-9)
}

// ────────────────────────────────────────────────────────────
// Composition and NaN
// ────────────────────────────────────────────────────────────

func TestBinary_NaNShortCircuits(t *testing.T) {
	s := closes(t, 1, 2, 3)
	nan := NewConstant(s, num.NaN)
	called := false
	never := NewFunc(s, 0, func(i int) num.Num { return s.Num(1) })
	sum := binary(nan, never, func(x, y num.Num) num.Num {
		called = true
		return x.Plus(y)
	})
	if !sum.Value(0).IsNaN() || called {
		t.Error("expected NaN without calling op")
	}
	if !Divide(NewClosePrice(s), NewConstant(s, s.Num(0))).Value(1).IsNaN() {
		t.Error("division by zero indicator should be NaN")
	}
}

func TestUnstableBarsIsMaxOfInputs(t *testing.T) {
	s := closes(t, 1, 2, 3)
	close := NewClosePrice(s)
	sum := Plus(NewSMA(close, 5), NewEMA(close, 9))
	if sum.UnstableBars() != 9 {
		t.Errorf("unstable: got %d, want 9", sum.UnstableBars())
	}
	if IsStable[num.Num](sum, 8) || !IsStable[num.Num](sum, 9) {
		t.Error("IsStable boundary wrong")
	}
}

func TestPrevious(t *testing.T) {
	s := closes(t, 5, 6, 7)
	prev := NewPrevious(NewClosePrice(s), 1)
	assertClose(t, "prev[0]", prev.Value(0), 5, 0)
	assertClose(t, "prev[2]", prev.Value(2), 6, 0)
}

// ────────────────────────────────────────────────────────────
// Build
// ────────────────────────────────────────────────────────────

func TestBuild(t *testing.T) {
	s := closes(t, 100, 100, 100, 100)
	for _, typ := range []string{"SMA", "ema", "MMA", "SMMA", "RSI"} {
		ind, err := Build(s, Config{Type: typ, Period: 2})
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if ind.Value(3).IsNaN() {
			t.Errorf("%s: NaN", typ)
		}
	}
	if _, err := Build(s, Config{Type: "VWAP", Period: 2}); err == nil {
		t.Error("unknown type should fail")
	}
	if _, err := Build(s, Config{Type: "SMA", Period: 0}); err == nil {
		t.Error("zero period should fail")
	}
	if _, err := Build(s, Config{Type: "SMA", Period: 2, Source: "vwap"}); err == nil {
		t.Error("unknown source should fail")
	}

	all, err := BuildAll(s, []Config{{Type: "sma", Period: 2}, {Type: "EMA", Period: 3, Source: "high"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := all["SMA_2"]; !ok {
		t.Errorf("BuildAll keys: %v", all)
	}
	if TotalFills(all["SMA_2"], all["EMA_3"]) != 0 {
		t.Error("nothing evaluated yet")
	}
}
