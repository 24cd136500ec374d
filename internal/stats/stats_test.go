package stats

import (
	"context"
	"math"
	"testing"

	"trading-analytics/internal/analysis"
	"trading-analytics/internal/num"
)

func assertClose(t *testing.T, label string, got num.Num, want, tol float64) {
	t.Helper()
	if got.IsNaN() {
		t.Errorf("%s: got NaN, want %.8f", label, want)
		return
	}
	if math.Abs(got.Float64()-want) > tol {
		t.Errorf("%s: got %.10f, want %.10f (tol=%g)", label, got.Float64(), want, tol)
	}
}

func nums(f num.Factory, xs ...float64) []num.Num {
	out := make([]num.Num, len(xs))
	for i, x := range xs {
		out[i] = f.NumOf(x)
	}
	return out
}

// reference moments computed directly from the definition.
func reference(xs []float64) (mean, variance, skew, kurt float64) {
	n := float64(len(xs))
	for _, x := range xs {
		mean += x
	}
	mean /= n
	var m2, m3, m4 float64
	for _, x := range xs {
		d := x - mean
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	variance = m2 / (n - 1)
	skew = math.Sqrt(n) * m3 / (m2 * math.Sqrt(m2)) * math.Sqrt(n*(n-1)) / (n - 2)
	kurt = (n - 1) / ((n - 2) * (n - 3)) * ((n+1)*n*m4/(m2*m2) - 3*(n-1))
	return
}

var sample = []float64{0.02, -0.01, 0.035, 0.004, -0.027, 0.011, 0.05, -0.003}

// ────────────────────────────────────────────────────────────
// Accumulator
// ────────────────────────────────────────────────────────────

func TestAccumulator_MatchesDefinition(t *testing.T) {
	f := num.DoubleFactory()
	acc := Summarize(f, nums(f, sample...))
	mean, variance, skew, kurt := reference(sample)

	if acc.Count() != len(sample) {
		t.Fatalf("count: %d", acc.Count())
	}
	assertClose(t, "mean", acc.Mean(), mean, 1e-12)
	assertClose(t, "variance", acc.Variance(), variance, 1e-12)
	assertClose(t, "stddev", acc.StdDev(), math.Sqrt(variance), 1e-12)
	assertClose(t, "skewness", acc.Skewness(), skew, 1e-9)
	assertClose(t, "kurtosis", acc.Kurtosis(), kurt, 1e-9)
}

func TestAccumulator_SmallCounts(t *testing.T) {
	f := num.DoubleFactory()
	acc := New(f)
	assertClose(t, "empty mean", acc.Mean(), 0, 0)
	assertClose(t, "empty variance", acc.Variance(), 0, 0)

	acc.Add(f.NumOf(3))
	assertClose(t, "single variance", acc.Variance(), 0, 0)
	assertClose(t, "single skewness", acc.Skewness(), 0, 0)
	assertClose(t, "single kurtosis", acc.Kurtosis(), 0, 0)

	acc.Add(num.NaN)
	if acc.Count() != 1 {
		t.Errorf("NaN should be skipped, count=%d", acc.Count())
	}
}

func TestAccumulator_ConstantSamplesHaveZeroVariance(t *testing.T) {
	f := num.DoubleFactory()
	acc := Summarize(f, nums(f, 0.01, 0.01, 0.01, 0.01, 0.01))
	assertClose(t, "variance", acc.Variance(), 0, 1e-18)
	assertClose(t, "skewness", acc.Skewness(), 0, 0)
}

func TestAccumulator_MergeAssociative(t *testing.T) {
	f := num.DoubleFactory()
	xs := nums(f, sample...)
	sequential := Summarize(f, xs)

	for split := 0; split <= len(xs); split++ {
		left := Summarize(f, xs[:split])
		left.Merge(Summarize(f, xs[split:]))

		assertClose(t, "mean", left.Mean(), sequential.Mean().Float64(), 1e-12)
		assertClose(t, "variance", left.Variance(), sequential.Variance().Float64(), 1e-12)
		if split > 0 && split < len(xs) {
			assertClose(t, "skewness", left.Skewness(), sequential.Skewness().Float64(), 1e-9)
			assertClose(t, "kurtosis", left.Kurtosis(), sequential.Kurtosis().Float64(), 1e-9)
		}
	}

	// (a, b) then c versus a then (b, c)
	a, b, c := Summarize(f, xs[:2]), Summarize(f, xs[2:5]), Summarize(f, xs[5:])
	ab := a.Clone()
	ab.Merge(b)
	ab.Merge(c)
	bc := b.Clone()
	bc.Merge(c)
	a.Merge(bc)
	assertClose(t, "grouping mean", ab.Mean(), a.Mean().Float64(), 1e-12)
	assertClose(t, "grouping variance", ab.Variance(), a.Variance().Float64(), 1e-12)
}

func TestAccumulator_DecimalBackend(t *testing.T) {
	f := num.DecimalFactory(24)
	acc := Summarize(f, nums(f, 1, 2, 3, 4))
	assertClose(t, "mean", acc.Mean(), 2.5, 1e-15)
	assertClose(t, "variance", acc.Variance(), 5.0/3.0, 1e-15)
}

func TestAccumulator_AnnualizationFactor(t *testing.T) {
	f := num.DoubleFactory()
	acc := New(f)
	if _, ok := acc.AnnualizationFactor(); ok {
		t.Error("no elapsed time yet")
	}
	day := 1 / 365.25
	for i := 0; i < 10; i++ {
		acc.AddSample(f.NumOf(0.01), f.NumOf(day))
	}
	acc.AddSample(f.NumOf(0.01), f.Zero())

	ppy, ok := acc.PeriodsPerYear()
	if !ok {
		t.Fatal("expected periods per year")
	}
	assertClose(t, "periods per year", ppy, 365.25, 1e-9)
	factor, _ := acc.AnnualizationFactor()
	assertClose(t, "factor", factor, math.Sqrt(365.25), 1e-9)
	if acc.Count() != 11 {
		t.Errorf("zero elapsed time still counts as a sample: %d", acc.Count())
	}
}

// ────────────────────────────────────────────────────────────
// Parallel summary
// ────────────────────────────────────────────────────────────

func TestSummarizeParallel_MatchesSequential(t *testing.T) {
	f := num.DoubleFactory()
	samples := make([]analysis.Sample, 10_001)
	for i := range samples {
		x := math.Sin(float64(i)) * 0.02
		samples[i] = analysis.Sample{Value: f.NumOf(x), DeltaYears: f.NumOf(1.0 / 252)}
	}
	sequential := SummarizeSamples(f, samples)

	for _, workers := range []int{1, 3, 8, 64} {
		got, err := SummarizeParallel(context.Background(), f, samples, workers)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if got.Count() != sequential.Count() {
			t.Errorf("workers=%d count: %d", workers, got.Count())
		}
		assertClose(t, "mean", got.Mean(), sequential.Mean().Float64(), 1e-12)
		assertClose(t, "variance", got.Variance(), sequential.Variance().Float64(), 1e-12)
		ppy, _ := got.PeriodsPerYear()
		assertClose(t, "ppy", ppy, 252, 1e-6)
	}
}

func TestSummarizeParallel_Errors(t *testing.T) {
	if _, err := SummarizeParallel(context.Background(), nil, nil, 0); err == nil {
		t.Error("expected error for zero workers")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	samples := []analysis.Sample{{Value: num.DoubleFactory().One()}}
	if _, err := SummarizeParallel(ctx, nil, samples, 2); err == nil {
		t.Error("expected cancellation error")
	}
	acc, err := SummarizeParallel(context.Background(), nil, nil, 4)
	if err != nil || acc.Count() != 0 {
		t.Errorf("empty input: %v %v", acc, err)
	}
}

// ────────────────────────────────────────────────────────────
// Threshold statistics
// ────────────────────────────────────────────────────────────

func TestDownsideDeviation(t *testing.T) {
	f := num.DoubleFactory()
	got := DownsideDeviation(f, nums(f, 0.02, -0.01, 0.03, -0.03), nil)
	assertClose(t, "deviation", got, math.Sqrt((0.0001+0.0009)/4), 1e-12)

	if !DownsideDeviation(f, nums(f, 0.01, 0.02, 0.03), nil).IsNaN() {
		t.Error("no downside samples should yield NaN")
	}
	assertClose(t, "at threshold", DownsideDeviation(f, nums(f, 0, 0.02), nil), 0, 0)
	assertClose(t, "custom threshold", DownsideDeviation(f, nums(f, 0.01, 0.03), f.NumOf(0.02)), math.Sqrt(0.0001/2), 1e-12)
}

func TestPartialMoments(t *testing.T) {
	f := num.DoubleFactory()
	up, down := PartialMoments(f, nums(f, 0.02, -0.01, 0.03, -0.03, 0), nil)
	assertClose(t, "upside", up, 0.05, 1e-12)
	assertClose(t, "downside", down, 0.04, 1e-12)
}
