// Package stats holds online sample statistics. An Accumulator absorbs
// samples one at a time in O(1) and merges with another accumulator built
// over a disjoint sample set, so ranges can be summarised independently and
// combined afterwards.
package stats

import (
	"fmt"

	"trading-analytics/internal/num"
)

// Accumulator tracks count, mean and the second to fourth central moment
// sums (Welford), plus the elapsed time attached to samples for empirical
// annualization.
type Accumulator struct {
	f     num.Factory
	count int
	mean  num.Num
	m2    num.Num
	m3    num.Num
	m4    num.Num

	deltaYearsSum num.Num
	deltaCount    int
}

// New returns an empty accumulator; a nil factory means float64 arithmetic.
func New(f num.Factory) *Accumulator {
	if f == nil {
		f = num.DoubleFactory()
	}
	zero := f.Zero()
	return &Accumulator{f: f, mean: zero, m2: zero, m3: zero, m4: zero, deltaYearsSum: zero}
}

func (a *Accumulator) Factory() num.Factory { return a.f }
func (a *Accumulator) Count() int           { return a.count }

// Mean is zero for an empty accumulator.
func (a *Accumulator) Mean() num.Num { return a.mean }

// Add absorbs x. NaN samples are skipped.
func (a *Accumulator) Add(x num.Num) {
	if num.IsNaN(x) {
		return
	}
	n1 := a.f.NumOfInt(a.count)
	a.count++
	n := a.f.NumOfInt(a.count)

	delta := x.Minus(a.mean)
	deltaN := delta.DividedBy(n)
	deltaN2 := deltaN.Times(deltaN)
	term1 := delta.Times(deltaN).Times(n1)

	three := a.f.NumOfInt(3)
	a.mean = a.mean.Plus(deltaN)
	a.m4 = a.m4.
		Plus(term1.Times(deltaN2).Times(n.Times(n).Minus(three.Times(n)).Plus(three))).
		Plus(a.f.NumOfInt(6).Times(deltaN2).Times(a.m2)).
		Minus(a.f.NumOfInt(4).Times(deltaN).Times(a.m3))
	a.m3 = a.m3.
		Plus(term1.Times(deltaN).Times(n.Minus(a.f.NumOfInt(2)))).
		Minus(three.Times(deltaN).Times(a.m2))
	a.m2 = a.m2.Plus(term1)
}

// AddSample absorbs x and, when deltaYears is positive, records the elapsed
// time it covers for AnnualizationFactor.
func (a *Accumulator) AddSample(x, deltaYears num.Num) {
	if num.IsNaN(x) {
		return
	}
	a.Add(x)
	if !num.IsNaN(deltaYears) && deltaYears.IsPositive() {
		a.deltaYearsSum = a.deltaYearsSum.Plus(deltaYears)
		a.deltaCount++
	}
}

// Merge folds b into a using the pairwise combination formulas for the
// mean and the central moment sums. Merging is associative: summarising
// [x..y] then [y+1..z] and merging equals summarising [x..z] up to rounding.
func (a *Accumulator) Merge(b *Accumulator) {
	if b == nil || b.count == 0 {
		return
	}
	if a.count == 0 {
		*a = *b.Clone()
		return
	}
	f := a.f
	n1 := f.NumOfInt(a.count)
	n2 := f.NumOfInt(b.count)
	n := n1.Plus(n2)
	nSq := n.Times(n)

	delta := b.mean.Minus(a.mean)
	delta2 := delta.Times(delta)
	delta3 := delta2.Times(delta)
	delta4 := delta2.Times(delta2)
	n1n2 := n1.Times(n2)

	mean := a.mean.Plus(delta.Times(n2).DividedBy(n))
	m2 := a.m2.Plus(b.m2).Plus(delta2.Times(n1n2).DividedBy(n))
	m3 := a.m3.Plus(b.m3).
		Plus(delta3.Times(n1n2).Times(n1.Minus(n2)).DividedBy(nSq)).
		Plus(f.NumOfInt(3).Times(delta).Times(n1.Times(b.m2).Minus(n2.Times(a.m2))).DividedBy(n))
	m4 := a.m4.Plus(b.m4).
		Plus(delta4.Times(n1n2).Times(n1.Times(n1).Minus(n1n2).Plus(n2.Times(n2))).DividedBy(nSq.Times(n))).
		Plus(f.NumOfInt(6).Times(delta2).Times(n1.Times(n1).Times(b.m2).Plus(n2.Times(n2).Times(a.m2))).DividedBy(nSq)).
		Plus(f.NumOfInt(4).Times(delta).Times(n1.Times(b.m3).Minus(n2.Times(a.m3))).DividedBy(n))

	a.count += b.count
	a.mean, a.m2, a.m3, a.m4 = mean, m2, m3, m4
	a.deltaYearsSum = a.deltaYearsSum.Plus(b.deltaYearsSum)
	a.deltaCount += b.deltaCount
}

// Clone returns an independent copy.
func (a *Accumulator) Clone() *Accumulator {
	c := *a
	return &c
}

// Variance is the Bessel-corrected sample variance; zero when count < 2.
func (a *Accumulator) Variance() num.Num {
	if a.count < 2 {
		return a.f.Zero()
	}
	return a.m2.DividedBy(a.f.NumOfInt(a.count - 1))
}

// PopulationVariance divides by count; zero when empty.
func (a *Accumulator) PopulationVariance() num.Num {
	if a.count == 0 {
		return a.f.Zero()
	}
	return a.m2.DividedBy(a.f.NumOfInt(a.count))
}

func (a *Accumulator) StdDev() num.Num { return a.Variance().Sqrt() }

// Skewness is the adjusted Fisher-Pearson sample skewness. It is zero for
// fewer than three samples or zero variance.
func (a *Accumulator) Skewness() num.Num {
	if a.count < 3 || a.m2.IsZero() {
		return a.f.Zero()
	}
	f := a.f
	n := f.NumOfInt(a.count)
	g1 := n.Sqrt().Times(a.m3).DividedBy(a.m2.Times(a.m2.Sqrt()))
	adjust := n.Times(n.Minus(f.One())).Sqrt().DividedBy(n.Minus(f.NumOfInt(2)))
	return g1.Times(adjust)
}

// Kurtosis is the bias-corrected sample excess kurtosis. It is zero for
// fewer than four samples or zero variance.
func (a *Accumulator) Kurtosis() num.Num {
	if a.count < 4 || a.m2.IsZero() {
		return a.f.Zero()
	}
	f := a.f
	n := f.NumOfInt(a.count)
	one, two, three := f.One(), f.NumOfInt(2), f.NumOfInt(3)
	scale := n.Minus(one).DividedBy(n.Minus(two).Times(n.Minus(three)))
	inner := n.Plus(one).Times(n).Times(a.m4).DividedBy(a.m2.Times(a.m2)).Minus(three.Times(n.Minus(one)))
	return scale.Times(inner)
}

// PeriodsPerYear is the observed sampling rate: samples with positive
// elapsed time divided by their total elapsed years. ok is false when no
// sample carried elapsed time.
func (a *Accumulator) PeriodsPerYear() (num.Num, bool) {
	if a.deltaCount == 0 || !a.deltaYearsSum.IsPositive() {
		return num.NaN, false
	}
	return a.f.NumOfInt(a.deltaCount).DividedBy(a.deltaYearsSum), true
}

// AnnualizationFactor is sqrt(PeriodsPerYear).
func (a *Accumulator) AnnualizationFactor() (num.Num, bool) {
	ppy, ok := a.PeriodsPerYear()
	if !ok {
		return num.NaN, false
	}
	return ppy.Sqrt(), true
}

func (a *Accumulator) String() string {
	return fmt.Sprintf("Accumulator{n=%d mean=%s var=%s}", a.count, a.mean, a.Variance())
}
