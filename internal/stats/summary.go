package stats

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"trading-analytics/internal/analysis"
	"trading-analytics/internal/num"
)

// Summarize accumulates values in order.
func Summarize(f num.Factory, values []num.Num) *Accumulator {
	acc := New(f)
	for _, v := range values {
		acc.Add(v)
	}
	return acc
}

// SummarizeSamples accumulates sample values together with their elapsed
// time.
func SummarizeSamples(f num.Factory, samples []analysis.Sample) *Accumulator {
	acc := New(f)
	for _, s := range samples {
		acc.AddSample(s.Value, s.DeltaYears)
	}
	return acc
}

// SummarizeParallel splits samples into at most workers disjoint chunks,
// accumulates each chunk in its own goroutine and merges the partial
// accumulators in chunk order. Workers share no mutable state until the
// merge.
func SummarizeParallel(ctx context.Context, f num.Factory, samples []analysis.Sample, workers int) (*Accumulator, error) {
	if workers < 1 {
		return nil, fmt.Errorf("stats: workers must be positive, got %d", workers)
	}
	if f == nil {
		f = num.DoubleFactory()
	}
	workers = min(workers, max(len(samples), 1))
	chunk := (len(samples) + workers - 1) / workers
	parts := make([]*Accumulator, workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		lo := min(w*chunk, len(samples))
		hi := min(lo+chunk, len(samples))
		g.Go(func() error {
			acc := New(f)
			for i, s := range samples[lo:hi] {
				if i%4096 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				acc.AddSample(s.Value, s.DeltaYears)
			}
			parts[w] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("stats: summarize: %w", err)
	}

	total := New(f)
	for _, p := range parts {
		total.Merge(p)
	}
	return total, nil
}

// DownsideDeviation is sqrt(sum((x - threshold)^2 for x <= threshold) / n)
// over all n non-NaN values. It is NaN when no value is at or below the
// threshold, which is distinct from a zero deviation.
func DownsideDeviation(f num.Factory, values []num.Num, threshold num.Num) num.Num {
	if f == nil {
		f = num.DoubleFactory()
	}
	if threshold == nil {
		threshold = f.Zero()
	}
	sumSq := f.Zero()
	n, below := 0, 0
	for _, v := range values {
		if num.IsNaN(v) {
			continue
		}
		n++
		if v.IsLessThanOrEqual(threshold) {
			below++
			d := v.Minus(threshold)
			sumSq = sumSq.Plus(d.Times(d))
		}
	}
	if below == 0 {
		return num.NaN
	}
	return sumSq.DividedBy(f.NumOfInt(n)).Sqrt()
}

// PartialMoments returns the summed gains above and losses below threshold,
// both as non-negative values.
func PartialMoments(f num.Factory, values []num.Num, threshold num.Num) (upside, downside num.Num) {
	if f == nil {
		f = num.DoubleFactory()
	}
	if threshold == nil {
		threshold = f.Zero()
	}
	upside, downside = f.Zero(), f.Zero()
	for _, v := range values {
		if num.IsNaN(v) {
			continue
		}
		d := v.Minus(threshold)
		if d.IsPositive() {
			upside = upside.Plus(d)
		} else {
			downside = downside.Minus(d)
		}
	}
	return upside, downside
}

// Values extracts the sample values.
func Values(samples []analysis.Sample) []num.Num {
	out := make([]num.Num, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}
