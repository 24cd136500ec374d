package analysis

import (
	"fmt"
	"time"

	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
	"trading-analytics/internal/trading"
)

// SamplingFrequency controls how the bar timeline is bucketed into return
// observations.
type SamplingFrequency int

const (
	SampleBar SamplingFrequency = iota
	SampleDay
	SampleWeek
	SampleMonth
	SampleTrade
)

var frequencyNames = map[SamplingFrequency]string{
	SampleBar:   "BAR",
	SampleDay:   "DAY",
	SampleWeek:  "WEEK",
	SampleMonth: "MONTH",
	SampleTrade: "TRADE",
}

func (f SamplingFrequency) String() string {
	if name, ok := frequencyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("SamplingFrequency(%d)", int(f))
}

func ParseSamplingFrequency(s string) (SamplingFrequency, error) {
	norm := normalizeName(s)
	if norm == "" {
		return SampleBar, nil
	}
	for f, name := range frequencyNames {
		if name == norm {
			return f, nil
		}
	}
	return SampleBar, fmt.Errorf("analysis: unknown sampling frequency %q", s)
}

// periodKey identifies a calendar bucket.
type periodKey struct{ a, b int }

// calendarKeys maps each calendar frequency to its bucket function.
var calendarKeys = map[SamplingFrequency]func(time.Time) periodKey{
	SampleDay: func(t time.Time) periodKey { return periodKey{t.Year(), t.YearDay()} },
	SampleWeek: func(t time.Time) periodKey {
		y, w := t.ISOWeek()
		return periodKey{y, w}
	},
	SampleMonth: func(t time.Time) periodKey { return periodKey{t.Year(), int(t.Month())} },
}

// IndexPair is one sampling interval from bar From to bar To.
type IndexPair struct {
	From, To int
}

// Sample is a return observation with the elapsed time it covers in years.
type Sample struct {
	Value      num.Num
	DeltaYears num.Num
}

// Sampler turns a series and record into sampling intervals.
type Sampler struct {
	Frequency SamplingFrequency
	// Zone is where calendar boundaries are evaluated; nil means UTC.
	Zone *time.Location
	// OpenPositions controls whether trade sampling includes open positions.
	OpenPositions OpenPositionHandling
	// ExpandLots samples each open lot of a multi-lot record as its own
	// position.
	ExpandLots bool
}

// Pairs returns the sampling intervals over s.
func (sm Sampler) Pairs(s *series.BarSeries, record trading.Record) []IndexPair {
	if s.IsEmpty() {
		return nil
	}
	if sm.Frequency == SampleTrade {
		final := s.EndIndex()
		if !trading.IsNil(record) {
			final = record.EndIndex(s)
		}
		return tradePairs(record, final, sm.OpenPositions, sm.ExpandLots)
	}
	return sm.timePairs(s, s.BeginIndex(), s.EndIndex())
}

// timePairs anchors at begin and emits (anchor, i) at each period boundary.
// The last index is always a boundary.
func (sm Sampler) timePairs(s *series.BarSeries, begin, end int) []IndexPair {
	var pairs []IndexPair
	if end <= begin {
		return pairs
	}
	if sm.Frequency == SampleBar {
		pairs = make([]IndexPair, 0, end-begin)
		for i := begin + 1; i <= end; i++ {
			pairs = append(pairs, IndexPair{i - 1, i})
		}
		return pairs
	}
	key, ok := calendarKeys[sm.Frequency]
	if !ok {
		return pairs
	}
	zone := sm.Zone
	if zone == nil {
		zone = time.UTC
	}
	period := func(i int) periodKey { return key(s.Bar(i).EndTime.In(zone)) }
	anchor := begin
	for i := begin + 1; i <= end; i++ {
		if i == end || period(i) != period(i+1) {
			pairs = append(pairs, IndexPair{anchor, i})
			anchor = i
		}
	}
	return pairs
}

// tradePairs emits (entry, min(exit, final)) per sampled position.
func tradePairs(record trading.Record, final int, h OpenPositionHandling, expandLots bool) []IndexPair {
	var pairs []IndexPair
	for _, p := range positionsForSampling(record, final, h, expandLots) {
		to := final
		if p.Exit != nil {
			to = min(p.Exit.Index, final)
		}
		if to < p.Entry.Index {
			continue
		}
		pairs = append(pairs, IndexPair{p.Entry.Index, to})
	}
	return pairs
}

// RatioSamples turns every sampling interval into an excess-return sample.
func RatioSamples(s *series.BarSeries, record trading.Record, sm Sampler, excess *ExcessReturns) []Sample {
	pairs := sm.Pairs(s, record)
	samples := make([]Sample, 0, len(pairs))
	f := s.Factory()
	for _, p := range pairs {
		samples = append(samples, Sample{
			Value:      excess.ExcessReturn(p.From, p.To),
			DeltaYears: f.NumOf(s.DeltaYears(p.From, p.To)),
		})
	}
	return samples
}
