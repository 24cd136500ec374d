package model

import (
	"fmt"
	"sort"
	"time"
)

// resampleState holds the forming candle for one instrument.
type resampleState struct {
	bucket int64 // bucket start, Unix seconds
	candle TFCandle
}

// Resampler merges finer candles into tf-second buckets. Buckets start at
// Offset past each multiple of tf since the Unix epoch, so an offset of
// 3h45m aligns hourly candles to a 09:15 IST open.
type Resampler struct {
	TF     int
	Offset time.Duration

	// OnStale is called for a candle whose bucket is already finalized.
	OnStale func(c TFCandle)

	states map[string]*resampleState
	out    []TFCandle
}

// NewResampler validates tf and returns an empty resampler.
func NewResampler(tf int, offset time.Duration) (*Resampler, error) {
	if tf <= 0 {
		return nil, fmt.Errorf("resample: timeframe must be positive, got %d", tf)
	}
	return &Resampler{TF: tf, Offset: offset, states: make(map[string]*resampleState)}, nil
}

func (r *Resampler) bucketOf(ts time.Time) int64 {
	tf := int64(r.TF)
	off := int64(r.Offset/time.Second) % tf
	shifted := ts.Unix() - off
	b := shifted - shifted%tf
	if shifted < 0 && shifted%tf != 0 {
		b -= tf
	}
	return b + off
}

// Add merges one candle. Its timeframe must divide the target timeframe.
func (r *Resampler) Add(c TFCandle) error {
	if c.TF <= 0 || c.TF > r.TF || r.TF%c.TF != 0 {
		return fmt.Errorf("resample: cannot build %ds candles from %ds candles", r.TF, c.TF)
	}
	bucket := r.bucketOf(c.TS)
	key := c.Key()
	st, exists := r.states[key]

	if exists && bucket < st.bucket {
		if r.OnStale != nil {
			r.OnStale(c)
		}
		return nil
	}
	if exists && bucket > st.bucket {
		r.out = append(r.out, st.candle)
		exists = false
	}
	if !exists {
		merged := c
		merged.TF = r.TF
		merged.TS = time.Unix(bucket, 0).UTC()
		r.states[key] = &resampleState{bucket: bucket, candle: merged}
		return nil
	}

	fc := &st.candle
	if c.High > fc.High {
		fc.High = c.High
	}
	if c.Low < fc.Low {
		fc.Low = c.Low
	}
	fc.Close = c.Close
	fc.Volume += c.Volume
	fc.Count += c.Count
	return nil
}

// Flush finalizes every forming candle and returns all finalized candles
// sorted by instrument then time. The resampler is empty afterwards.
func (r *Resampler) Flush() []TFCandle {
	for key, st := range r.states {
		r.out = append(r.out, st.candle)
		delete(r.states, key)
	}
	out := r.out
	r.out = nil
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Key() != out[j].Key() {
			return out[i].Key() < out[j].Key()
		}
		return out[i].TS.Before(out[j].TS)
	})
	return out
}

// Resample merges ascending candles into tf-second candles.
func Resample(candles []TFCandle, tf int, offset time.Duration) ([]TFCandle, error) {
	r, err := NewResampler(tf, offset)
	if err != nil {
		return nil, err
	}
	for _, c := range candles {
		if err := r.Add(c); err != nil {
			return nil, err
		}
	}
	return r.Flush(), nil
}
