package indicator

import (
	"fmt"
	"strconv"
	"strings"

	"trading-analytics/internal/num"
	"trading-analytics/internal/series"
)

// Config specifies a single indicator over a price source.
type Config struct {
	Type   string `yaml:"type" json:"type"`     // "SMA", "EMA", "MMA", "RSI"
	Period int    `yaml:"period" json:"period"`
	Source string `yaml:"source" json:"source"` // "close" (default), "open", "high", "low", "typical", "volume"
}

// Name returns the display name, e.g. "SMA_20".
func (c Config) Name() string {
	return strings.ToUpper(c.Type) + "_" + strconv.Itoa(c.Period)
}

type builder func(src Num, period int) Num

var builders = map[string]builder{
	"SMA":  func(src Num, p int) Num { return NewSMA(src, p) },
	"EMA":  func(src Num, p int) Num { return NewEMA(src, p) },
	"MMA":  func(src Num, p int) Num { return NewMMA(src, p) },
	"SMMA": func(src Num, p int) Num { return NewMMA(src, p) },
	"RSI":  func(src Num, p int) Num { return NewRSI(src, p) },
}

var sources = map[string]func(*series.BarSeries) *Func[num.Num]{
	"":        NewClosePrice,
	"close":   NewClosePrice,
	"open":    NewOpenPrice,
	"high":    NewHighPrice,
	"low":     NewLowPrice,
	"typical": NewTypicalPrice,
	"volume":  NewVolume,
}

// Build constructs the indicator described by cfg over s.
func Build(s *series.BarSeries, cfg Config) (Num, error) {
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("indicator %s: period must be positive, got %d", cfg.Type, cfg.Period)
	}
	b, ok := builders[strings.ToUpper(cfg.Type)]
	if !ok {
		return nil, fmt.Errorf("indicator: unknown type %q", cfg.Type)
	}
	src, ok := sources[strings.ToLower(cfg.Source)]
	if !ok {
		return nil, fmt.Errorf("indicator %s: unknown source %q", cfg.Name(), cfg.Source)
	}
	return b(src(s), cfg.Period), nil
}

// BuildAll constructs every configured indicator keyed by its display name.
func BuildAll(s *series.BarSeries, cfgs []Config) (map[string]Num, error) {
	out := make(map[string]Num, len(cfgs))
	for _, cfg := range cfgs {
		ind, err := Build(s, cfg)
		if err != nil {
			return nil, err
		}
		out[cfg.Name()] = ind
	}
	return out, nil
}

// Filler is implemented by memoizing indicators.
type Filler interface {
	Fills() int64
}

// TotalFills sums the calculation count of every memoizing indicator in inds.
func TotalFills(inds ...Num) int64 {
	var n int64
	for _, ind := range inds {
		if f, ok := ind.(Filler); ok {
			n += f.Fills()
		}
	}
	return n
}
