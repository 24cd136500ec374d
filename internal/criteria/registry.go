package criteria

import (
	"fmt"
	"sort"
	"strings"
)

type constructor func(Settings) (Criterion, error)

func wrap[T Criterion](build func(Settings) (T, error)) constructor {
	return func(c Settings) (Criterion, error) {
		v, err := build(c)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

var registry = map[string]constructor{
	"sharpe":                   wrap(NewSharpe),
	"sortino":                  wrap(NewSortino),
	"omega":                    wrap(NewOmega),
	"return-over-max-drawdown": wrap(NewCalmar),
	"max-drawdown":             wrap(NewMaxDrawdown),
	"drawdown-length":          wrap(NewDrawdownLength),
	"value-at-risk":            wrap(NewValueAtRisk),
	"expected-shortfall":       wrap(NewExpectedShortfall),
	"gross-return":             wrap(NewGrossReturn),
	"net-return":               wrap(NewNetReturn),
	"profit-loss":              wrap(NewProfitLoss),
	"transaction-cost":         wrap(NewTransactionCost),
	"positions": func(c Settings) (Criterion, error) {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return NumberOfPositions{}, nil
	},
}

var aliases = map[string]string{
	"calmar":              "return-over-max-drawdown",
	"romad":               "return-over-max-drawdown",
	"mdd":                 "max-drawdown",
	"var":                 "value-at-risk",
	"es":                  "expected-shortfall",
	"cvar":                "expected-shortfall",
	"pnl":                 "profit-loss",
	"number-of-positions": "positions",
}

// ByName builds the criterion registered under name. Names are
// case-insensitive and treat spaces and underscores as dashes.
func ByName(name string, cfg Settings) (Criterion, error) {
	key := normalize(name)
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	build, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("criteria: unknown criterion %q", name)
	}
	c, err := build(cfg)
	if err != nil {
		return nil, fmt.Errorf("criteria: %s: %w", key, err)
	}
	return c, nil
}

// All builds every registered criterion in name order.
func All(cfg Settings) ([]Criterion, error) {
	out := make([]Criterion, 0, len(registry))
	for _, name := range Names() {
		c, err := ByName(name, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Names lists the canonical criterion names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "-", " ", "-").Replace(s)
}
