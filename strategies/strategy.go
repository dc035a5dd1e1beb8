package strategies

import (
	"fmt"

	"fxpilot/market"
)

// Strategy is the boundary every heuristic implements: a pure function
// from chart state to at most one candidate. Implementations must not
// perform I/O or mutate shared state.
type Strategy interface {
	Name() string
	Evaluate(cs market.ChartState) *market.TradeCandidate
}

var registry = make(map[string]Strategy)

func Register(s Strategy) {
	registry[s.Name()] = s
}

func Get(name string) Strategy {
	return registry[name]
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Resolve maps strategy names to implementations once, at startup.
// Unknown names are a configuration error, not a call-time condition.
func Resolve(names []string) (map[string]Strategy, error) {
	out := make(map[string]Strategy, len(names))
	for _, name := range names {
		s := Get(name)
		if s == nil {
			return nil, fmt.Errorf("unknown strategy %q (registered: %v)", name, Names())
		}
		out[name] = s
	}
	return out, nil
}
