package strategies

import "fxpilot/market"

// Noop never finds an opportunity. Useful as a registry placeholder and
// for wiring tests.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Evaluate(cs market.ChartState) *market.TradeCandidate {
	return nil
}

func init() {
	Register(Noop{})
}
