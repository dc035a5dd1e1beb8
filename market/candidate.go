package market

import "fmt"

// TradeCandidate is a raw trade proposal produced by one strategy for one
// instrument. It is immutable once created; everything downstream
// (confidence, risk, dispatch) derives from it without mutating it.
type TradeCandidate struct {
	Instrument  string
	Strategy    string
	Entry       float64
	Stop        float64
	Target      float64
	Trend       string
	VolumeSpike bool
}

// Validate enforces the pipeline invariant that a candidate carries
// non-zero entry/stop/target before it may reach the risk engine. Missing
// prices are a validation failure, never silently defaulted.
func (c TradeCandidate) Validate() error {
	if c.Instrument == "" {
		return fmt.Errorf("candidate missing instrument")
	}
	if c.Entry == 0 || c.Stop == 0 || c.Target == 0 {
		return fmt.Errorf("candidate %s/%s missing entry/stop/target", c.Instrument, c.Strategy)
	}
	return nil
}

// IsBuy reports the candidate's direction: a target above entry is a long.
func (c TradeCandidate) IsBuy() bool {
	return c.Target > c.Entry
}
