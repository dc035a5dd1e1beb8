// Package confidence turns a raw trade candidate into an admit/reject
// decision with an explainable weighted score.
package confidence

import (
	"fmt"

	"github.com/rs/zerolog"

	"fxpilot/market"
)

// Flag names, also used as keys in Result.Flags.
const (
	FlagHighConfStrategy = "high_conf_strategy"
	FlagKnownStrategy    = "known_strategy"
	FlagTrendAlignment   = "trend_alignment"
	FlagRRROk            = "rrr_ok"
)

// Weights is the fixed weight table. The weights sum to 5, but the two
// strategy flags are mutually exclusive, so 4 is the achievable ceiling.
var Weights = map[string]int{
	FlagHighConfStrategy: 2,
	FlagKnownStrategy:    1,
	FlagTrendAlignment:   1,
	FlagRRROk:            1,
}

// DefaultThreshold is the admission score unless a per-strategy override
// is configured.
const DefaultThreshold = 3

// Result is the scorer's full verdict, including the rationale trail,
// which is kept even on rejection so decisions stay auditable.
type Result struct {
	Passed    bool
	Score     int
	Flags     map[string]bool
	Rationale []string
}

// Scorer scores candidates against the weight table. HighConf is the set
// of strategy names granted the stronger strategy flag; a zero-value
// Scorer recognizes none and logs nowhere.
type Scorer struct {
	HighConf map[string]bool
	Logger   zerolog.Logger
}

func NewScorer(highConf []string, logger zerolog.Logger) *Scorer {
	set := make(map[string]bool, len(highConf))
	for _, name := range highConf {
		set[name] = true
	}
	return &Scorer{HighConf: set, Logger: logger}
}

// Score evaluates one candidate against a threshold. Each rule contributes
// at most one flag; the score is the sum of the weights of set flags.
func (s *Scorer) Score(c market.TradeCandidate, threshold int) Result {
	res := Result{Flags: make(map[string]bool)}

	// Strategy confidence. The two strategy flags are mutually exclusive;
	// only the strongest applies.
	switch {
	case s.HighConf[c.Strategy]:
		res.Flags[FlagHighConfStrategy] = true
		res.Rationale = append(res.Rationale, "high-confidence strategy (+2)")
	case c.Strategy != "":
		res.Flags[FlagKnownStrategy] = true
		res.Rationale = append(res.Rationale, "recognized strategy (+1)")
	}

	// Trend alignment. This checks entry/stop ordering against the trend
	// label, not trend data: an "up" candidate must stop below its entry.
	// Strategies rely on these exact semantics; do not tighten.
	switch {
	case c.Trend == market.TrendUp && c.Entry != 0 && c.Stop != 0 && c.Entry > c.Stop:
		res.Flags[FlagTrendAlignment] = true
		res.Rationale = append(res.Rationale, "aligned with uptrend (+1)")
	case c.Trend == market.TrendDown && c.Entry != 0 && c.Stop != 0 && c.Entry < c.Stop:
		res.Flags[FlagTrendAlignment] = true
		res.Rationale = append(res.Rationale, "aligned with downtrend (+1)")
	}

	// Reward:risk. Skipped entirely when any of the three prices is
	// missing; the ratio flag is never set on partial data.
	if c.Entry != 0 && c.Stop != 0 && c.Target != 0 {
		reward := abs(c.Target - c.Entry)
		risk := abs(c.Entry - c.Stop)
		if risk > 0 && reward/risk >= 1.0 {
			res.Flags[FlagRRROk] = true
			res.Rationale = append(res.Rationale, fmt.Sprintf("RRR ok (%.2f/%.2f) >= 1 (+1)", reward, risk))
		} else {
			res.Rationale = append(res.Rationale, fmt.Sprintf("RRR low (%.2f/%.2f)", reward, risk))
		}
	} else {
		res.Rationale = append(res.Rationale, "missing entry/stop/target for RRR check")
	}

	for flag, weight := range Weights {
		if res.Flags[flag] {
			res.Score += weight
		}
	}
	res.Passed = res.Score >= threshold

	s.trace(c, res, threshold)
	return res
}

func (s *Scorer) trace(c market.TradeCandidate, res Result, threshold int) {
	label := "rejected"
	if res.Passed {
		label = "passed"
	}
	ev := s.Logger.Debug().
		Str("instrument", c.Instrument).
		Str("strategy", c.Strategy).
		Int("score", res.Score).
		Int("threshold", threshold)
	for i, line := range res.Rationale {
		ev = ev.Str(fmt.Sprintf("rule_%d", i+1), line)
	}
	ev.Msg("confidence " + label)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
