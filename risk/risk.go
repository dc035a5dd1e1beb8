// Package risk is the last hard gate before capital is committed: stop
// distance bounds, reward:risk floor and absolute size caps. Every check
// is enforced, never advisory, and a rejection ends the candidate's path
// for the cycle.
package risk

import (
	"fmt"
	"math"
)

// ErrInvalidInput reports non-positive sizing inputs.
var ErrInvalidInput = fmt.Errorf("risk: stop pips and pip value must be positive")

// Limits bounds what the engine will ever send to the gateway.
type Limits struct {
	RiskPercent float64 // percent of balance risked per trade
	MinRR       float64
	MinStopPips float64
	MaxStopPips float64
	MaxSize     float64
	MinBalance  float64 // dispatcher's balance floor
}

func DefaultLimits() Limits {
	return Limits{
		RiskPercent: 1.0,
		MinRR:       1.5,
		MinStopPips: 10,
		MaxStopPips: 300,
		MaxSize:     50,
		MinBalance:  5,
	}
}

// Assessment is the engine's verdict on one candidate. On rejection only
// Reason is meaningful; on success the pip distances and ratio are rounded
// for display while Size is the authoritative dispatch volume.
type Assessment struct {
	Valid      bool
	Reason     string
	Size       float64
	StopPips   float64
	TargetPips float64
	RRR        float64
}

// SizePosition computes position size from the account balance, the
// percent of it at risk, and the stop distance:
//
//	size = (balance * riskPercent/100) / (stopPips * pipValue)
//
// rounded to 2 decimals. Fails with ErrInvalidInput when stopPips or
// pipValue is not positive.
func SizePosition(balance, riskPercent, stopPips, pipValue float64) (float64, error) {
	if stopPips <= 0 || pipValue <= 0 {
		return 0, ErrInvalidInput
	}
	riskAmount := balance * (riskPercent / 100)
	return round2(riskAmount / (stopPips * pipValue)), nil
}

// Evaluate runs the sequential gates in fixed order, short-circuiting on
// the first violation: stop too tight, stop too wide, RRR too low, size
// not positive, size too large.
func Evaluate(entry, stop, target, balance, pipValue float64, lim Limits) Assessment {
	stopPips := math.Abs(entry-stop) / pipValue
	targetPips := math.Abs(target-entry) / pipValue

	if stopPips < lim.MinStopPips {
		return Assessment{Reason: fmt.Sprintf("stop too tight (%.2f pips)", stopPips)}
	}
	if stopPips > lim.MaxStopPips {
		return Assessment{Reason: fmt.Sprintf("stop too wide (%.2f pips)", stopPips)}
	}

	rrr := targetPips / stopPips
	if rrr < lim.MinRR {
		return Assessment{Reason: fmt.Sprintf("RRR too low (%.2f)", rrr)}
	}

	size, err := SizePosition(balance, lim.RiskPercent, stopPips, pipValue)
	if err != nil {
		return Assessment{Reason: err.Error()}
	}
	if size <= 0 {
		return Assessment{Reason: "position size is zero or negative"}
	}
	if size > lim.MaxSize {
		return Assessment{Reason: fmt.Sprintf("position size too large (%.2f)", size)}
	}

	return Assessment{
		Valid:      true,
		Size:       size,
		StopPips:   round1(stopPips),
		TargetPips: round1(targetPips),
		RRR:        round2(rrr),
	}
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }
