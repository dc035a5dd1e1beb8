// Package executor normalizes an admitted candidate to the instrument's
// trading constraints, anchors stop and target to a live quote, and
// submits exactly one order. There is no retry: a failed submit is
// terminal for the cycle.
package executor

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"fxpilot/broker"
	"fxpilot/market"
	"fxpilot/risk"
)

type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusRejected Status = "rejected"
)

// Result classifies one dispatch attempt. Price/StopLoss/TakeProfit are
// the final normalized values that went to (or would have gone to) the
// gateway; Reason carries the gateway's words verbatim on failure.
type Result struct {
	Status     Status
	OrderID    string
	Price      float64
	StopLoss   float64
	TakeProfit float64
	Volume     float64
	Reason     string
	Retcode    broker.Retcode
}

type Dispatcher struct {
	Gateway    broker.Gateway
	MinBalance float64
	Logger     zerolog.Logger
}

func New(gw broker.Gateway, minBalance float64, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{Gateway: gw, MinBalance: minBalance, Logger: logger}
}

// Dispatch submits one admitted candidate. Transport errors come back as
// the error return; everything the gateway answered, including refusals,
// is classified in the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, c market.TradeCandidate, a risk.Assessment) (Result, error) {
	acct, err := d.Gateway.Account(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch account: %w", err)
	}
	if acct.Balance < d.MinBalance {
		d.Logger.Warn().Str("instrument", c.Instrument).Float64("balance", acct.Balance).
			Msg("skipping dispatch: insufficient balance")
		return Result{Status: StatusFailed, Reason: "insufficient balance"}, nil
	}

	meta, err := d.Gateway.Instrument(ctx, c.Instrument)
	if err != nil {
		return Result{}, fmt.Errorf("fetch instrument %s: %w", c.Instrument, err)
	}

	tick, err := d.Gateway.Tick(ctx, c.Instrument)
	if err != nil {
		return Result{}, fmt.Errorf("fetch tick %s: %w", c.Instrument, err)
	}

	volume := NormalizeVolume(a.Size, meta)

	side := broker.Sell
	price := tick.Bid
	if c.IsBuy() {
		side = broker.Buy
		price = tick.Ask
	}

	// Re-anchor stop/target to the live fill price. The originally
	// proposed prices were computed against a stale chart; keeping their
	// distances from the live quote, floored at the broker's minimum stop
	// distance, avoids placements the gateway would refuse.
	minDist := MinStopDistance(meta)
	stopDiff := math.Max(math.Abs(price-c.Stop), minDist)
	targetDiff := math.Max(math.Abs(c.Target-price), minDist)

	var stop, target float64
	if side == broker.Buy {
		stop = price - stopDiff
		target = price + targetDiff
	} else {
		stop = price + stopDiff
		target = price - targetDiff
	}

	req := broker.OrderRequest{
		Instrument: c.Instrument,
		Side:       side,
		Volume:     volume,
		Price:      price,
		StopLoss:   roundDigits(stop, meta.Digits),
		TakeProfit: roundDigits(target, meta.Digits),
		Comment:    fmt.Sprintf("fxpilot_%s", c.Strategy),
	}

	ticket, err := d.Gateway.SubmitOrder(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("submit order %s: %w", c.Instrument, err)
	}

	res := Result{
		OrderID:    ticket.OrderID,
		Price:      price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Volume:     volume,
		Retcode:    ticket.Retcode,
	}

	if !ticket.Done() {
		res.Status = StatusFailed
		res.Reason = ticket.Reason
		d.Logger.Error().Str("instrument", c.Instrument).Str("strategy", c.Strategy).
			Int("retcode", int(ticket.Retcode)).Str("reason", ticket.Reason).
			Msg("order submit failed")
		return res, nil
	}

	res.Status = StatusSuccess
	d.Logger.Info().Str("instrument", c.Instrument).Str("strategy", c.Strategy).
		Str("order_id", ticket.OrderID).Str("side", string(side)).
		Float64("price", price).Float64("volume", volume).
		Msg("order executed")
	return res, nil
}

// NormalizeVolume snaps a requested size to the instrument's volume
// constraints: round to the nearest step, floor to the minimum, cap at
// the maximum.
func NormalizeVolume(v float64, meta market.InstrumentMeta) float64 {
	if meta.VolumeStep > 0 {
		v = math.Round(v/meta.VolumeStep) * meta.VolumeStep
		// Re-round to kill float drift from the multiply.
		digits := stepDigits(meta.VolumeStep)
		v = roundDigits(v, digits)
	}
	if meta.VolumeMin > 0 && v < meta.VolumeMin {
		v = meta.VolumeMin
	}
	if meta.VolumeMax > 0 && v > meta.VolumeMax {
		v = meta.VolumeMax
	}
	return v
}

// MinStopDistance returns the broker-reported minimum stop distance, or a
// conservative fallback when the gateway reported none: 1.5 for gold,
// 0.0003 otherwise.
func MinStopDistance(meta market.InstrumentMeta) float64 {
	if meta.MinStopDistance > 0 {
		return meta.MinStopDistance
	}
	if strings.HasPrefix(meta.Name, "XAU") {
		return 1.5
	}
	return 0.0003
}

func roundDigits(x float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(x*scale) / scale
}

// stepDigits is the smallest d such that step*10^d is integral, so
// re-rounding to d digits preserves exact step multiples (0.25 needs 2,
// not 1).
func stepDigits(step float64) int {
	digits := 0
	for digits < 8 {
		scaled := step * math.Pow(10, float64(digits))
		if math.Abs(scaled-math.Round(scaled)) < 1e-9 {
			break
		}
		digits++
	}
	return digits
}
