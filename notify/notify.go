// Package notify delivers best-effort trade alerts. Delivery failures
// are for logging only; they must never propagate into the dispatch
// path.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// TradeAlert is the structured summary sent after a successful dispatch.
type TradeAlert struct {
	Instrument string
	Direction  string
	Price      float64
	StopLoss   float64
	TakeProfit float64
	Volume     float64
	Strategy   string
	OrderID    string
}

type Notifier interface {
	Notify(ctx context.Context, alert TradeAlert) error
}

// LogNotifier writes alerts to the log. It is the fallback when no
// channel is configured.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, a TradeAlert) error {
	n.Logger.Info().
		Str("instrument", a.Instrument).
		Str("direction", a.Direction).
		Float64("price", a.Price).
		Float64("stop", a.StopLoss).
		Float64("target", a.TakeProfit).
		Float64("volume", a.Volume).
		Str("strategy", a.Strategy).
		Str("order_id", a.OrderID).
		Msg("trade placed")
	return nil
}
