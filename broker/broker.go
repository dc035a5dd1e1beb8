package broker

import (
	"context"
	"errors"
	"time"

	"fxpilot/market"
)

var (
	ErrNoTick       = errors.New("no tick available")
	ErrNoInstrument = errors.New("unknown instrument")
)

// Retcode is the gateway's order result code. The values mirror the
// terminal's wire protocol; only Done means the request was accepted.
type Retcode int

const RetcodeDone Retcode = 10009

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Opposite returns the side that closes a position opened on s.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Gateway is the engine's only door to the outside world: market data,
// account state and order routing. All calls block; implementations must
// bound their own timeouts.
type Gateway interface {
	Account(ctx context.Context) (Account, error)
	ActiveInstruments(ctx context.Context) ([]string, error)
	Instrument(ctx context.Context, name string) (market.InstrumentMeta, error)
	Candles(ctx context.Context, instrument string, count int) ([]market.Candle, error)
	Tick(ctx context.Context, instrument string) (market.Tick, error)

	SubmitOrder(ctx context.Context, req OrderRequest) (OrderTicket, error)
	OpenPositions(ctx context.Context, instrument string) ([]Position, error)
	ModifyPosition(ctx context.Context, ticket string, stop, target float64) (OrderTicket, error)
	ClosePosition(ctx context.Context, ticket, reason string) (OrderTicket, error)
}

type Account struct {
	ID       string
	Currency string
	Balance  float64
	Equity   float64
}

// OrderRequest is a fully normalized market order: price, stop and target
// are final values the dispatcher already anchored to a live quote.
type OrderRequest struct {
	Instrument string
	Side       Side
	Volume     float64
	Price      float64
	StopLoss   float64
	TakeProfit float64
	Comment    string
}

// OrderTicket is the gateway's answer to a submit/modify/close request.
// Reason carries the gateway's own words verbatim when Retcode != Done.
type OrderTicket struct {
	OrderID string
	Retcode Retcode
	Reason  string
	Price   float64
}

func (t OrderTicket) Done() bool {
	return t.Retcode == RetcodeDone
}

// Position is the gateway-owned view of one open trade. The engine never
// caches these; it re-fetches before every management decision.
type Position struct {
	Ticket     string
	Instrument string
	Side       Side
	Volume     float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	OpenTime   time.Time
}
