package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxpilot/broker"
	"fxpilot/market"
)

func newGateway() *Gateway {
	return New(broker.Account{ID: "SIM-001", Currency: "USD", Balance: 10000, Equity: 10000})
}

func TestSubmitCreatesPosition(t *testing.T) {
	t.Parallel()

	g := newGateway()
	ctx := context.Background()

	opened := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	g.SetClock(func() time.Time { return opened })

	ticket, err := g.SubmitOrder(ctx, broker.OrderRequest{
		Instrument: "EUR_USD",
		Side:       broker.Buy,
		Volume:     0.5,
		Price:      1.2001,
		StopLoss:   1.1981,
		TakeProfit: 1.2061,
	})
	require.NoError(t, err)
	assert.True(t, ticket.Done())
	assert.NotEmpty(t, ticket.OrderID)

	positions, err := g.OpenPositions(ctx, "EUR_USD")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, broker.Buy, positions[0].Side)
	assert.Equal(t, opened, positions[0].OpenTime)
	assert.InDelta(t, 1.2001, positions[0].EntryPrice, 1e-9)
}

func TestRejectNextSubmit(t *testing.T) {
	t.Parallel()

	g := newGateway()
	ctx := context.Background()

	g.RejectNextSubmit("market closed")
	ticket, err := g.SubmitOrder(ctx, broker.OrderRequest{Instrument: "EUR_USD", Side: broker.Buy, Volume: 0.1})
	require.NoError(t, err)
	assert.False(t, ticket.Done())
	assert.Equal(t, "market closed", ticket.Reason)

	// One-shot: the next submit goes through.
	ticket, err = g.SubmitOrder(ctx, broker.OrderRequest{Instrument: "EUR_USD", Side: broker.Buy, Volume: 0.1})
	require.NoError(t, err)
	assert.True(t, ticket.Done())
}

func TestModifyAndClose(t *testing.T) {
	t.Parallel()

	g := newGateway()
	ctx := context.Background()

	ticket, err := g.SubmitOrder(ctx, broker.OrderRequest{
		Instrument: "XAU_USD", Side: broker.Sell, Volume: 1, Price: 2400, StopLoss: 2410, TakeProfit: 2380,
	})
	require.NoError(t, err)

	mod, err := g.ModifyPosition(ctx, ticket.OrderID, 2405, 2380)
	require.NoError(t, err)
	assert.True(t, mod.Done())

	positions, _ := g.OpenPositions(ctx, "XAU_USD")
	require.Len(t, positions, 1)
	assert.InDelta(t, 2405.0, positions[0].StopLoss, 1e-9)

	closed, err := g.ClosePosition(ctx, ticket.OrderID, "max duration")
	require.NoError(t, err)
	assert.True(t, closed.Done())

	positions, _ = g.OpenPositions(ctx, "XAU_USD")
	assert.Empty(t, positions)

	history := g.Closed()
	require.Len(t, history, 1)
	assert.Equal(t, "max duration", history[0].Reason)
}

func TestModifyUnknownTicket(t *testing.T) {
	t.Parallel()

	g := newGateway()
	ticket, err := g.ModifyPosition(context.Background(), "nope", 1, 2)
	require.NoError(t, err)
	assert.False(t, ticket.Done())
	assert.Equal(t, "position not found", ticket.Reason)
}

func TestMarketDataAccessors(t *testing.T) {
	t.Parallel()

	g := newGateway()
	ctx := context.Background()

	_, err := g.Tick(ctx, "EUR_USD")
	assert.ErrorIs(t, err, broker.ErrNoTick)

	g.SetTick(market.Tick{Instrument: "EUR_USD", Bid: 1.0849, Ask: 1.0851})
	g.SetTick(market.Tick{Instrument: "XAU_USD", Bid: 2399.8, Ask: 2400.2})

	tick, err := g.Tick(ctx, "EUR_USD")
	require.NoError(t, err)
	assert.InDelta(t, 1.0850, tick.Mid(), 1e-9)

	active, err := g.ActiveInstruments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"EUR_USD", "XAU_USD"}, active)

	meta, err := g.Instrument(ctx, "EUR_USD")
	require.NoError(t, err)
	assert.InDelta(t, 0.0001, meta.PipSize, 1e-12)

	_, err = g.Instrument(ctx, "BTC_USD")
	assert.ErrorIs(t, err, broker.ErrNoInstrument)

	candles := []market.Candle{{Close: 1}, {Close: 2}, {Close: 3}}
	g.SetCandles("EUR_USD", candles)
	got, err := g.Candles(ctx, "EUR_USD", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 2.0, got[0].Close, 1e-9)
}
