package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxpilot/broker"
	"fxpilot/broker/sim"
	"fxpilot/market"
)

var t0 = time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

func newManager(cfg Config) (*Manager, *sim.Gateway) {
	g := sim.New(broker.Account{ID: "SIM", Currency: "USD", Balance: 10000, Equity: 10000})
	m := New(g, cfg, zerolog.Nop())
	m.Now = func() time.Time { return t0 }
	return m, g
}

func openPosition(t *testing.T, g *sim.Gateway, req broker.OrderRequest, at time.Time) string {
	t.Helper()
	g.SetClock(func() time.Time { return at })
	ticket, err := g.SubmitOrder(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ticket.Done())
	return ticket.OrderID
}

func stopOf(t *testing.T, g *sim.Gateway, instrument string) float64 {
	t.Helper()
	positions, err := g.OpenPositions(context.Background(), instrument)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	return positions[0].StopLoss
}

func TestTrailingStopAdvancesLong(t *testing.T) {
	t.Parallel()

	m, g := newManager(Config{
		MaxDuration:          4 * time.Hour,
		TrailTriggerPips:     20,
		TrailDistancePips:    15,
		BreakevenTriggerPips: 25,
	})

	openPosition(t, g, broker.OrderRequest{
		Instrument: "EUR_USD", Side: broker.Buy, Volume: 0.5,
		Price: 1.2000, StopLoss: 1.1980, TakeProfit: 1.2100,
	}, t0.Add(-time.Hour))

	// 25 pips of profit on the ask.
	g.SetTick(market.Tick{Instrument: "EUR_USD", Bid: 1.2023, Ask: 1.2025})

	require.NoError(t, m.ManageInstrument(context.Background(), "EUR_USD"))

	// New stop = 1.2025 - 15 pips = 1.2010; breakeven then sees a stop
	// already above entry and leaves it alone.
	assert.InDelta(t, 1.2010, stopOf(t, g, "EUR_USD"), 1e-9)
}

func TestTrailingStopNeverRetreats(t *testing.T) {
	t.Parallel()

	m, g := newManager(Config{
		MaxDuration:          4 * time.Hour,
		TrailTriggerPips:     20,
		TrailDistancePips:    15,
		BreakevenTriggerPips: 100,
	})

	// Stop already ahead of the trail candidate.
	openPosition(t, g, broker.OrderRequest{
		Instrument: "EUR_USD", Side: broker.Buy, Volume: 0.5,
		Price: 1.2000, StopLoss: 1.2015, TakeProfit: 1.2100,
	}, t0.Add(-time.Hour))

	g.SetTick(market.Tick{Instrument: "EUR_USD", Bid: 1.2023, Ask: 1.2025})

	require.NoError(t, m.ManageInstrument(context.Background(), "EUR_USD"))
	assert.InDelta(t, 1.2015, stopOf(t, g, "EUR_USD"), 1e-9, "stop must not move backward")
}

func TestTrailingStopShort(t *testing.T) {
	t.Parallel()

	m, g := newManager(Config{
		MaxDuration:          4 * time.Hour,
		TrailTriggerPips:     20,
		TrailDistancePips:    15,
		BreakevenTriggerPips: 100,
	})

	openPosition(t, g, broker.OrderRequest{
		Instrument: "XAU_USD", Side: broker.Sell, Volume: 1,
		Price: 2400.0, StopLoss: 2410.0, TakeProfit: 2380.0,
	}, t0.Add(-time.Hour))

	// Shorts are marked on the bid: 30 pips of profit at pip size 0.1.
	g.SetTick(market.Tick{Instrument: "XAU_USD", Bid: 2397.0, Ask: 2397.4})

	require.NoError(t, m.ManageInstrument(context.Background(), "XAU_USD"))
	// New stop = 2397.0 + 15 * 0.1 = 2398.5, below the old 2410.
	assert.InDelta(t, 2398.5, stopOf(t, g, "XAU_USD"), 1e-9)
}

func TestTrailingStopBelowTriggerNoAction(t *testing.T) {
	t.Parallel()

	m, g := newManager(DefaultConfig())

	openPosition(t, g, broker.OrderRequest{
		Instrument: "EUR_USD", Side: broker.Buy, Volume: 0.5,
		Price: 1.2000, StopLoss: 1.1980, TakeProfit: 1.2100,
	}, t0.Add(-time.Hour))

	// 10 pips of profit, trigger is 20.
	g.SetTick(market.Tick{Instrument: "EUR_USD", Bid: 1.2008, Ask: 1.2010})

	require.NoError(t, m.ManageInstrument(context.Background(), "EUR_USD"))
	assert.InDelta(t, 1.1980, stopOf(t, g, "EUR_USD"), 1e-9)
}

func TestBreakevenPromotion(t *testing.T) {
	t.Parallel()

	m, g := newManager(Config{
		MaxDuration:          4 * time.Hour,
		TrailTriggerPips:     100, // keep trailing out of the way
		TrailDistancePips:    15,
		BreakevenTriggerPips: 25,
	})

	openPosition(t, g, broker.OrderRequest{
		Instrument: "EUR_USD", Side: broker.Buy, Volume: 0.5,
		Price: 1.2000, StopLoss: 1.1980, TakeProfit: 1.2100,
	}, t0.Add(-time.Hour))

	g.SetTick(market.Tick{Instrument: "EUR_USD", Bid: 1.2023, Ask: 1.2025})

	require.NoError(t, m.ManageInstrument(context.Background(), "EUR_USD"))
	assert.InDelta(t, 1.2000, stopOf(t, g, "EUR_USD"), 1e-9, "stop moved to entry")
}

func TestBreakevenNotBeforeTrigger(t *testing.T) {
	t.Parallel()

	m, g := newManager(Config{
		MaxDuration:          4 * time.Hour,
		TrailTriggerPips:     100,
		TrailDistancePips:    15,
		BreakevenTriggerPips: 25,
	})

	openPosition(t, g, broker.OrderRequest{
		Instrument: "EUR_USD", Side: broker.Buy, Volume: 0.5,
		Price: 1.2000, StopLoss: 1.1980, TakeProfit: 1.2100,
	}, t0.Add(-time.Hour))

	// 24 pips: one short of the trigger.
	g.SetTick(market.Tick{Instrument: "EUR_USD", Bid: 1.2022, Ask: 1.2024})

	require.NoError(t, m.ManageInstrument(context.Background(), "EUR_USD"))
	assert.InDelta(t, 1.1980, stopOf(t, g, "EUR_USD"), 1e-9)
}

func TestMaxDurationClose(t *testing.T) {
	t.Parallel()

	m, g := newManager(DefaultConfig()) // 240 minutes

	expired := openPosition(t, g, broker.OrderRequest{
		Instrument: "EUR_USD", Side: broker.Buy, Volume: 0.5,
		Price: 1.2000, StopLoss: 1.1980, TakeProfit: 1.2100,
	}, t0.Add(-241*time.Minute))

	g.SetTick(market.Tick{Instrument: "EUR_USD", Bid: 1.2000, Ask: 1.2002})

	require.NoError(t, m.ManageInstrument(context.Background(), "EUR_USD"))

	positions, _ := g.OpenPositions(context.Background(), "EUR_USD")
	assert.Empty(t, positions)

	closed := g.Closed()
	require.Len(t, closed, 1)
	assert.Equal(t, expired, closed[0].Position.Ticket)
	assert.Equal(t, "max duration exceeded", closed[0].Reason)
}

func TestMaxDurationNotYetElapsed(t *testing.T) {
	t.Parallel()

	m, g := newManager(DefaultConfig())

	openPosition(t, g, broker.OrderRequest{
		Instrument: "EUR_USD", Side: broker.Buy, Volume: 0.5,
		Price: 1.2000, StopLoss: 1.1980, TakeProfit: 1.2100,
	}, t0.Add(-100*time.Minute))

	g.SetTick(market.Tick{Instrument: "EUR_USD", Bid: 1.2000, Ask: 1.2002})

	require.NoError(t, m.ManageInstrument(context.Background(), "EUR_USD"))

	positions, _ := g.OpenPositions(context.Background(), "EUR_USD")
	assert.Len(t, positions, 1)
}

func TestModifyRefusalIsNotRetriedWithinCycle(t *testing.T) {
	t.Parallel()

	m, g := newManager(Config{
		MaxDuration:          4 * time.Hour,
		TrailTriggerPips:     20,
		TrailDistancePips:    15,
		BreakevenTriggerPips: 100,
	})

	openPosition(t, g, broker.OrderRequest{
		Instrument: "EUR_USD", Side: broker.Buy, Volume: 0.5,
		Price: 1.2000, StopLoss: 1.1980, TakeProfit: 1.2100,
	}, t0.Add(-time.Hour))

	g.SetTick(market.Tick{Instrument: "EUR_USD", Bid: 1.2023, Ask: 1.2025})
	g.RejectNextModify("trade context busy")

	// The refusal is logged, not returned, and the stop stays put.
	require.NoError(t, m.ManageInstrument(context.Background(), "EUR_USD"))
	assert.InDelta(t, 1.1980, stopOf(t, g, "EUR_USD"), 1e-9)
}
