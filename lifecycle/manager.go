// Package lifecycle re-evaluates every open position once per management
// cycle: forced close past the maximum duration, trailing stop
// advancement, breakeven promotion. The manager is stateless across
// cycles; it always re-derives its decision from the gateway's live view,
// so a failed modification is simply retried by the next cycle.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fxpilot/broker"
	"fxpilot/market"
)

type Config struct {
	MaxDuration          time.Duration
	TrailTriggerPips     float64
	TrailDistancePips    float64
	BreakevenTriggerPips float64
}

func DefaultConfig() Config {
	return Config{
		MaxDuration:          240 * time.Minute,
		TrailTriggerPips:     20,
		TrailDistancePips:    15,
		BreakevenTriggerPips: 25,
	}
}

type Manager struct {
	Gateway broker.Gateway
	Cfg     Config
	Logger  zerolog.Logger
	Now     func() time.Time
}

func New(gw broker.Gateway, cfg Config, logger zerolog.Logger) *Manager {
	return &Manager{Gateway: gw, Cfg: cfg, Logger: logger, Now: time.Now}
}

// ManageInstrument runs the three checks over every open position on one
// instrument. Gateway refusals are logged and left for the next cycle;
// only transport errors propagate.
func (m *Manager) ManageInstrument(ctx context.Context, instrument string) error {
	positions, err := m.Gateway.OpenPositions(ctx, instrument)
	if err != nil {
		return fmt.Errorf("fetch positions %s: %w", instrument, err)
	}
	if len(positions) == 0 {
		return nil
	}

	pip := market.PipSize(instrument)

	for i := range positions {
		pos := &positions[i]

		// Max-duration close wins over everything else for this cycle.
		if m.Now().Sub(pos.OpenTime) > m.Cfg.MaxDuration {
			m.closeExpired(ctx, pos)
			continue
		}

		tick, err := m.Gateway.Tick(ctx, instrument)
		if err != nil {
			m.Logger.Error().Err(err).Str("instrument", instrument).Msg("no tick for position management")
			continue
		}

		price := tick.Bid
		if pos.Side == broker.Buy {
			price = tick.Ask
		}

		profitPips := (price - pos.EntryPrice) / pip
		if pos.Side == broker.Sell {
			profitPips = (pos.EntryPrice - price) / pip
		}

		m.trail(ctx, pos, price, profitPips, pip)
		m.breakeven(ctx, pos, profitPips)
	}
	return nil
}

func (m *Manager) closeExpired(ctx context.Context, pos *broker.Position) {
	ticket, err := m.Gateway.ClosePosition(ctx, pos.Ticket, "max duration exceeded")
	if err != nil || !ticket.Done() {
		m.Logger.Error().Str("ticket", pos.Ticket).Str("instrument", pos.Instrument).
			AnErr("err", err).Str("reason", ticket.Reason).
			Msg("failed to close expired position")
		return
	}
	m.Logger.Info().Str("ticket", pos.Ticket).Str("instrument", pos.Instrument).
		Msg("closed position past max duration")
}

// trail moves the stop to TrailDistancePips behind the current price once
// profit reaches TrailTriggerPips. A stop only ever advances: the
// candidate stop must be strictly more favorable than the current one.
func (m *Manager) trail(ctx context.Context, pos *broker.Position, price, profitPips, pip float64) {
	if profitPips < m.Cfg.TrailTriggerPips {
		return
	}

	newStop := price - m.Cfg.TrailDistancePips*pip
	if pos.Side == broker.Sell {
		newStop = price + m.Cfg.TrailDistancePips*pip
	}

	better := newStop > pos.StopLoss
	if pos.Side == broker.Sell {
		better = pos.StopLoss == 0 || newStop < pos.StopLoss
	}
	if !better {
		return
	}

	m.modifyStop(ctx, pos, newStop, "trailing stop advanced")
}

// breakeven moves the stop to the entry price once profit reaches the
// trigger, unless the stop already protects at least the entry.
func (m *Manager) breakeven(ctx context.Context, pos *broker.Position, profitPips float64) {
	if profitPips < m.Cfg.BreakevenTriggerPips {
		return
	}

	if pos.Side == broker.Buy && pos.StopLoss >= pos.EntryPrice {
		return
	}
	if pos.Side == broker.Sell && pos.StopLoss != 0 && pos.StopLoss <= pos.EntryPrice {
		return
	}

	m.modifyStop(ctx, pos, pos.EntryPrice, "stop moved to breakeven")
}

func (m *Manager) modifyStop(ctx context.Context, pos *broker.Position, newStop float64, what string) {
	ticket, err := m.Gateway.ModifyPosition(ctx, pos.Ticket, newStop, pos.TakeProfit)
	if err != nil || !ticket.Done() {
		m.Logger.Error().Str("ticket", pos.Ticket).Str("instrument", pos.Instrument).
			Float64("new_stop", newStop).AnErr("err", err).Str("reason", ticket.Reason).
			Msg("stop modification refused")
		return
	}
	m.Logger.Info().Str("ticket", pos.Ticket).Str("instrument", pos.Instrument).
		Float64("new_stop", newStop).Msg(what)
	// Keep the local copy current so the breakeven check that follows a
	// trail in the same cycle sees the advanced stop.
	pos.StopLoss = newStop
}
