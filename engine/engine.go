// Package engine drives the decision pipeline: every signal cycle it
// walks the configured instruments, evaluates their mapped strategies,
// and pushes each candidate through the confidence, cooldown and risk
// gates to at most one dispatch; every manage cycle it sweeps open
// positions. One goroutine runs both cycles sequentially, so no stage
// ever observes a half-applied decision.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fxpilot/broker"
	"fxpilot/config"
	"fxpilot/confidence"
	"fxpilot/cooldown"
	"fxpilot/executor"
	"fxpilot/lifecycle"
	"fxpilot/market"
	"fxpilot/notify"
	"fxpilot/perf"
	"fxpilot/pkg/id"
	"fxpilot/risk"
	"fxpilot/strategies"
)

const (
	candleCount = 100
	chartTail   = 20
)

// CycleReport counts unit outcomes for one signal cycle. A unit is one
// (instrument, strategy) pair.
type CycleReport struct {
	Scanned    int // units evaluated
	Skipped    int // no candidate, or cooldown active
	Rejected   int // failed validation, confidence or risk
	Dispatched int // orders accepted by the gateway
	Failed     int // gateway refusals, transport errors, panics
}

// Engine owns the wiring between the gateway and the decision stages.
// Store and Notifier are optional; a nil Store disables persistence and
// a nil Notifier disables alerts.
type Engine struct {
	Gateway    broker.Gateway
	Cfg        *config.Config
	Strategies map[string]strategies.Strategy
	Scorer     *confidence.Scorer
	Cooldowns  *cooldown.Registry
	Dispatcher *executor.Dispatcher
	Lifecycle  *lifecycle.Manager
	Ledger     *perf.Ledger
	Store      *perf.SQLiteStore
	Notifier   notify.Notifier
	Logger     zerolog.Logger

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

// New wires an engine from a validated config. Strategy names are
// resolved once here; an unknown name fails startup.
func New(gw broker.Gateway, cfg *config.Config, logger zerolog.Logger) (*Engine, error) {
	resolved, err := strategies.Resolve(cfg.StrategyNames())
	if err != nil {
		return nil, fmt.Errorf("resolve strategies: %w", err)
	}

	manage := lifecycle.Config{
		MaxDuration:          time.Duration(cfg.Manage.MaxDurationMinutes) * time.Minute,
		TrailTriggerPips:     cfg.Manage.TrailTriggerPips,
		TrailDistancePips:    cfg.Manage.TrailDistancePips,
		BreakevenTriggerPips: cfg.Manage.BreakevenTriggerPips,
	}

	return &Engine{
		Gateway:    gw,
		Cfg:        cfg,
		Strategies: resolved,
		Scorer:     confidence.NewScorer(cfg.HighConfStrategies, logger),
		Cooldowns:  cooldown.NewRegistry(),
		Dispatcher: executor.New(gw, cfg.Risk.MinBalance, logger),
		Lifecycle:  lifecycle.New(gw, manage, logger),
		Ledger:     perf.NewLedger(),
		Logger:     logger,
		Now:        time.Now,
	}, nil
}

// Run executes the signal cycle immediately, then alternates both cycles
// on their configured intervals until ctx is cancelled. Cycles never
// overlap.
func (e *Engine) Run(ctx context.Context) error {
	signalEvery, err := e.Cfg.Schedule.Signal()
	if err != nil {
		return fmt.Errorf("signal interval: %w", err)
	}
	manageEvery, err := e.Cfg.Schedule.Manage()
	if err != nil {
		return fmt.Errorf("manage interval: %w", err)
	}

	e.Logger.Info().
		Dur("signal_interval", signalEvery).
		Dur("manage_interval", manageEvery).
		Int("strategies", len(e.Strategies)).
		Msg("engine started")

	e.logReport(e.RunSignalCycle(ctx))

	signalTick := time.NewTicker(signalEvery)
	defer signalTick.Stop()
	manageTick := time.NewTicker(manageEvery)
	defer manageTick.Stop()

	for {
		select {
		case <-ctx.Done():
			e.Logger.Info().Msg("engine stopped")
			return nil
		case <-signalTick.C:
			e.logReport(e.RunSignalCycle(ctx))
		case <-manageTick.C:
			e.RunManageCycle(ctx)
		}
	}
}

// RunSignalCycle evaluates every configured (instrument, strategy) unit
// once. Faults in one unit are contained there; the rest of the cycle
// proceeds.
func (e *Engine) RunSignalCycle(ctx context.Context) CycleReport {
	var report CycleReport

	active, err := e.Gateway.ActiveInstruments(ctx)
	if err != nil {
		e.Logger.Error().Err(err).Msg("fetch active instruments")
		return report
	}

	for _, instrument := range active {
		names, ok := e.Cfg.Instruments[instrument]
		if !ok {
			continue
		}
		e.scanInstrument(ctx, instrument, names, &report)
	}
	return report
}

// scanInstrument builds the chart state once per instrument and runs
// each mapped strategy against it. A recover here contains chart-level
// faults to the instrument.
func (e *Engine) scanInstrument(ctx context.Context, instrument string, names []string, report *CycleReport) {
	defer func() {
		if r := recover(); r != nil {
			report.Failed++
			e.Logger.Error().Str("instrument", instrument).
				Interface("panic", r).Msg("instrument scan panicked")
		}
	}()

	candles, err := e.Gateway.Candles(ctx, instrument, candleCount)
	if err != nil {
		e.Logger.Error().Err(err).Str("instrument", instrument).Msg("fetch candles")
		return
	}
	if len(candles) == 0 {
		e.Logger.Warn().Str("instrument", instrument).Msg("no candle data, skipping")
		return
	}

	cs := market.BuildChartState(instrument, candles, chartTail)

	for _, name := range names {
		report.Scanned++
		e.evaluateUnit(ctx, cs, name, report)
	}
}

// evaluateUnit runs one strategy against the chart state and pushes any
// candidate through the gates. A panic in the strategy or a gate is
// charged to this unit only.
func (e *Engine) evaluateUnit(ctx context.Context, cs market.ChartState, name string, report *CycleReport) {
	defer func() {
		if r := recover(); r != nil {
			report.Failed++
			e.Logger.Error().Str("instrument", cs.Instrument).Str("strategy", name).
				Interface("panic", r).Msg("strategy unit panicked")
		}
	}()

	log := e.Logger.With().Str("instrument", cs.Instrument).Str("strategy", name).Logger()

	cand := e.Strategies[name].Evaluate(cs)
	if cand == nil {
		report.Skipped++
		return
	}
	// The pipeline keys on the unit, not on whatever the strategy wrote.
	cand.Instrument = cs.Instrument
	cand.Strategy = name

	if err := cand.Validate(); err != nil {
		report.Rejected++
		log.Error().Err(err).Msg("candidate rejected: validation")
		return
	}

	score := e.Scorer.Score(*cand, e.Cfg.ThresholdFor(name))
	if !score.Passed {
		report.Rejected++
		log.Info().Int("score", score.Score).Strs("rationale", score.Rationale).
			Msg("candidate rejected: confidence")
		return
	}

	key := cooldown.Key{Instrument: cs.Instrument, Strategy: name}
	if !e.Cooldowns.ShouldFire(key, e.Cfg.CooldownFor(name), e.now()) {
		report.Skipped++
		log.Debug().Msg("cooldown active, skipping")
		return
	}

	acct, err := e.Gateway.Account(ctx)
	if err != nil {
		report.Failed++
		log.Error().Err(err).Msg("fetch account")
		return
	}

	assessment := risk.Evaluate(cand.Entry, cand.Stop, cand.Target,
		acct.Balance, market.PipSize(cs.Instrument), e.Cfg.Limits())
	if !assessment.Valid {
		report.Rejected++
		log.Info().Str("reason", assessment.Reason).Msg("candidate rejected: risk")
		return
	}

	res, err := e.Dispatcher.Dispatch(ctx, *cand, assessment)
	if err != nil {
		report.Failed++
		log.Error().Err(err).Msg("dispatch error")
		return
	}
	if res.Status != executor.StatusSuccess {
		report.Failed++
		return
	}

	report.Dispatched++
	e.recordDecision(ctx, *cand, score, assessment, res)
	e.Cooldowns.RecordFired(key, e.now())
}

// recordDecision appends the executed decision to the ledger, persists
// it when a store is configured, and fires the alert. Persistence and
// alert failures are logged, never propagated: the order is already
// live.
func (e *Engine) recordDecision(ctx context.Context, c market.TradeCandidate, score confidence.Result, a risk.Assessment, res executor.Result) {
	rec := perf.Record{
		ID:          id.New(),
		Time:        e.now(),
		Instrument:  c.Instrument,
		Strategy:    c.Strategy,
		Confidence:  score.Score,
		Entry:       c.Entry,
		Stop:        c.Stop,
		Target:      c.Target,
		Price:       res.Price,
		Volume:      res.Volume,
		OrderID:     res.OrderID,
		RRR:         a.RRR,
		Trend:       c.Trend,
		VolumeSpike: c.VolumeSpike,
	}
	e.Ledger.Append(rec)

	if e.Store != nil {
		if err := e.Store.Append(rec); err != nil {
			e.Logger.Error().Err(err).Str("id", rec.ID).Msg("persist decision")
		}
	}

	if e.Notifier != nil {
		alert := notify.TradeAlert{
			Instrument: c.Instrument,
			Direction:  direction(c),
			Price:      res.Price,
			StopLoss:   res.StopLoss,
			TakeProfit: res.TakeProfit,
			Volume:     res.Volume,
			Strategy:   c.Strategy,
			OrderID:    res.OrderID,
		}
		if err := e.Notifier.Notify(ctx, alert); err != nil {
			e.Logger.Error().Err(err).Str("order_id", res.OrderID).Msg("send alert")
		}
	}
}

// RunManageCycle sweeps open positions per configured instrument. A
// fault on one instrument never stops the sweep.
func (e *Engine) RunManageCycle(ctx context.Context) {
	for instrument := range e.Cfg.Instruments {
		e.manageInstrument(ctx, instrument)
	}
}

func (e *Engine) manageInstrument(ctx context.Context, instrument string) {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error().Str("instrument", instrument).
				Interface("panic", r).Msg("manage sweep panicked")
		}
	}()

	if err := e.Lifecycle.ManageInstrument(ctx, instrument); err != nil {
		e.Logger.Error().Err(err).Str("instrument", instrument).Msg("manage sweep")
	}
}

func (e *Engine) logReport(r CycleReport) {
	e.Logger.Info().
		Int("scanned", r.Scanned).
		Int("skipped", r.Skipped).
		Int("rejected", r.Rejected).
		Int("dispatched", r.Dispatched).
		Int("failed", r.Failed).
		Msg("signal cycle complete")
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func direction(c market.TradeCandidate) string {
	if c.IsBuy() {
		return string(broker.Buy)
	}
	return string(broker.Sell)
}
