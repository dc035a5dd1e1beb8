// Package sim is an in-memory Gateway used by the paper subcommand and
// the test suites. It fills every accepted order instantly and keeps
// positions in a map guarded by one mutex, like the real gateway keeps
// them server-side.
package sim

import (
	"context"
	"sort"
	"sync"
	"time"

	"fxpilot/broker"
	"fxpilot/market"
	"fxpilot/pkg/id"
)

type Gateway struct {
	mu          sync.Mutex
	acct        broker.Account
	ticks       map[string]market.Tick
	candles     map[string][]market.Candle
	instruments map[string]market.InstrumentMeta
	positions   map[string]*broker.Position
	closed      []ClosedPosition

	clock func() time.Time

	// Fault injection for tests: when set, the next matching call
	// returns a non-done ticket with this reason, then clears.
	nextSubmitReject string
	nextModifyReject string
}

// ClosedPosition remembers why a position left the book.
type ClosedPosition struct {
	Position broker.Position
	Reason   string
	Time     time.Time
}

func New(acct broker.Account) *Gateway {
	return &Gateway{
		acct:        acct,
		ticks:       make(map[string]market.Tick),
		candles:     make(map[string][]market.Candle),
		instruments: make(map[string]market.InstrumentMeta),
		positions:   make(map[string]*broker.Position),
		clock:       time.Now,
	}
}

// SetClock replaces the gateway clock, letting tests control open times.
func (g *Gateway) SetClock(clock func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clock = clock
}

func (g *Gateway) SetTick(t market.Tick) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ticks[t.Instrument] = t
}

func (g *Gateway) SetCandles(instrument string, candles []market.Candle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.candles[instrument] = candles
}

func (g *Gateway) SetInstrument(meta market.InstrumentMeta) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.instruments[meta.Name] = meta
}

func (g *Gateway) SetBalance(balance float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.acct.Balance = balance
	g.acct.Equity = balance
}

func (g *Gateway) RejectNextSubmit(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextSubmitReject = reason
}

func (g *Gateway) RejectNextModify(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextModifyReject = reason
}

func (g *Gateway) Closed() []ClosedPosition {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ClosedPosition(nil), g.closed...)
}

func (g *Gateway) Account(ctx context.Context) (broker.Account, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.acct, nil
}

// ActiveInstruments returns every instrument with a quote, sorted for
// deterministic cycles.
func (g *Gateway) ActiveInstruments(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	names := make([]string, 0, len(g.ticks))
	for name := range g.ticks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (g *Gateway) Instrument(ctx context.Context, name string) (market.InstrumentMeta, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if meta, ok := g.instruments[name]; ok {
		return meta, nil
	}
	if meta, ok := market.Instruments[name]; ok {
		return meta, nil
	}
	return market.InstrumentMeta{}, broker.ErrNoInstrument
}

func (g *Gateway) Candles(ctx context.Context, instrument string, count int) ([]market.Candle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	candles := g.candles[instrument]
	if count > 0 && len(candles) > count {
		candles = candles[len(candles)-count:]
	}
	return append([]market.Candle(nil), candles...), nil
}

func (g *Gateway) Tick(ctx context.Context, instrument string) (market.Tick, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.ticks[instrument]
	if !ok {
		return market.Tick{}, broker.ErrNoTick
	}
	return t, nil
}

func (g *Gateway) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderTicket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.nextSubmitReject != "" {
		reason := g.nextSubmitReject
		g.nextSubmitReject = ""
		return broker.OrderTicket{Retcode: 10013, Reason: reason}, nil
	}

	ticket := id.New()
	g.positions[ticket] = &broker.Position{
		Ticket:     ticket,
		Instrument: req.Instrument,
		Side:       req.Side,
		Volume:     req.Volume,
		EntryPrice: req.Price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		OpenTime:   g.clock(),
	}

	return broker.OrderTicket{
		OrderID: ticket,
		Retcode: broker.RetcodeDone,
		Price:   req.Price,
	}, nil
}

func (g *Gateway) OpenPositions(ctx context.Context, instrument string) ([]broker.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []broker.Position
	for _, p := range g.positions {
		if instrument == "" || p.Instrument == instrument {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out, nil
}

func (g *Gateway) ModifyPosition(ctx context.Context, ticket string, stop, target float64) (broker.OrderTicket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.nextModifyReject != "" {
		reason := g.nextModifyReject
		g.nextModifyReject = ""
		return broker.OrderTicket{Retcode: 10013, Reason: reason}, nil
	}

	p, ok := g.positions[ticket]
	if !ok {
		return broker.OrderTicket{Retcode: 10013, Reason: "position not found"}, nil
	}
	p.StopLoss = stop
	p.TakeProfit = target

	return broker.OrderTicket{OrderID: ticket, Retcode: broker.RetcodeDone}, nil
}

func (g *Gateway) ClosePosition(ctx context.Context, ticket, reason string) (broker.OrderTicket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.positions[ticket]
	if !ok {
		return broker.OrderTicket{Retcode: 10013, Reason: "position not found"}, nil
	}
	delete(g.positions, ticket)
	g.closed = append(g.closed, ClosedPosition{Position: *p, Reason: reason, Time: g.clock()})

	return broker.OrderTicket{OrderID: ticket, Retcode: broker.RetcodeDone}, nil
}
