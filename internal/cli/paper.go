package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fxpilot/broker"
	"fxpilot/broker/sim"
	"fxpilot/engine"
	"fxpilot/market"
)

// paperQuotes are plausible starting quotes for the built-in demo feed.
var paperQuotes = map[string][2]float64{
	"EUR_USD": {1.0849, 1.0851},
	"GBP_USD": {1.2649, 1.2652},
	"USD_JPY": {149.48, 149.52},
	"XAU_USD": {2399.8, 2400.2},
}

func newPaperCmd(rc *rootOptions) *cobra.Command {
	var balance float64

	cmd := &cobra.Command{
		Use:   "paper",
		Short: "Run the engine against an in-memory simulated gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.loadConfig()
			if err != nil {
				return err
			}

			gw := sim.New(broker.Account{ID: "PAPER-001", Currency: "USD", Balance: balance})
			seedPaperGateway(gw, cfg.InstrumentNames())

			e, err := engine.New(gw, cfg, rc.Logger)
			if err != nil {
				return err
			}
			if err := attachSinks(e, cfg, rc); err != nil {
				return err
			}
			defer detachSinks(e, cfg, rc)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return e.Run(ctx)
		},
	}

	cmd.Flags().Float64Var(&balance, "balance", 10000, "Starting account balance")
	return cmd
}

// seedPaperGateway loads a quote and a flat candle history for every
// configured instrument that has a known starting quote.
func seedPaperGateway(gw *sim.Gateway, instruments []string) {
	now := time.Now().UTC().Truncate(5 * time.Minute)

	for _, name := range instruments {
		q, ok := paperQuotes[name]
		if !ok {
			continue
		}
		bid, ask := q[0], q[1]
		mid := (bid + ask) / 2

		gw.SetTick(market.Tick{
			Instrument: name,
			Time:       now,
			Bid:        bid,
			Ask:        ask,
		})

		candles := make([]market.Candle, 0, 50)
		for i := 49; i >= 0; i-- {
			candles = append(candles, market.Candle{
				Time:   now.Add(-time.Duration(i) * 5 * time.Minute),
				Open:   mid,
				High:   mid,
				Low:    mid,
				Close:  mid,
				Volume: 100,
			})
		}
		gw.SetCandles(name, candles)
	}
}
