package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fxpilot/broker/bridge"
	"fxpilot/config"
	"fxpilot/engine"
	"fxpilot/notify"
	"fxpilot/perf"
)

func newRunCmd(rc *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the engine against the live terminal bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.loadConfig()
			if err != nil {
				return err
			}

			token := os.Getenv(cfg.Bridge.TokenEnv)
			if token == "" {
				return fmt.Errorf("bridge token not set (env %s)", cfg.Bridge.TokenEnv)
			}

			gw := bridge.NewClient(cfg.Bridge.BaseURL, token,
				bridge.WithTimeout(time.Duration(cfg.Bridge.TimeoutSecs)*time.Second),
				bridge.WithRateLimit(cfg.Bridge.RatePerSec),
			)

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
}

// attachSinks wires the optional decision sinks from config: SQLite
// persistence and the alert channel.
func attachSinks(e *engine.Engine, cfg *config.Config, rc *rootOptions) error {
	if cfg.Ledger.DBPath != "" {
		store, err := perf.NewSQLiteStore(cfg.Ledger.DBPath)
		if err != nil {
			return fmt.Errorf("open ledger db: %w", err)
		}
		e.Store = store
	}

	if cfg.Telegram.Enabled {
		token := os.Getenv(cfg.Telegram.TokenEnv)
		if token == "" {
			return fmt.Errorf("telegram token not set (env %s)", cfg.Telegram.TokenEnv)
		}
		e.Notifier = notify.NewTelegram(token, cfg.Telegram.ChatID)
	} else {
		e.Notifier = notify.LogNotifier{Logger: rc.Logger}
	}
	return nil
}

// detachSinks flushes the session: CSV export when configured, then the
// store handle.
func detachSinks(e *engine.Engine, cfg *config.Config, rc *rootOptions) {
	if cfg.Ledger.CSVPath != "" {
		if err := perf.ExportCSV(cfg.Ledger.CSVPath, e.Ledger.Records()); err != nil {
			rc.Logger.Error().Err(err).Str("path", cfg.Ledger.CSVPath).Msg("export csv")
		}
	}
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			rc.Logger.Error().Err(err).Msg("close ledger db")
		}
	}
}
