package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fxpilot/perf"
)

func newReportCmd(rc *rootOptions) *cobra.Command {
	var (
		dbPath string
		date   string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the persisted decision ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.loadConfig()
			if err != nil {
				return err
			}

			path := dbPath
			if path == "" {
				path = cfg.Ledger.DBPath
			}
			if path == "" {
				return fmt.Errorf("no ledger database configured (use --db)")
			}

			store, err := perf.NewSQLiteStore(path)
			if err != nil {
				return fmt.Errorf("open ledger db: %w", err)
			}
			defer store.Close()

			records, err := store.LoadAll()
			if err != nil {
				return fmt.Errorf("load records: %w", err)
			}

			if date != "" {
				records = perf.FilterDay(records, date)
			}

			fmt.Fprintln(cmd.OutOrStdout(), perf.Summarize(records).String())
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Ledger database path (defaults to the configured one)")
	cmd.Flags().StringVar(&date, "date", "", "Restrict to one day (YYYY-MM-DD)")
	return cmd
}
