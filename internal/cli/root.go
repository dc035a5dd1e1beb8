// Package cli wires the fxpilot command tree: run (live bridge), paper
// (simulated gateway), report (ledger summaries).
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fxpilot/config"
)

type rootOptions struct {
	ConfigPath string
	EnvFile    string
	LogLevel   string
	NoColor    bool

	Logger zerolog.Logger
}

// loadConfig resolves the effective configuration: the --config file
// when given, defaults otherwise.
func (rc *rootOptions) loadConfig() (*config.Config, error) {
	if rc.ConfigPath == "" {
		return config.Default(), nil
	}
	return config.Load(rc.ConfigPath)
}

func NewRootCmd() *cobra.Command {
	rc := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "fxpilot",
		Short:         "fxpilot — signal evaluation and trade lifecycle engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.EnvFile, "env-file", ".env", "Env file with secrets (ignored when missing)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().BoolVar(&rc.NoColor, "no-color", false, "Disable colored output")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(rc.EnvFile); err == nil {
			if err := godotenv.Load(rc.EnvFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
		}

		level, err := zerolog.ParseLevel(rc.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", rc.LogLevel)
		}

		writer := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: rc.NoColor}
		rc.Logger = zerolog.New(writer).Level(level).With().Timestamp().Logger()
		return nil
	}

	cmd.AddCommand(
		newRunCmd(rc),
		newPaperCmd(rc),
		newReportCmd(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("fxpilot (dev)")
		},
	})

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
