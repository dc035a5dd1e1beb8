package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxpilot/config"
	"fxpilot/perf"
)

func writeConfigWithoutDB(path string) error {
	cfg := config.Default()
	cfg.Ledger.DBPath = ""
	return cfg.SaveToFile(path)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestReportFromDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	store, err := perf.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Append(perf.Record{
		ID:         "01J0000000000000000000TEST",
		Time:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Instrument: "XAU_USD",
		Strategy:   "fib_fvg",
		Confidence: 4,
		RRR:        3.0,
		PnL:        30,
		Result:     perf.ResultWin,
	}))
	require.NoError(t, store.Close())

	out, err := execute(t, "report", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Total Trades: 1")
	assert.Contains(t, out, "XAU_USD: 1")

	out, err = execute(t, "report", "--db", dbPath, "--date", "2026-08-02")
	require.NoError(t, err)
	assert.Contains(t, out, "no trades to summarize")
}

func TestReportWithoutDB(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, writeConfigWithoutDB(cfgPath))

	_, err := execute(t, "--config", cfgPath, "report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ledger database configured")
}
