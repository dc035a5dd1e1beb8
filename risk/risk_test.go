package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizePositionInvalidInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		stopPips float64
		pipValue float64
	}{
		{"zero stop pips", 0, 0.0001},
		{"negative stop pips", -5, 0.0001},
		{"zero pip value", 20, 0},
		{"negative pip value", 20, -0.0001},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := SizePosition(10000, 1.0, tt.stopPips, tt.pipValue)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSizePositionProportionality(t *testing.T) {
	t.Parallel()

	base, err := SizePosition(10000, 1.0, 20, 10)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, base, 1e-9)

	// Linear in balance and risk percent.
	doubleBalance, _ := SizePosition(20000, 1.0, 20, 10)
	doubleRisk, _ := SizePosition(10000, 2.0, 20, 10)
	assert.InDelta(t, 2*base, doubleBalance, 1e-9)
	assert.InDelta(t, 2*base, doubleRisk, 1e-9)

	// Inversely proportional to stop pips and pip value.
	doubleStop, _ := SizePosition(10000, 1.0, 40, 10)
	doublePip, _ := SizePosition(10000, 1.0, 20, 20)
	assert.InDelta(t, base/2, doubleStop, 1e-9)
	assert.InDelta(t, base/2, doublePip, 1e-9)
}

func TestSizePositionRounding(t *testing.T) {
	t.Parallel()

	// 10000 * 0.01 / (30 * 10) = 0.3333... -> 0.33
	size, err := SizePosition(10000, 1.0, 30, 10)
	require.NoError(t, err)
	assert.InDelta(t, 0.33, size, 1e-9)
}

func TestEvaluateGateOrder(t *testing.T) {
	t.Parallel()

	lim := DefaultLimits()

	tests := []struct {
		name    string
		entry   float64
		stop    float64
		target  float64
		balance float64
		lim     Limits
		reason  string
	}{
		{
			name:  "stop too tight",
			entry: 1.2000, stop: 1.1998, target: 1.2050,
			balance: 10000, lim: lim,
			reason: "stop too tight (2.00 pips)",
		},
		{
			name:  "stop too wide",
			entry: 1.2000, stop: 1.1500, target: 1.3500,
			balance: 10000, lim: lim,
			reason: "stop too wide (500.00 pips)",
		},
		{
			name:  "rrr too low",
			entry: 1.2000, stop: 1.1980, target: 1.2010,
			balance: 10000, lim: lim,
			reason: "RRR too low (0.50)",
		},
		{
			name:  "size too large",
			entry: 1.2000, stop: 1.1980, target: 1.2060,
			balance: 10_000_000, lim: lim,
			// 10M * 1% / (20 * 0.0001) wildly exceeds MaxSize
			reason: "position size too large (50000000.00)",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Evaluate(tt.entry, tt.stop, tt.target, tt.balance, 0.0001, tt.lim)
			assert.False(t, got.Valid)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestEvaluateValid(t *testing.T) {
	t.Parallel()

	// Gold-scale pips: 20 pip stop, 60 pip target, RRR 3.0.
	// Size = 10000 * 1% / (20 * 0.1) = 50, exactly at the default cap.
	got := Evaluate(2400.0, 2398.0, 2406.0, 10000, 0.1, DefaultLimits())

	assert.True(t, got.Valid)
	assert.Empty(t, got.Reason)
	assert.InDelta(t, 20.0, got.StopPips, 1e-9)
	assert.InDelta(t, 60.0, got.TargetPips, 1e-9)
	assert.InDelta(t, 3.0, got.RRR, 1e-9)
	assert.InDelta(t, 50.0, got.Size, 1e-9)
}

func TestEvaluateSizeJustOverCapRejected(t *testing.T) {
	t.Parallel()

	// Same trade with a slightly higher balance pushes size past the cap.
	got := Evaluate(2400.0, 2398.0, 2406.0, 10100, 0.1, DefaultLimits())
	assert.False(t, got.Valid)
	assert.Contains(t, got.Reason, "size too large")
}
