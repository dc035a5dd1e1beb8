package market

import "strings"

// InstrumentMeta describes the trading constraints the gateway reports for
// one symbol. MinStopDistance is in price units; zero means the broker did
// not report one and the dispatcher falls back to a conservative value.
type InstrumentMeta struct {
	Name            string
	PipSize         float64
	Digits          int
	VolumeMin       float64
	VolumeMax       float64
	VolumeStep      float64
	MinStopDistance float64
}

var Instruments = map[string]InstrumentMeta{
	"EUR_USD": {
		Name:       "EUR_USD",
		PipSize:    0.0001,
		Digits:     5,
		VolumeMin:  0.01,
		VolumeMax:  100,
		VolumeStep: 0.01,
	},
	"GBP_USD": {
		Name:       "GBP_USD",
		PipSize:    0.0001,
		Digits:     5,
		VolumeMin:  0.01,
		VolumeMax:  100,
		VolumeStep: 0.01,
	},
	"USD_JPY": {
		Name:       "USD_JPY",
		PipSize:    0.01,
		Digits:     3,
		VolumeMin:  0.01,
		VolumeMax:  100,
		VolumeStep: 0.01,
	},
	"XAU_USD": {
		Name:       "XAU_USD",
		PipSize:    0.1,
		Digits:     2,
		VolumeMin:  0.01,
		VolumeMax:  50,
		VolumeStep: 0.01,
	},
}

// PipSize returns the pip size for a symbol, falling back on naming
// conventions when the symbol is not in the static table: gold trades in
// 0.1 increments, JPY quotes in 0.01, everything else in 0.0001.
func PipSize(instrument string) float64 {
	if meta, ok := Instruments[instrument]; ok {
		return meta.PipSize
	}
	switch {
	case strings.HasPrefix(instrument, "XAU"):
		return 0.1
	case strings.HasSuffix(instrument, "JPY"):
		return 0.01
	default:
		return 0.0001
	}
}
