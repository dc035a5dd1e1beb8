package market

const (
	GapBullish = "bullish"
	GapBearish = "bearish"

	TrendUp   = "up"
	TrendDown = "down"
)

// FairValueGap marks a price level where two candles ago left an unfilled
// gap against the candle that followed.
type FairValueGap struct {
	Price float64
	Kind  string
}

// ChartState bundles everything a strategy gets to look at for one
// instrument: recent candles, detected gaps, a coarse trend label and the
// tail of the volume series. Strategies must treat it as read-only.
type ChartState struct {
	Instrument string
	Candles    []Candle
	Gaps       []FairValueGap
	Trend      string
	Volumes    []float64
}

// DetectGaps finds fair value gaps with the two-candle rule: a low above
// the high two bars back is a bullish gap, a high below the low two bars
// back is a bearish one.
func DetectGaps(candles []Candle) []FairValueGap {
	var gaps []FairValueGap
	for i := 2; i < len(candles); i++ {
		switch {
		case candles[i].Low > candles[i-2].High:
			gaps = append(gaps, FairValueGap{Price: candles[i].Low, Kind: GapBullish})
		case candles[i].High < candles[i-2].Low:
			gaps = append(gaps, FairValueGap{Price: candles[i].High, Kind: GapBearish})
		}
	}
	return gaps
}

// TrendLabel classifies the series by the sign of last close minus first
// close. This is deliberately coarse; it feeds the candidate consistency
// check, not a trading decision.
func TrendLabel(candles []Candle) string {
	if len(candles) == 0 {
		return ""
	}
	if candles[len(candles)-1].Close-candles[0].Close > 0 {
		return TrendUp
	}
	return TrendDown
}

// BuildChartState assembles the strategy input from a candle series,
// keeping the last `tail` candles and volumes.
func BuildChartState(instrument string, candles []Candle, tail int) ChartState {
	cs := ChartState{
		Instrument: instrument,
		Gaps:       DetectGaps(candles),
		Trend:      TrendLabel(candles),
	}

	if tail > 0 && len(candles) > tail {
		candles = candles[len(candles)-tail:]
	}
	cs.Candles = candles

	cs.Volumes = make([]float64, 0, len(candles))
	for _, c := range candles {
		cs.Volumes = append(cs.Volumes, c.Volume)
	}
	return cs
}
