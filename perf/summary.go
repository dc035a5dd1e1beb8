package perf

import (
	"fmt"
	"sort"
	"strings"
)

// Summary is the aggregate view over a record set.
type Summary struct {
	Total        int
	Wins         int
	Losses       int
	Breakevens   int
	WinRate      float64 // percent
	AvgRRR       float64
	ProfitFactor float64
	TotalPnL     float64
	ByStrategy   map[string]int
	ByInstrument map[string]int
}

// Summarize computes the running aggregate. Average RRR considers only
// records with a positive ratio, divided by max(wins+losses, 1). The
// profit factor denominator is floored to 1 when there are no losing
// records, so it stays finite.
func Summarize(records []Record) Summary {
	s := Summary{
		Total:        len(records),
		ByStrategy:   make(map[string]int),
		ByInstrument: make(map[string]int),
	}

	var rrrSum, posPnL, negPnL float64
	for _, r := range records {
		switch r.Result {
		case ResultWin:
			s.Wins++
		case ResultLoss:
			s.Losses++
		case ResultBreakeven:
			s.Breakevens++
		}
		if r.RRR > 0 {
			rrrSum += r.RRR
		}
		if r.PnL > 0 {
			posPnL += r.PnL
		} else if r.PnL < 0 {
			negPnL += r.PnL
		}
		s.TotalPnL += r.PnL
		s.ByStrategy[r.Strategy]++
		s.ByInstrument[r.Instrument]++
	}

	decided := s.Wins + s.Losses
	if decided < 1 {
		decided = 1
	}
	s.AvgRRR = rrrSum / float64(decided)

	denom := -negPnL
	if denom == 0 {
		denom = 1
	}
	s.ProfitFactor = posPnL / denom

	if s.Total > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Total) * 100
	}
	return s
}

// String renders the summary as a log-friendly block.
func (s Summary) String() string {
	if s.Total == 0 {
		return "no trades to summarize"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Performance Summary\n")
	fmt.Fprintf(&b, "  Total Trades: %d\n", s.Total)
	fmt.Fprintf(&b, "  Wins: %d | Losses: %d | Breakevens: %d\n", s.Wins, s.Losses, s.Breakevens)
	fmt.Fprintf(&b, "  Win Rate: %.2f%%\n", s.WinRate)
	fmt.Fprintf(&b, "  Average RRR: %.2f\n", s.AvgRRR)
	fmt.Fprintf(&b, "  Profit Factor: %.2f\n", s.ProfitFactor)
	fmt.Fprintf(&b, "  Total PnL: %.2f\n", s.TotalPnL)

	fmt.Fprintf(&b, "  By Strategy:\n")
	for _, name := range sortedKeys(s.ByStrategy) {
		fmt.Fprintf(&b, "    %s: %d\n", name, s.ByStrategy[name])
	}
	fmt.Fprintf(&b, "  By Instrument:\n")
	for _, name := range sortedKeys(s.ByInstrument) {
		fmt.Fprintf(&b, "    %s: %d\n", name, s.ByInstrument[name])
	}
	return strings.TrimRight(b.String(), "\n")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
