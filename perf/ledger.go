// Package perf accumulates executed-decision records into running and
// dated summaries, and persists them so past runs can be reported on.
package perf

import (
	"sync"
	"time"
)

// Record summarizes one executed decision. Result classification is
// supplied by the caller ("win", "loss", "breakeven"), never computed
// here.
type Record struct {
	ID          string
	Time        time.Time
	Instrument  string
	Strategy    string
	Confidence  int
	Entry       float64
	Stop        float64
	Target      float64
	Price       float64
	Volume      float64
	OrderID     string
	RRR         float64
	PnL         float64
	Result      string
	Trend       string
	VolumeSpike bool
}

const (
	ResultWin       = "win"
	ResultLoss      = "loss"
	ResultBreakeven = "breakeven"
)

// Ledger is an append-only in-memory record sequence for the process
// lifetime.
type Ledger struct {
	mu      sync.Mutex
	records []Record
}

func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) Append(r Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
}

// Records returns a copy of the sequence in append order.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Summary aggregates the whole ledger.
func (l *Ledger) Summary() Summary {
	return Summarize(l.Records())
}

// DailySummary aggregates only records whose timestamp falls on the given
// date (format 2006-01-02).
func (l *Ledger) DailySummary(date string) Summary {
	return Summarize(FilterDay(l.Records(), date))
}

// FilterDay keeps records whose timestamp date prefix matches date.
func FilterDay(records []Record, date string) []Record {
	var out []Record
	for _, r := range records {
		if r.Time.Format("2006-01-02") == date {
			out = append(out, r)
		}
	}
	return out
}
