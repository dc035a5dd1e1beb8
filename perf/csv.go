package perf

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// ExportCSV writes the record set to path with a header row.
func ExportCSV(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"id", "time", "instrument", "strategy", "confidence",
		"entry", "stop", "target", "price", "volume",
		"order_id", "rrr", "pnl", "result", "trend", "volume_spike",
	}); err != nil {
		return err
	}

	for _, r := range records {
		if err := w.Write([]string{
			r.ID,
			r.Time.UTC().Format(time.RFC3339),
			r.Instrument,
			r.Strategy,
			strconv.Itoa(r.Confidence),
			f8(r.Entry),
			f8(r.Stop),
			f8(r.Target),
			f8(r.Price),
			f8(r.Volume),
			r.OrderID,
			f8(r.RRR),
			f8(r.PnL),
			r.Result,
			r.Trend,
			strconv.FormatBool(r.VolumeSpike),
		}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func f8(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
