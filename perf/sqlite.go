package perf

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	instrument TEXT NOT NULL,
	strategy TEXT NOT NULL,
	confidence INTEGER NOT NULL,
	entry REAL NOT NULL,
	stop REAL NOT NULL,
	target REAL NOT NULL,
	price REAL NOT NULL,
	volume REAL NOT NULL,
	order_id TEXT NOT NULL,
	rrr REAL NOT NULL,
	pnl REAL NOT NULL,
	result TEXT NOT NULL,
	trend TEXT NOT NULL,
	volume_spike INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_time ON decisions(time);
`

// SQLiteStore persists ledger records so the report command can
// summarize past runs.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(r Record) error {
	_, err := s.db.Exec(`
		INSERT INTO decisions
		(id, time, instrument, strategy, confidence, entry, stop, target,
		 price, volume, order_id, rrr, pnl, result, trend, volume_spike)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Time.UTC(), r.Instrument, r.Strategy, r.Confidence,
		r.Entry, r.Stop, r.Target, r.Price, r.Volume, r.OrderID,
		r.RRR, r.PnL, r.Result, r.Trend, boolToInt(r.VolumeSpike),
	)
	return err
}

// LoadAll returns every stored record ordered by id (and therefore by
// creation time, since ids are ULIDs).
func (s *SQLiteStore) LoadAll() ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, time, instrument, strategy, confidence, entry, stop, target,
		       price, volume, order_id, rrr, pnl, result, trend, volume_spike
		FROM decisions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ts time.Time
		var spike int
		if err := rows.Scan(&r.ID, &ts, &r.Instrument, &r.Strategy, &r.Confidence,
			&r.Entry, &r.Stop, &r.Target, &r.Price, &r.Volume, &r.OrderID,
			&r.RRR, &r.PnL, &r.Result, &r.Trend, &spike); err != nil {
			return nil, err
		}
		r.Time = ts
		r.VolumeSpike = spike != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
