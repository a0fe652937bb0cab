// Package runlog keeps an append-only SQLite log of every probe result
// for ad hoc querying beyond what the rolled-up history table retains.
package runlog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cadencejames/pingtimes/internal/models"
)

// Log records raw probe results into a SQLite database.
type Log struct {
	db *sql.DB
}

// Open connects to (creating if needed) the database at path and
// ensures the schema exists.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	l := &Log{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Log) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS probe_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_at TIMESTAMP NOT NULL,
		target TEXT NOT NULL,
		vantage TEXT NOT NULL,
		success_count INTEGER NOT NULL,
		attempt_count INTEGER NOT NULL,
		avg_ms REAL
	);

	CREATE INDEX IF NOT EXISTS idx_probe_results_target_run
		ON probe_results(target, run_at DESC);
	`

	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate run log: %w", err)
	}
	return nil
}

// Record appends every metric of one run in a single transaction.
func (l *Log) Record(run models.RunResultSet) error {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("begin run log tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT INTO probe_results (run_at, target, vantage, success_count, attempt_count, avg_ms) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare run log insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range run.Metrics {
		var avg sql.NullFloat64
		if m.AvgLatencyMs != nil {
			avg = sql.NullFloat64{Float64: *m.AvgLatencyMs, Valid: true}
		}
		if _, err := stmt.Exec(run.Timestamp, m.Target, m.Vantage, m.SuccessCount, m.AttemptCount, avg); err != nil {
			return fmt.Errorf("insert run log row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run log: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (l *Log) Close() error {
	return l.db.Close()
}
