package runlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cadencejames/pingtimes/internal/models"
)

func TestLogRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pingtimes.db")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open run log: %v", err)
	}
	defer l.Close()

	avg := 12.4
	run := models.RunResultSet{
		Timestamp: time.Now().UTC(),
		Metrics: []models.ProbeMetric{
			{Target: "10.0.0.1", Vantage: "SITE_A", SuccessCount: 2, AttemptCount: 2, AvgLatencyMs: &avg},
			{Target: "10.0.0.1", Vantage: "SITE_B", SuccessCount: 0, AttemptCount: 2},
		},
	}
	if err := l.Record(run); err != nil {
		t.Fatalf("failed to record run: %v", err)
	}

	var count int
	if err := l.db.QueryRow("SELECT COUNT(*) FROM probe_results").Scan(&count); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	if count != 2 {
		t.Errorf("got %d rows, want 2", count)
	}

	var nullAvgs int
	if err := l.db.QueryRow("SELECT COUNT(*) FROM probe_results WHERE avg_ms IS NULL").Scan(&nullAvgs); err != nil {
		t.Fatalf("failed to count null averages: %v", err)
	}
	if nullAvgs != 1 {
		t.Errorf("got %d NULL avg_ms rows, want 1 for the down pair", nullAvgs)
	}
}

func TestLogRecordAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pingtimes.db")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open run log: %v", err)
	}
	defer l.Close()

	run := models.RunResultSet{
		Timestamp: time.Now().UTC(),
		Metrics:   []models.ProbeMetric{{Target: "10.0.0.1", Vantage: "SITE_A", AttemptCount: 2}},
	}
	if err := l.Record(run); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := l.Record(run); err != nil {
		t.Fatalf("second record: %v", err)
	}

	var count int
	if err := l.db.QueryRow("SELECT COUNT(*) FROM probe_results").Scan(&count); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	if count != 2 {
		t.Errorf("got %d rows, want runs to append, never overwrite", count)
	}
}
