// Package report writes the per-run results CSV: the current
// measurements with their catalog metadata, one row per target and
// vantage point.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cadencejames/pingtimes/internal/models"
)

var headers = []string{"tier", "sitename", "sitecode", "ip", "vantage", "success", "attempts", "avg_ms"}

// Write saves the run results atomically. Rows are target-major in
// catalog order, vantage points in configuration order within each
// target; a down pair leaves avg_ms empty.
func Write(path string, run models.RunResultSet, targets []models.Target) error {
	records := [][]string{headers}
	for _, target := range targets {
		for _, m := range run.ByTarget(target.IP) {
			avg := ""
			if m.AvgLatencyMs != nil {
				avg = strconv.FormatFloat(*m.AvgLatencyMs, 'f', -1, 64)
			}
			records = append(records, []string{
				target.Tier,
				target.SiteName,
				target.SiteCode,
				target.IP,
				m.Vantage,
				strconv.Itoa(m.SuccessCount),
				strconv.Itoa(m.AttemptCount),
				avg,
			})
		}
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", path, time.Now().UnixNano())
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("write temp results: %w", err)
	}
	writer := csv.NewWriter(file)
	if err := writer.WriteAll(records); err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp results: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp results: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace results file: %w", err)
	}
	return nil
}
