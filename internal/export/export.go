// Package export produces the frontend data payload: the most recent
// slice of the history table wrapped in a JavaScript assignment the
// reporting page evaluates directly.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/cadencejames/pingtimes/internal/history"
	"github.com/cadencejames/pingtimes/internal/models"
)

// DefaultWindow is how many trailing date columns the payload keeps.
const DefaultWindow = 35

const (
	payloadComment = "// The raw CSV data as a string"
	payloadOpen    = "const csvData = `"
	payloadClose   = "`;"
)

// Build renders the export payload from the history table. The window
// covers the last `window` date columns, or every column when fewer
// exist. Row order is the table's (catalog) order; sites listed in skip
// are left out, the way decommissioned sites disappear from the report
// while their history is kept. Output is deterministic: identical
// inputs yield byte-identical payloads.
func Build(t *history.Table, window int, skip []string) string {
	if window <= 0 {
		window = DefaultWindow
	}
	dates := t.Dates
	if len(dates) > window {
		dates = dates[len(dates)-window:]
	}

	skipped := make(map[string]bool, len(skip))
	for _, code := range skip {
		skipped[code] = true
	}

	header := append([]string{"ip", "sitename", "sitecode", "tier", "avg"}, dates...)
	records := [][]string{header}
	for _, row := range t.Rows {
		if skipped[row.SiteCode] {
			continue
		}
		record := make([]string, 0, len(header))
		record = append(record, row.IP, row.SiteName, row.SiteCode, row.Tier, windowAverage(row, dates).String())
		for _, d := range dates {
			if cell, ok := row.Cells[d]; ok {
				record = append(record, cell.String())
			} else {
				record = append(record, models.Sentinel)
			}
		}
		records = append(records, record)
	}

	var body bytes.Buffer
	writer := csv.NewWriter(&body)
	_ = writer.WriteAll(records) // bytes.Buffer writes cannot fail

	var out strings.Builder
	out.WriteString(payloadComment + "\n")
	out.WriteString(payloadOpen + "\n")
	out.WriteString(body.String())
	out.WriteString(payloadClose + "\n")
	return out.String()
}

// windowAverage is the row's display average over the exported window
// only, skipping down days and rounded to the nearest millisecond as
// the frontend has always displayed it. All days down yields the
// sentinel.
func windowAverage(row *history.Row, dates []string) models.Value {
	var sum float64
	var n int
	for _, d := range dates {
		if cell, ok := row.Cells[d]; ok && cell.OK {
			sum += cell.Ms
			n++
		}
	}
	if n == 0 {
		return models.Value{}
	}
	return models.Latency(math.Round(sum / float64(n)))
}

// Parse reverses Build for consumers that want the records back: it
// strips the assignment wrapper and decodes the CSV body, returning the
// header and data rows.
func Parse(payload string) ([]string, [][]string, error) {
	start := strings.Index(payload, payloadOpen)
	end := strings.LastIndex(payload, payloadClose)
	if start < 0 || end < 0 || end <= start {
		return nil, nil, fmt.Errorf("payload is missing the csvData wrapper")
	}
	body := payload[start+len(payloadOpen) : end]

	records, err := csv.NewReader(strings.NewReader(strings.TrimLeft(body, "\n"))).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("decode payload body: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("payload has no rows")
	}
	return records[0], records[1:], nil
}

// Write saves the payload atomically alongside the other run outputs.
func Write(path, payload string) error {
	tmpPath := fmt.Sprintf("%s.%d.tmp", path, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, []byte(payload), 0o644); err != nil {
		return fmt.Errorf("write temp export: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace export file: %w", err)
	}
	return nil
}
