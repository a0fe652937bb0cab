// Package history maintains the cumulative measurement table: one row
// per target, one column per calendar date, plus metadata and a derived
// per-site average column.
package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cadencejames/pingtimes/internal/models"
)

// DateFormat is the header layout for history date columns, the same
// day-month-year form the report has always shown.
const DateFormat = "02-Jan-06"

// ErrMalformedTable marks a history file the aggregator refuses to
// touch. Proceeding would risk corrupting the only durable state.
var ErrMalformedTable = errors.New("malformed history table")

var metaHeaders = []string{"ip", "sitename", "sitecode", "tier"}

const siteAvgHeader = "site_avg"

// Row is one target's history line.
type Row struct {
	IP       string
	SiteName string
	SiteCode string
	Tier     string
	SiteAvg  models.Value
	Cells    map[string]models.Value
}

// Table is the cumulative history. Dates are chronological, oldest
// first; rows keep a stable order across load/save cycles.
type Table struct {
	Dates []string
	Rows  []*Row
}

// Row returns the row for a target IP, if present.
func (t *Table) Row(ip string) (*Row, bool) {
	for _, r := range t.Rows {
		if r.IP == ip {
			return r, true
		}
	}
	return nil, false
}

// HasDate reports whether the table already carries a column for the
// given date header.
func (t *Table) HasDate(header string) bool {
	for _, d := range t.Dates {
		if d == header {
			return true
		}
	}
	return false
}

// Load reads the history CSV. A missing file yields an empty table, the
// normal state before the first run. Anything structurally wrong wraps
// ErrMalformedTable so the caller can abort before mutating history.
func Load(path string) (*Table, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	header := records[0]
	if len(header) < len(metaHeaders)+1 || header[len(header)-1] != siteAvgHeader {
		return nil, fmt.Errorf("%w: unexpected header %v", ErrMalformedTable, header)
	}
	for i, want := range metaHeaders {
		if header[i] != want {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrMalformedTable, i, header[i], want)
		}
	}

	table := &Table{}
	for _, d := range header[len(metaHeaders) : len(header)-1] {
		if _, err := time.Parse(DateFormat, d); err != nil {
			return nil, fmt.Errorf("%w: bad date column %q", ErrMalformedTable, d)
		}
		table.Dates = append(table.Dates, d)
	}

	for n, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrMalformedTable, n+2, len(record), len(header))
		}
		row := &Row{
			IP:       record[0],
			SiteName: record[1],
			SiteCode: record[2],
			Tier:     record[3],
			Cells:    make(map[string]models.Value, len(table.Dates)),
		}
		if row.IP == "" {
			return nil, fmt.Errorf("%w: row %d has no target ip", ErrMalformedTable, n+2)
		}
		for i, d := range table.Dates {
			cell := record[len(metaHeaders)+i]
			if cell == "" {
				continue // no measurement recorded for that date
			}
			value, err := models.ParseValue(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedTable, n+2, err)
			}
			row.Cells[d] = value
		}
		avg, err := models.ParseValue(record[len(record)-1])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedTable, n+2, err)
		}
		row.SiteAvg = avg
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Save writes the whole table atomically: a temp file in the same
// directory replaces the target only after a complete successful write.
func (t *Table) Save(path string) error {
	header := make([]string, 0, len(metaHeaders)+len(t.Dates)+1)
	header = append(header, metaHeaders...)
	header = append(header, t.Dates...)
	header = append(header, siteAvgHeader)

	records := [][]string{header}
	for _, row := range t.Rows {
		record := make([]string, 0, len(header))
		record = append(record, row.IP, row.SiteName, row.SiteCode, row.Tier)
		for _, d := range t.Dates {
			if cell, ok := row.Cells[d]; ok {
				record = append(record, cell.String())
			} else {
				record = append(record, "")
			}
		}
		record = append(record, row.SiteAvg.String())
		records = append(records, record)
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", path, time.Now().UnixNano())
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("write temp history: %w", err)
	}
	writer := csv.NewWriter(file)
	if err := writer.WriteAll(records); err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp history: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp history: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
