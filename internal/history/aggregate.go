package history

import (
	"math"
	"sort"
	"time"

	"github.com/cadencejames/pingtimes/internal/models"
)

// Aggregate folds one run's results into the table under the given
// date. A target's value for the date is the simple arithmetic mean of
// the average latencies reported by the vantage points that reached it;
// when none did, the cell records the down sentinel instead of a number.
// Re-running on the same date overwrites that date's column, so the
// operation is idempotent within a day, and no existing column is ever
// removed.
func (t *Table) Aggregate(run models.RunResultSet, targets []models.Target, date time.Time) {
	header := date.Format(DateFormat)
	if !t.HasDate(header) {
		t.Dates = append(t.Dates, header)
		// Columns stay chronological even when a run backfills an
		// earlier date.
		sort.SliceStable(t.Dates, func(i, j int) bool {
			di, _ := time.Parse(DateFormat, t.Dates[i])
			dj, _ := time.Parse(DateFormat, t.Dates[j])
			return di.Before(dj)
		})
	}

	// Rebuild row order as catalog order; rows for targets no longer in
	// the catalog keep their history and trail behind in their old order.
	byIP := make(map[string]*Row, len(t.Rows))
	for _, row := range t.Rows {
		byIP[row.IP] = row
	}
	rows := make([]*Row, 0, len(targets))
	claimed := make(map[string]bool, len(targets))
	for _, target := range targets {
		row, ok := byIP[target.IP]
		if !ok {
			row = &Row{Cells: make(map[string]models.Value)}
		}
		row.IP = target.IP
		row.SiteName = target.SiteName
		row.SiteCode = target.SiteCode
		row.Tier = target.Tier
		rows = append(rows, row)
		claimed[target.IP] = true
	}
	for _, row := range t.Rows {
		if !claimed[row.IP] {
			rows = append(rows, row)
		}
	}
	t.Rows = rows

	for _, target := range targets {
		row, _ := t.Row(target.IP)
		row.Cells[header] = representative(run.ByTarget(target.IP))
	}

	// The site average always tracks the newest column, even when this
	// run backfilled an older date.
	t.recomputeSiteAverages(t.Dates[len(t.Dates)-1])
}

// representative combines one target's metrics across vantage points
// into its historical value for the date. The chosen tie-break is the
// unweighted mean of the succeeding vantage points, since the probe
// counts give no weighting signal; total failure yields the sentinel.
func representative(metrics []models.ProbeMetric) models.Value {
	var sum float64
	var n int
	for _, m := range metrics {
		if m.Up() && m.AvgLatencyMs != nil {
			sum += *m.AvgLatencyMs
			n++
		}
	}
	if n == 0 {
		return models.Value{}
	}
	return models.Latency(sum / float64(n))
}

// recomputeSiteAverages sets every row's trailing site average to the
// mean of its site's values in the given date column, rounded to the
// nearest millisecond the way the report has always shown it. Targets
// down for that date contribute nothing; they are excluded, not counted
// as zero.
func (t *Table) recomputeSiteAverages(header string) {
	type acc struct {
		sum float64
		n   int
	}
	sites := make(map[string]*acc)
	for _, row := range t.Rows {
		if cell, ok := row.Cells[header]; ok && cell.OK {
			a := sites[row.SiteCode]
			if a == nil {
				a = &acc{}
				sites[row.SiteCode] = a
			}
			a.sum += cell.Ms
			a.n++
		}
	}
	for _, row := range t.Rows {
		if a := sites[row.SiteCode]; a != nil && a.n > 0 {
			row.SiteAvg = models.Latency(math.Round(a.sum / float64(a.n)))
		} else {
			row.SiteAvg = models.Value{}
		}
	}
}
