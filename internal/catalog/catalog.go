// Package catalog loads the site catalog: the ordered list of monitored
// targets and the metadata that annotates every measurement.
package catalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/cadencejames/pingtimes/internal/models"
)

// Catalog is the validated target list, in file order.
type Catalog struct {
	targets []models.Target
	byIP    map[string]int
}

// Load reads the sites CSV. The header row names the columns; ip and
// sitecode are required per row, and ip must be unique across rows.
func Load(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("catalog %s: missing header row", path)
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"ip", "sitename", "sitecode", "tier"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("catalog %s: missing %q column", path, required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	cat := &Catalog{byIP: make(map[string]int)}
	for n, row := range records[1:] {
		t := models.Target{
			IP:       field(row, "ip"),
			SiteName: field(row, "sitename"),
			SiteCode: field(row, "sitecode"),
			Tier:     field(row, "tier"),
			Group:    field(row, "group"),
		}
		if t.IP == "" {
			return nil, fmt.Errorf("catalog row %d: missing ip", n+2)
		}
		if t.SiteCode == "" {
			return nil, fmt.Errorf("catalog row %d (%s): missing sitecode", n+2, t.IP)
		}
		if _, dup := cat.byIP[t.IP]; dup {
			return nil, fmt.Errorf("catalog row %d: duplicate target %s", n+2, t.IP)
		}
		cat.byIP[t.IP] = len(cat.targets)
		cat.targets = append(cat.targets, t)
	}
	if len(cat.targets) == 0 {
		return nil, fmt.Errorf("catalog %s: no targets defined", path)
	}
	return cat, nil
}

// Targets returns the targets in catalog order.
func (c *Catalog) Targets() []models.Target {
	out := make([]models.Target, len(c.targets))
	copy(out, c.targets)
	return out
}

// Lookup returns the target with the given IP, if present.
func (c *Catalog) Lookup(ip string) (models.Target, bool) {
	i, ok := c.byIP[ip]
	if !ok {
		return models.Target{}, false
	}
	return c.targets[i], true
}

// Len reports how many targets the catalog holds.
func (c *Catalog) Len() int {
	return len(c.targets)
}
