package models

import "time"

// Target is one monitored host loaded from the site catalog.
type Target struct {
	IP       string `json:"ip"`
	SiteName string `json:"sitename"`
	SiteCode string `json:"sitecode"`
	Tier     string `json:"tier"`
	Group    string `json:"group,omitempty"`
}

// VantagePoint is a fixed network location probes are issued from.
// Kind selects the prober: "ssh" runs the ping command on a remote
// device, "local" pings directly from the collector host.
type VantagePoint struct {
	ID     string `yaml:"id" json:"id"`
	Kind   string `yaml:"kind" json:"kind"`
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
	Source string `yaml:"source" json:"source,omitempty"`
}

// NeedsCredentials reports whether probing through this vantage point
// requires a device login. A local vantage pings straight from the
// collector host and has nothing to log in to.
func (vp VantagePoint) NeedsCredentials() bool {
	return vp.Kind != "local"
}

// Credentials are login credentials for a vantage device. They are held
// in memory for the duration of a run and never persisted.
type Credentials struct {
	Username string
	Password string
}

// ProbeMetric captures the outcome of probing one target from one
// vantage point. AvgLatencyMs is nil whenever SuccessCount is zero, so
// a dead target can never read as a 0ms latency.
type ProbeMetric struct {
	Target       string   `json:"target"`
	Vantage      string   `json:"vantage"`
	SuccessCount int      `json:"success_count"`
	AttemptCount int      `json:"attempt_count"`
	AvgLatencyMs *float64 `json:"avg_latency_ms,omitempty"`
}

// Up reports whether at least one probe packet came back.
func (m ProbeMetric) Up() bool {
	return m.SuccessCount > 0
}

// RunResultSet holds every metric of one collection run: exactly one
// entry per (target, vantage point) pair, vantage-major in
// configuration order, targets in catalog order within each vantage.
type RunResultSet struct {
	Timestamp time.Time     `json:"timestamp"`
	Metrics   []ProbeMetric `json:"metrics"`
}

// ByTarget returns the metrics for one target IP across all vantage
// points, preserving vantage configuration order.
func (rs RunResultSet) ByTarget(ip string) []ProbeMetric {
	var out []ProbeMetric
	for _, m := range rs.Metrics {
		if m.Target == ip {
			out = append(out, m)
		}
	}
	return out
}
