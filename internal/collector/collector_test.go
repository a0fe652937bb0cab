package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/cadencejames/pingtimes/internal/models"
	"github.com/cadencejames/pingtimes/internal/probe"
)

var testTargets = []models.Target{
	{IP: "10.0.0.1", SiteName: "Alpha", SiteCode: "ALPHA", Tier: "1"},
	{IP: "10.0.0.2", SiteName: "Bravo", SiteCode: "BRAVO", Tier: "2"},
	{IP: "10.0.0.3", SiteName: "Charlie", SiteCode: "CHARLIE", Tier: "1"},
}

var testVantages = []models.VantagePoint{
	{ID: "SITE_A", Kind: "ssh", Host: "192.168.1.1", Port: 22},
	{ID: "SITE_B", Kind: "ssh", Host: "192.168.2.1", Port: 22},
}

type staticCreds struct{}

func (staticCreds) Fetch(string) (models.Credentials, error) {
	return models.Credentials{Username: "probe", Password: "secret"}, nil
}

// fakeProber answers from a canned latency map and errors on the rest.
type fakeProber struct {
	vantage   string
	latencies map[string]float64
	closed    bool
}

func (p *fakeProber) Probe(_ context.Context, target models.Target) (models.ProbeMetric, error) {
	ms, ok := p.latencies[target.IP]
	if !ok {
		return models.ProbeMetric{}, errors.New("probe failed")
	}
	return models.ProbeMetric{
		Target:       target.IP,
		Vantage:      p.vantage,
		SuccessCount: 2,
		AttemptCount: 2,
		AvgLatencyMs: &ms,
	}, nil
}

func (p *fakeProber) Close() error {
	p.closed = true
	return nil
}

// fakeFactory fails session establishment for vantage points listed in
// down and hands out fakeProbers for the rest.
type fakeFactory struct {
	latencies map[string]map[string]float64
	down      map[string]bool
	opened    []*fakeProber
}

func (f *fakeFactory) Open(_ context.Context, vp models.VantagePoint, _ models.Credentials) (probe.Prober, error) {
	if f.down[vp.ID] {
		return nil, errors.New("connection refused")
	}
	p := &fakeProber{vantage: vp.ID, latencies: f.latencies[vp.ID]}
	f.opened = append(f.opened, p)
	return p, nil
}

func TestCollectCoversFullCrossProduct(t *testing.T) {
	factory := &fakeFactory{
		latencies: map[string]map[string]float64{
			"SITE_A": {"10.0.0.1": 12.4, "10.0.0.2": 8},
			"SITE_B": {"10.0.0.1": 14},
		},
	}
	col := New(factory, staticCreds{}, testVantages, testTargets)

	run, summaries, err := col.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if got, want := len(run.Metrics), len(testVantages)*len(testTargets); got != want {
		t.Fatalf("got %d metrics, want the full cross product of %d", got, want)
	}
	seen := make(map[[2]string]bool)
	for _, m := range run.Metrics {
		key := [2]string{m.Target, m.Vantage}
		if seen[key] {
			t.Errorf("duplicate metric for %v", key)
		}
		seen[key] = true
	}
	for _, vp := range testVantages {
		for _, target := range testTargets {
			if !seen[[2]string{target.IP, vp.ID}] {
				t.Errorf("missing metric for (%s, %s)", target.IP, vp.ID)
			}
		}
	}

	if summaries[0].Up != 2 || summaries[0].Down != 1 {
		t.Errorf("SITE_A summary = %+v, want 2 up / 1 down", summaries[0])
	}
	for _, p := range factory.opened {
		if !p.closed {
			t.Errorf("prober for %s left open", p.vantage)
		}
	}
}

func TestCollectSynthesizesDownVantage(t *testing.T) {
	factory := &fakeFactory{
		latencies: map[string]map[string]float64{
			"SITE_A": {"10.0.0.1": 12.4, "10.0.0.2": 8, "10.0.0.3": 9},
		},
		down: map[string]bool{"SITE_B": true},
	}
	col := New(factory, staticCreds{}, testVantages, testTargets)

	run, summaries, err := col.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if got, want := len(run.Metrics), len(testVantages)*len(testTargets); got != want {
		t.Fatalf("got %d metrics, want %d despite the down vantage", got, want)
	}
	for _, m := range run.Metrics {
		if m.Vantage != "SITE_B" {
			continue
		}
		if m.Up() {
			t.Errorf("down vantage reported success for %s", m.Target)
		}
		if m.AvgLatencyMs != nil {
			t.Errorf("down vantage carries a latency for %s", m.Target)
		}
		if m.AttemptCount != col.AttemptCount {
			t.Errorf("synthesized metric has %d attempts, want %d", m.AttemptCount, col.AttemptCount)
		}
	}

	if !summaries[1].ConnectionFailed {
		t.Error("SITE_B summary should record the failed connection")
	}
	if summaries[1].Down != len(testTargets) {
		t.Errorf("SITE_B down count = %d, want %d", summaries[1].Down, len(testTargets))
	}
}

func TestCollectFailedProbeOnlyAffectsItsPair(t *testing.T) {
	factory := &fakeFactory{
		latencies: map[string]map[string]float64{
			"SITE_A": {"10.0.0.1": 12.4, "10.0.0.3": 9},
			"SITE_B": {"10.0.0.1": 14, "10.0.0.2": 8, "10.0.0.3": 10},
		},
	}
	col := New(factory, staticCreds{}, testVantages, testTargets)

	run, _, err := col.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	for _, m := range run.ByTarget("10.0.0.2") {
		switch m.Vantage {
		case "SITE_A":
			if m.Up() {
				t.Error("failed pair recorded as up")
			}
		case "SITE_B":
			if !m.Up() {
				t.Error("healthy pair recorded as down")
			}
		}
	}
}

// noCreds stands in for a headless run where no secrets were injected
// and no terminal is attached.
type noCreds struct{}

func (noCreds) Fetch(string) (models.Credentials, error) {
	return models.Credentials{}, errors.New("no credentials available")
}

func TestCollectLocalVantageNeedsNoCredentials(t *testing.T) {
	vantages := []models.VantagePoint{{ID: "LOCAL", Kind: "local"}}
	factory := &fakeFactory{
		latencies: map[string]map[string]float64{
			"LOCAL": {"10.0.0.1": 1, "10.0.0.2": 2, "10.0.0.3": 3},
		},
	}
	col := New(factory, noCreds{}, vantages, testTargets)

	run, summaries, err := col.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if summaries[0].ConnectionFailed {
		t.Error("local vantage marked connection-failed over credentials it does not use")
	}
	if summaries[0].Up != len(testTargets) {
		t.Errorf("got %d up, want %d", summaries[0].Up, len(testTargets))
	}
	for _, m := range run.Metrics {
		if !m.Up() {
			t.Errorf("target %s recorded down on a healthy local vantage", m.Target)
		}
	}
}

func TestCollectSSHVantageStillRequiresCredentials(t *testing.T) {
	factory := &fakeFactory{
		latencies: map[string]map[string]float64{
			"SITE_A": {"10.0.0.1": 1},
		},
	}
	col := New(factory, noCreds{}, testVantages[:1], testTargets)

	run, summaries, err := col.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if !summaries[0].ConnectionFailed {
		t.Error("ssh vantage without credentials should be recorded as a failed connection")
	}
	if got, want := len(run.Metrics), len(testTargets); got != want {
		t.Errorf("got %d metrics, want %d synthesized down entries", got, want)
	}
}

func TestCollectHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	factory := &fakeFactory{latencies: map[string]map[string]float64{}}
	col := New(factory, staticCreds{}, testVantages, testTargets)

	if _, _, err := col.Collect(ctx); err == nil {
		t.Error("Collect should fail once the context is cancelled")
	}
}
