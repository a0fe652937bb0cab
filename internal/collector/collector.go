// Package collector orchestrates one full probe round: every catalog
// target probed from every configured vantage point.
package collector

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cadencejames/pingtimes/internal/credentials"
	"github.com/cadencejames/pingtimes/internal/models"
	"github.com/cadencejames/pingtimes/internal/probe"
)

// ProberFactory opens a prober for a vantage point.
type ProberFactory interface {
	Open(ctx context.Context, vp models.VantagePoint, creds models.Credentials) (probe.Prober, error)
}

// VantageSummary counts probe outcomes for one vantage point.
type VantageSummary struct {
	Vantage          string
	Up               int
	Down             int
	ConnectionFailed bool
}

// Collector runs the collection phase of a run.
type Collector struct {
	factory  ProberFactory
	creds    credentials.Provider
	vantages []models.VantagePoint
	targets  []models.Target

	// ProbeTimeout bounds a single probe invocation.
	ProbeTimeout time.Duration
	// AttemptCount is recorded on synthesized failure metrics so their
	// shape matches real ones.
	AttemptCount int
}

// New creates a collector over the given vantage points and targets.
func New(factory ProberFactory, creds credentials.Provider, vantages []models.VantagePoint, targets []models.Target) *Collector {
	return &Collector{
		factory:      factory,
		creds:        creds,
		vantages:     vantages,
		targets:      targets,
		ProbeTimeout: 10 * time.Second,
		AttemptCount: 2,
	}
}

// Collect probes every (target, vantage point) pair once. Vantage
// points run concurrently; per-pair failures are recorded as down
// metrics rather than propagated, so the result's key space is always
// the full cross product. Only cancellation aborts the run.
func (c *Collector) Collect(ctx context.Context) (models.RunResultSet, []VantageSummary, error) {
	perVantage := make([][]models.ProbeMetric, len(c.vantages))
	summaries := make([]VantageSummary, len(c.vantages))

	g, gctx := errgroup.WithContext(ctx)
	for i, vp := range c.vantages {
		i, vp := i, vp
		g.Go(func() error {
			metrics, summary := c.probeVantage(gctx, vp)
			perVantage[i] = metrics
			summaries[i] = summary
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return models.RunResultSet{}, nil, err
	}

	run := models.RunResultSet{
		Timestamp: time.Now().UTC(),
		Metrics:   make([]models.ProbeMetric, 0, len(c.vantages)*len(c.targets)),
	}
	for _, metrics := range perVantage {
		run.Metrics = append(run.Metrics, metrics...)
	}
	return run, summaries, nil
}

func (c *Collector) probeVantage(ctx context.Context, vp models.VantagePoint) ([]models.ProbeMetric, VantageSummary) {
	summary := VantageSummary{Vantage: vp.ID}

	// A credential fetch can itself fail (headless run with no secrets
	// injected); only vantage kinds that log in should ever pay that
	// price.
	var creds models.Credentials
	var err error
	if vp.NeedsCredentials() {
		creds, err = c.creds.Fetch(vp.ID)
	}
	if err == nil {
		var prober probe.Prober
		prober, err = c.factory.Open(ctx, vp, creds)
		if err == nil {
			defer prober.Close()
			metrics := make([]models.ProbeMetric, 0, len(c.targets))
			for _, target := range c.targets {
				probeCtx, cancel := context.WithTimeout(ctx, c.ProbeTimeout)
				metric, perr := prober.Probe(probeCtx, target)
				cancel()
				if perr != nil {
					log.Printf("vantage %s: probe %s failed: %v", vp.ID, target.IP, perr)
					metric = c.downMetric(vp, target)
				}
				if metric.Up() {
					summary.Up++
				} else {
					summary.Down++
				}
				metrics = append(metrics, metric)
			}
			return metrics, summary
		}
	}

	// The vantage point itself is unusable; synthesize a down metric for
	// every target so aggregation still sees the full key space.
	log.Printf("vantage %s: connection failed: %v", vp.ID, err)
	summary.ConnectionFailed = true
	summary.Down = len(c.targets)
	metrics := make([]models.ProbeMetric, 0, len(c.targets))
	for _, target := range c.targets {
		metrics = append(metrics, c.downMetric(vp, target))
	}
	return metrics, summary
}

func (c *Collector) downMetric(vp models.VantagePoint, target models.Target) models.ProbeMetric {
	return models.ProbeMetric{
		Target:       target.IP,
		Vantage:      vp.ID,
		AttemptCount: c.AttemptCount,
	}
}
