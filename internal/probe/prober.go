package probe

import (
	"context"
	"fmt"

	"github.com/cadencejames/pingtimes/internal/models"
)

// Prober issues one probe against a target through one vantage point.
type Prober interface {
	Probe(ctx context.Context, target models.Target) (models.ProbeMetric, error)
	Close() error
}

// Factory opens the right prober for a vantage point's kind.
type Factory struct {
	Dialer Dialer
	// Count is how many echo packets each probe sends.
	Count int
}

// Open establishes the probe channel for one vantage point. An error
// here means the whole vantage point is unreachable for this run.
func (f *Factory) Open(ctx context.Context, vp models.VantagePoint, creds models.Credentials) (Prober, error) {
	if vp.Kind == "local" {
		return &localProber{vantage: vp.ID, count: f.Count}, nil
	}
	session, err := f.Dialer.Dial(ctx, vp, creds)
	if err != nil {
		return nil, err
	}
	return &commandProber{session: session, vp: vp, count: f.Count}, nil
}

// commandProber runs the device-side ping command over an open session
// and parses the textual output.
type commandProber struct {
	session Session
	vp      models.VantagePoint
	count   int
}

func (p *commandProber) Probe(ctx context.Context, target models.Target) (models.ProbeMetric, error) {
	command := fmt.Sprintf("ping %s timeout 1 repeat %d", target.IP, p.count)
	if p.vp.Source != "" {
		command = fmt.Sprintf("ping %s source %s timeout 1 repeat %d", target.IP, p.vp.Source, p.count)
	}

	raw, err := p.session.Run(ctx, command)
	if err != nil {
		return models.ProbeMetric{}, err
	}
	sum, err := Parse(raw, p.count)
	if err != nil {
		return models.ProbeMetric{}, err
	}
	return models.ProbeMetric{
		Target:       target.IP,
		Vantage:      p.vp.ID,
		SuccessCount: sum.SuccessCount,
		AttemptCount: sum.AttemptCount,
		AvgLatencyMs: sum.AvgLatencyMs,
	}, nil
}

func (p *commandProber) Close() error {
	return p.session.Close()
}
