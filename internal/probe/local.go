package probe

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/cadencejames/pingtimes/internal/models"
)

// localProber pings targets straight from the collector host instead of
// going through a remote device session.
type localProber struct {
	vantage string
	count   int
}

func (p *localProber) Probe(ctx context.Context, target models.Target) (models.ProbeMetric, error) {
	pinger, err := probing.NewPinger(target.IP)
	if err != nil {
		return models.ProbeMetric{}, fmt.Errorf("pinger %s: %w", target.IP, err)
	}
	pinger.Count = p.count
	if deadline, ok := ctx.Deadline(); ok {
		pinger.Timeout = time.Until(deadline)
	}

	if err := pinger.RunWithContext(ctx); err != nil {
		return models.ProbeMetric{}, fmt.Errorf("ping %s: %w", target.IP, err)
	}

	stats := pinger.Statistics()
	metric := models.ProbeMetric{
		Target:       target.IP,
		Vantage:      p.vantage,
		SuccessCount: stats.PacketsRecv,
		AttemptCount: stats.PacketsSent,
	}
	if metric.AttemptCount == 0 {
		metric.AttemptCount = p.count
	}
	if stats.PacketsRecv > 0 {
		avg := float64(stats.AvgRtt) / float64(time.Millisecond)
		metric.AvgLatencyMs = &avg
	}
	return metric, nil
}

func (p *localProber) Close() error {
	return nil
}
