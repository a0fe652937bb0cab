// Package probe issues reachability probes through vantage points and
// parses their raw output into structured metrics.
package probe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Summary is the structured outcome of one probe command.
// AvgLatencyMs is nil whenever SuccessCount is zero.
type Summary struct {
	SuccessCount int
	AttemptCount int
	AvgLatencyMs *float64
}

// ParseError reports probe output that matched no known format. The
// caller records the pair as failed instead of aborting the run.
type ParseError struct {
	Output string
}

func (e *ParseError) Error() string {
	snippet := strings.TrimSpace(e.Output)
	if len(snippet) > 80 {
		snippet = snippet[:80] + "..."
	}
	return fmt.Sprintf("unrecognized probe output: %q", snippet)
}

var (
	// "Success rate is 100 percent (2/2), round-trip min/avg/max = 1/12/24 ms"
	successRateRe = regexp.MustCompile(`Success rate is \d+(?:\.\d+)? percent \((\d+)/(\d+)\)`)
	roundTripRe   = regexp.MustCompile(`round-trip min/avg/max = (\d+(?:\.\d+)?)/(\d+(?:\.\d+)?)/(\d+(?:\.\d+)?) ms`)
	// per-sample fallback lines, e.g. "Reply from 10.0.0.1: time=12.4 ms"
	sampleRe = regexp.MustCompile(`time[=<]\s*(\d+(?:\.\d+)?)\s*ms`)
)

// Parse turns the raw text of a device-side ping command into a
// Summary. Empty output means the vantage point produced nothing and is
// recorded as a clean failure across the configured attempt count. The
// device-reported average is used verbatim when present; the arithmetic
// mean of individual samples is computed only when the summary line
// carries no round-trip statistics.
func Parse(raw string, attempts int) (Summary, error) {
	if strings.TrimSpace(raw) == "" {
		return Summary{AttemptCount: attempts}, nil
	}

	rate := successRateRe.FindStringSubmatch(raw)
	if rate == nil {
		return Summary{}, &ParseError{Output: raw}
	}
	success, err := strconv.Atoi(rate[1])
	if err != nil {
		return Summary{}, &ParseError{Output: raw}
	}
	total, err := strconv.Atoi(rate[2])
	if err != nil || success > total {
		return Summary{}, &ParseError{Output: raw}
	}

	sum := Summary{SuccessCount: success, AttemptCount: total}
	if success == 0 {
		return sum, nil
	}

	if rt := roundTripRe.FindStringSubmatch(raw); rt != nil {
		avg, err := strconv.ParseFloat(rt[2], 64)
		if err != nil {
			return Summary{}, &ParseError{Output: raw}
		}
		sum.AvgLatencyMs = &avg
		return sum, nil
	}

	// No summary statistics; fall back to averaging the samples that
	// actually came back.
	samples := sampleRe.FindAllStringSubmatch(raw, -1)
	if len(samples) == 0 {
		return Summary{}, &ParseError{Output: raw}
	}
	var sumMS float64
	for _, s := range samples {
		ms, err := strconv.ParseFloat(s[1], 64)
		if err != nil {
			return Summary{}, &ParseError{Output: raw}
		}
		sumMS += ms
	}
	avg := sumMS / float64(len(samples))
	sum.AvgLatencyMs = &avg
	return sum, nil
}
