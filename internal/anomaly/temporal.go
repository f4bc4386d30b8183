package anomaly

import (
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Temporal detection thresholds. An actor must show a sustained burst,
// not just a short flurry, before a spike is reported.
const (
	temporalMinSamples = 20
	temporalMinSpan    = time.Hour
	temporalRateLimit  = 10.0 // decisions per hour
	temporalConfCap    = 0.95
)

// detectTemporal flags actors whose decision rate over the window exceeds
// the sustained rate limit.
func (d *Detector) detectTemporal(records []*domain.AuditRecord) []domain.AnomalyFinding {
	var findings []domain.AnomalyFinding

	for actor, recs := range groupByActor(records) {
		if len(recs) < temporalMinSamples {
			continue
		}

		earliest, latest := recs[0].StartedAt, recs[0].StartedAt
		for _, r := range recs[1:] {
			if r.StartedAt.Before(earliest) {
				earliest = r.StartedAt
			}
			if r.StartedAt.After(latest) {
				latest = r.StartedAt
			}
		}

		span := latest.Sub(earliest)
		if span < temporalMinSpan {
			continue
		}

		hours := span.Hours()
		if hours < 1 {
			hours = 1
		}
		rate := float64(len(recs)) / hours
		if rate <= temporalRateLimit {
			continue
		}

		confidence := rate / 20.0
		if confidence > temporalConfCap {
			confidence = temporalConfCap
		}

		findings = append(findings, d.newFinding(
			domain.PatternTemporalSpike,
			fmt.Sprintf("actor %s produced %.1f decisions/hour over %.1f hours", actor, rate, span.Hours()),
			confidence,
			domain.SeverityHigh,
			map[string]any{
				"actor":      actor,
				"rate":       rate,
				"span_hours": span.Hours(),
				"samples":    len(recs),
			},
		))
	}
	return findings
}
