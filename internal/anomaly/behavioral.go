package anomaly

import (
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/stats"
)

// Behavioral detection thresholds, on the 0-4 ordinal confidence scale.
const (
	behavioralMinSamples    = 10
	inconsistencyStdDev     = 2.0
	inconsistencyConfCap    = 0.9
	lowConfidenceMean       = 1.0
	lowConfidenceMinSamples = 20
	lowConfidenceConf       = 0.8
)

// detectBehavioral flags actors whose decision confidence is erratic or
// consistently low. Both findings can fire for the same actor.
func (d *Detector) detectBehavioral(records []*domain.AuditRecord) []domain.AnomalyFinding {
	var findings []domain.AnomalyFinding

	for actor, recs := range groupByActor(records) {
		if len(recs) < behavioralMinSamples {
			continue
		}

		confidences := make([]float64, len(recs))
		for i, r := range recs {
			confidences[i] = float64(r.Confidence)
		}

		sd := stats.StdDev(confidences)
		if sd > inconsistencyStdDev {
			confidence := sd / 3.0
			if confidence > inconsistencyConfCap {
				confidence = inconsistencyConfCap
			}
			findings = append(findings, d.newFinding(
				domain.PatternBehavioralInconsistency,
				fmt.Sprintf("actor %s shows erratic confidence (stddev %.2f over %d decisions)", actor, sd, len(recs)),
				confidence,
				domain.SeverityMedium,
				map[string]any{
					"actor":   actor,
					"stddev":  sd,
					"samples": len(recs),
				},
			))
		}

		mean := stats.Mean(confidences)
		if mean < lowConfidenceMean && len(recs) > lowConfidenceMinSamples {
			findings = append(findings, d.newFinding(
				domain.PatternLowConfidence,
				fmt.Sprintf("actor %s averages confidence %.2f over %d decisions", actor, mean, len(recs)),
				lowConfidenceConf,
				domain.SeverityMedium,
				map[string]any{
					"actor":   actor,
					"mean":    mean,
					"samples": len(recs),
				},
			))
		}
	}
	return findings
}
