package anomaly

import (
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/stats"
)

// Correlation detection thresholds. Confidence should rise with assessed
// risk; a strongly negative correlation means agents are most confident
// exactly when the risk model disagrees.
const (
	correlationMinPairs  = 20
	correlationThreshold = -0.7
	correlationConfCap   = 0.9
)

// detectCorrelation computes the Pearson correlation between decision
// confidence and the risk tier (risk score quantized to the same 0-4
// scale) across the whole window.
func (d *Detector) detectCorrelation(records []*domain.AuditRecord) []domain.AnomalyFinding {
	confidences := make([]float64, 0, len(records))
	riskTiers := make([]float64, 0, len(records))

	for _, r := range records {
		confidences = append(confidences, float64(r.Confidence))
		riskTiers = append(riskTiers, float64(int(r.RiskAssessment.OverallRiskScore*4)))
	}

	if len(confidences) < correlationMinPairs {
		return nil
	}

	r := stats.Pearson(confidences, riskTiers)
	if r >= correlationThreshold {
		return nil
	}

	confidence := -r
	if confidence > correlationConfCap {
		confidence = correlationConfCap
	}

	return []domain.AnomalyFinding{d.newFinding(
		domain.PatternRiskCorrelation,
		fmt.Sprintf("decision confidence inversely correlated with assessed risk (r=%.2f over %d decisions)", r, len(confidences)),
		confidence,
		domain.SeverityHigh,
		map[string]any{
			"correlation": r,
			"pairs":       len(confidences),
		},
	)}
}
