package fraud

import (
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// identifyIndicators extracts discrete fraud signals from the payload and
// the reasoning analysis. Indicators are independent of the numeric risk
// score; a transaction can carry indicators without a high score and vice
// versa.
func identifyIndicators(tx domain.TransactionPayload, llmResp string, cfg *domain.EngineConfig) []domain.FraudIndicator {
	var indicators []domain.FraudIndicator
	text := strings.ToLower(llmResp)

	if tx.Amount > cfg.InstitutionThreshold {
		indicators = append(indicators, domain.FraudIndicator{
			Type:        "amount_anomaly",
			Description: "Transaction amount exceeds institutional limits",
			Severity:    "critical",
		})
	}

	if geoMismatch(tx) {
		indicators = append(indicators, domain.FraudIndicator{
			Type:        "geographic_anomaly",
			Description: "Transaction from unusual geographic location",
			Severity:    "high",
		})
	}

	if strings.Contains(text, "suspicious") {
		indicators = append(indicators, domain.FraudIndicator{
			Type:        "llm_suspicious_pattern",
			Description: "AI detected suspicious patterns in transaction analysis",
			Severity:    "high",
		})
	}
	if strings.Contains(text, "unusual") || strings.Contains(text, "anomal") {
		indicators = append(indicators, domain.FraudIndicator{
			Type:        "llm_anomaly_detected",
			Description: "AI detected anomalous transaction characteristics",
			Severity:    "medium",
		})
	}

	if tx.RecentTransactionCount > 15 {
		indicators = append(indicators, domain.FraudIndicator{
			Type:        "high_velocity",
			Description: "Unusually high transaction velocity detected",
			Severity:    "high",
		})
	}

	if !tx.Timestamp.IsZero() && tx.TimeSinceLastTransaction >= 0 && tx.TimeSinceLastTransaction < 60 {
		indicators = append(indicators, domain.FraudIndicator{
			Type:        "rapid_succession",
			Description: "Multiple transactions in rapid succession",
			Severity:    "medium",
		})
	}

	return indicators
}
