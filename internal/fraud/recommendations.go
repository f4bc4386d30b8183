package fraud

import (
	"github.com/opensource-finance/kestrel/internal/domain"
)

// recommendations produces the action list for a scored transaction. The
// tier comes from the final adjusted score; payload-specific items are
// appended regardless of tier.
func recommendations(score float64, tx domain.TransactionPayload, cfg *domain.EngineConfig) []string {
	var recs []string

	switch {
	case score > 0.8:
		recs = append(recs,
			"CRITICAL: Immediately freeze transaction and initiate emergency fraud investigation protocol",
			"Contact customer via multiple verified channels within 30 minutes for verification",
			"Escalate to senior fraud analyst and legal team immediately",
			"Implement enhanced security measures for account and similar transaction patterns",
			"Generate detailed forensic analysis report for regulatory compliance",
		)
	case score > 0.6:
		recs = append(recs,
			"HIGH PRIORITY: Enhanced verification required before processing, do not auto-approve",
			"Contact customer for additional verification using secondary authentication",
			"Monitor account activity for 48 hours post-transaction with enhanced scrutiny",
			"Review transaction against customer's complete historical pattern database",
			"Document all verification steps and rationales",
		)
	case score > 0.4:
		recs = append(recs,
			"MEDIUM PRIORITY: Additional verification recommended, consider manual review",
			"Send verification code to all registered contact methods and require response",
			"Flag transaction for senior review with detailed risk assessment attached",
			"Monitor for related suspicious activity patterns across the platform",
			"Allow processing only after verification completion (maximum 4 hours)",
		)
	case score > 0.2:
		recs = append(recs,
			"LOW PRIORITY: Standard verification sufficient but monitor closely",
			"Log transaction for ongoing pattern analysis and model training",
			"Continue standard post-transaction monitoring protocols",
			"Include in regular risk assessment reports",
		)
	default:
		recs = append(recs,
			"VERY LOW RISK: Process normally with standard protocols",
			"No additional verification required, maintain routine monitoring",
			"Use as positive training example for fraud detection models",
		)
	}

	switch {
	case tx.Amount > cfg.InstitutionThreshold:
		recs = append(recs, "EXTREME HIGH-VALUE TRANSACTION: Requires C-suite approval regardless of risk score")
	case tx.Amount > cfg.BusinessThreshold:
		recs = append(recs, "HIGH-VALUE TRANSACTION: Requires senior management approval for processing")
	case tx.Amount > cfg.IndividualThreshold:
		recs = append(recs, "ELEVATED AMOUNT: Enhanced verification required for high-value transaction")
	}

	if geoMismatch(tx) {
		recs = append(recs,
			"GEOGRAPHIC ANOMALY: Transaction from unusual location, verify legitimacy and check for account compromise",
			"Cross-border transaction detected, apply enhanced regulatory compliance checks",
		)
	}

	if tx.RecentTransactionCount > 10 {
		recs = append(recs, "HIGH VELOCITY: Unusual transaction frequency detected, investigate for automated attacks")
	}

	return recs
}

// basicRecommendations is the fixed fallback list used when the reasoning
// service is unavailable.
func basicRecommendations(tx domain.TransactionPayload) []string {
	recs := []string{
		"AI ANALYSIS UNAVAILABLE: Conduct manual fraud review with enhanced scrutiny",
		"Contact customer using primary and secondary verification methods",
		"Implement enhanced monitoring for account and similar transactions",
	}

	if tx.Amount > 10000 {
		recs = append(recs, "HIGH-VALUE TRANSACTION: Requires senior approval for processing")
	}
	if geoMismatch(tx) {
		recs = append(recs, "GEOGRAPHIC ANOMALY: Verify transaction legitimacy thoroughly")
	}

	recs = append(recs,
		"Document all manual review steps and decision rationales",
		"Complete review within 4 hours or escalate to supervisor",
	)
	return recs
}
