package domain

// Event describes a single compliance event submitted for risk scoring.
type Event struct {
	Severity  Severity `json:"severity"`
	EventType string   `json:"eventType"`

	// Optional features. Zero values mean "not present" and the
	// corresponding similarity signals are skipped.
	Amount   float64 `json:"amount,omitempty"`
	EntityID string  `json:"entityId,omitempty"`

	// Metadata is forwarded verbatim to the reasoning service for
	// contextual assessment. The engine never interprets it.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RiskFactor is one explanation contribution to a risk score. Factors
// exist only within a single scoring call and are discarded after
// audit logging.
type RiskFactor struct {
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// ScoreResult is the outcome of scoring a single event.
type ScoreResult struct {
	Score   float64      `json:"score"` // [0,1]
	Factors []RiskFactor `json:"factors"`

	// RiskLevel classifies the score against the anomaly threshold:
	// HIGH above it, MEDIUM above 70% of it, LOW otherwise.
	RiskLevel string `json:"riskLevel"`

	// Basic is true when the historical data source was unavailable and
	// the score degraded to severity base + event-type keyword risk.
	Basic bool `json:"basic,omitempty"`
}
