package domain

import (
	"time"
)

// TransactionPayload is a transaction-shaped payload submitted for fraud
// assessment. Extra is an open-ended metadata bag forwarded to the
// reasoning service and exposed to custom indicator rules.
type TransactionPayload struct {
	Amount        float64   `json:"amount"`
	Location      string    `json:"location"`
	UsualLocation string    `json:"usualLocation"`
	EntityID      string    `json:"entityId,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitempty"`

	// RecentTransactionCount is the number of transactions in the recent
	// velocity window. Negative means unknown; the assessor may consult
	// the velocity service instead.
	RecentTransactionCount int `json:"recentTransactionCount"`

	// TimeSinceLastTransaction in seconds. Negative means unknown.
	TimeSinceLastTransaction float64 `json:"timeSinceLastTransaction"`

	Extra map[string]any `json:"extra,omitempty"`
}

// FraudIndicator is a discrete fraud signal, emitted independently of the
// numeric risk score for downstream display.
type FraudIndicator struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// FraudAssessment is the result of assessing a transaction payload.
type FraudAssessment struct {
	ID              string           `json:"id"`
	RiskScore       float64          `json:"riskScore"` // [0,1]
	Indicators      []FraudIndicator `json:"indicators"`
	Recommendations []string         `json:"recommendations"`

	// Baseline is true when the reasoning service was unavailable and the
	// score was derived from feature heuristics alone.
	Baseline bool `json:"baseline,omitempty"`

	AssessedAt time.Time `json:"assessedAt"`
}
