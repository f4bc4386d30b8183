// Package domain defines the core types and interfaces for Kestrel.
package domain

import (
	"strings"
	"time"
)

// Severity is the compliance severity tier of an event or finding.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank maps a severity to its ordinal position (1..4).
// Returns 0 for unknown severities so callers can skip them.
func (s Severity) Rank() int {
	switch Severity(strings.ToUpper(string(s))) {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// ParseSeverity normalizes a severity string to its canonical form.
func ParseSeverity(s string) Severity {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	switch sev {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return sev
	default:
		return SeverityLow
	}
}

// RiskAssessment is the risk summary attached to an audit record by the
// agent that produced the decision.
type RiskAssessment struct {
	OverallRiskScore float64 `json:"overallRiskScore"`
	RiskLevel        string  `json:"riskLevel"`
}

// AuditRecord is a single historical agent decision, sourced from the
// external audit trail store. Records are immutable: the engine only
// reads them.
type AuditRecord struct {
	ID        string `json:"id"`
	ActorName string `json:"actorName"`
	ActorType string `json:"actorType"`

	// Confidence is a bounded ordinal score. The default deployment uses
	// the 0-4 scale produced by the decision agents.
	Confidence int `json:"confidence"`

	StartedAt        time.Time `json:"startedAt"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`

	// Decision outcome (e.g. "APPROVE", "DENY", "ESCALATE", "MONITOR")
	Decision string `json:"decision"`

	RiskAssessment RiskAssessment `json:"riskAssessment"`

	EventType string   `json:"eventType"`
	Severity  Severity `json:"severity"`

	// Optional features used by historical-similarity scoring.
	Amount   float64 `json:"amount,omitempty"`
	EntityID string  `json:"entityId,omitempty"`
}
