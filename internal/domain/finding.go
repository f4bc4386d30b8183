package domain

import (
	"time"
)

// PatternType identifies the statistical pattern behind an anomaly finding.
type PatternType string

const (
	PatternTemporalSpike           PatternType = "temporal_spike"
	PatternBehavioralInconsistency PatternType = "behavioral_inconsistency"
	PatternLowConfidence           PatternType = "low_confidence_pattern"
	PatternRiskCorrelation         PatternType = "risk_confidence_correlation"
)

// AnomalyFinding is a confidence-scored statistical signal detected over a
// window of audit records. Findings are created fresh per detection pass;
// ownership transfers to the caller, which wraps them into higher-level
// compliance events.
type AnomalyFinding struct {
	ID          string         `json:"id"`
	PatternType PatternType    `json:"patternType"`
	Description string         `json:"description"`
	Confidence  float64        `json:"confidence"` // [0,1]
	Severity    Severity       `json:"severity"`
	Evidence    map[string]any `json:"evidence,omitempty"`
	DetectedAt  time.Time      `json:"detectedAt"`
}
