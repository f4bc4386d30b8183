package domain

import (
	"encoding/json"
	"time"
)

// BiasIndicator flags a skew in the decision stream.
type BiasIndicator struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// DecisionPatternReport summarizes the distribution of decisions and
// actors across a set of audit records.
type DecisionPatternReport struct {
	DecisionsAnalyzed        int                `json:"decisionsAnalyzed"`
	DecisionTypeDistribution map[string]int     `json:"decisionTypeDistribution"`
	AgentActivityDistribution map[string]int    `json:"agentActivityDistribution"`
	AverageConfidenceByType  map[string]float64 `json:"averageConfidenceByType"`
	BiasIndicators           []BiasIndicator    `json:"biasIndicators"`
	Recommendations          []string           `json:"recommendations,omitempty"`
}

// PerformanceStats holds per-actor processing-time statistics.
type PerformanceStats struct {
	MeanMs      float64 `json:"meanMs"`
	MinMs       int64   `json:"minMs"`
	MaxMs       int64   `json:"maxMs"`
	StdDevMs    float64 `json:"stdDevMs"`
	SampleCount int     `json:"sampleCount"`
}

// PerformanceAnomaly flags an actor whose processing times are outliers
// or consistently slow.
type PerformanceAnomaly struct {
	Actor              string  `json:"actor"`
	AnomalyType        string  `json:"anomalyType"`
	Description        string  `json:"description"`
	Severity           string  `json:"severity"`
	MeanMs             float64 `json:"meanMs"`
	OutlierThresholdMs float64 `json:"outlierThresholdMs,omitempty"`
}

// PerformanceReport holds processing-time anomalies plus the per-actor
// statistics that backed them.
type PerformanceReport struct {
	Anomalies []PerformanceAnomaly        `json:"anomalies"`
	Summary   map[string]PerformanceStats `json:"summary"`
}

// AuditReport is the combined intelligence report over a time period.
type AuditReport struct {
	GeneratedAt time.Time `json:"generatedAt"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`

	RecordCount     int                   `json:"recordCount"`
	Findings        []AnomalyFinding      `json:"findings"`
	PatternAnalysis DecisionPatternReport `json:"patternAnalysis"`
	Performance     PerformanceReport     `json:"performance"`

	// AgentAnalytics is the raw analytics blob from the audit trail store.
	AgentAnalytics json.RawMessage `json:"agentAnalytics,omitempty"`

	// Insights is the natural-language summary from the reasoning
	// service; a fixed placeholder when the service is unavailable.
	Insights string `json:"insights"`

	TotalRecordsProcessed int64 `json:"totalRecordsProcessed"`
}
