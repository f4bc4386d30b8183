// Package patterns analyzes decision distributions and processing-time
// behavior across the audit window, reporting bias indicators and
// performance anomalies.
package patterns

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/stats"
)

// Bias thresholds over the decision stream. Both comparisons are strict:
// a share exactly at the threshold does not flag.
const (
	decisionBiasShare       = 0.80
	actorConcentrationShare = 0.70
)

// Analyzer produces decision-pattern and performance reports. Stateless
// and safe for concurrent use.
type Analyzer struct {
	logger *slog.Logger
}

// New creates an analyzer.
func New(logger *slog.Logger) *Analyzer {
	return &Analyzer{logger: logger.With("component", "patterns")}
}

// AnalyzeDecisions builds the decision distribution report for a window.
func (a *Analyzer) AnalyzeDecisions(records []*domain.AuditRecord) *domain.DecisionPatternReport {
	report := &domain.DecisionPatternReport{
		DecisionsAnalyzed:         len(records),
		DecisionTypeDistribution:  make(map[string]int),
		AgentActivityDistribution: make(map[string]int),
		AverageConfidenceByType:   make(map[string]float64),
	}
	if len(records) == 0 {
		return report
	}

	confByType := make(map[string][]float64)
	for _, rec := range records {
		if rec.Decision != "" {
			report.DecisionTypeDistribution[rec.Decision]++
			confByType[rec.Decision] = append(confByType[rec.Decision], float64(rec.Confidence))
		}
		if rec.ActorName != "" {
			report.AgentActivityDistribution[rec.ActorName]++
		}
	}
	for decision, confs := range confByType {
		report.AverageConfidenceByType[decision] = stats.Mean(confs)
	}

	// Shares are computed over the records that actually carried the
	// attribute, so untyped records cannot dilute a concentration.
	decisionTotal := 0
	for _, count := range report.DecisionTypeDistribution {
		decisionTotal += count
	}
	actorTotal := 0
	for _, count := range report.AgentActivityDistribution {
		actorTotal += count
	}

	for _, decision := range sortedKeys(report.DecisionTypeDistribution) {
		count := report.DecisionTypeDistribution[decision]
		if share := float64(count) / float64(decisionTotal); share > decisionBiasShare {
			report.BiasIndicators = append(report.BiasIndicators, domain.BiasIndicator{
				Type:        "decision_distribution_bias",
				Description: fmt.Sprintf("decision %s accounts for %.1f%% of all decisions", decision, share*100),
				Severity:    "MEDIUM",
			})
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("Review decision criteria driving the concentration of %s outcomes", decision))
		}
	}
	for _, actor := range sortedKeys(report.AgentActivityDistribution) {
		count := report.AgentActivityDistribution[actor]
		if share := float64(count) / float64(actorTotal); share > actorConcentrationShare {
			report.BiasIndicators = append(report.BiasIndicators, domain.BiasIndicator{
				Type:        "agent_concentration_bias",
				Description: fmt.Sprintf("actor %s produced %.1f%% of all decisions", actor, share*100),
				Severity:    "LOW",
			})
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("Rebalance workload away from %s to diversify decision sources", actor))
		}
	}

	a.logger.Debug("decision patterns analyzed",
		"records", len(records),
		"bias_indicators", len(report.BiasIndicators))
	return report
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
