// Package fraud implements transaction fraud risk assessment.
//
// The primary path asks the reasoning service for a pattern analysis,
// extracts a risk estimate from the response, then adjusts it with
// feature heuristics (amount, geography, velocity, timing). When the
// reasoning service is unavailable the assessor falls back to a
// conservative rule-based baseline.
package fraud

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/stats"
)

// VelocityCounter resolves the recent transaction count for an entity
// when the payload does not carry one.
type VelocityCounter interface {
	Count(ctx context.Context, entityID string) (int64, error)
}

// Assessor scores transaction payloads for fraud risk. Safe for
// concurrent use.
type Assessor struct {
	config    *domain.ConfigHolder
	reasoning domain.ReasoningService
	velocity  VelocityCounter
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an assessor. reasoning and velocity may be nil.
func New(config *domain.ConfigHolder, reasoning domain.ReasoningService, velocity VelocityCounter, logger *slog.Logger) *Assessor {
	return &Assessor{
		config:    config,
		reasoning: reasoning,
		velocity:  velocity,
		logger:    logger.With("component", "fraud"),
		now:       time.Now,
	}
}

// Assess evaluates one transaction payload. Never fails: when the
// reasoning service errors the result degrades to the baseline heuristic
// and is flagged accordingly.
func (a *Assessor) Assess(ctx context.Context, tx domain.TransactionPayload) *domain.FraudAssessment {
	cfg := a.config.Load()
	tx = a.resolveVelocity(ctx, tx)

	assessment := &domain.FraudAssessment{
		ID:         uuid.New().String(),
		AssessedAt: a.now(),
	}

	resp, err := a.analyze(ctx, tx)
	if err != nil {
		a.logger.Warn("reasoning unavailable, baseline fraud assessment", "error", err)
		assessment.Baseline = true
		assessment.RiskScore = baselineRisk(tx, cfg, a.now)
		assessment.Recommendations = basicRecommendations(tx)
		return assessment
	}

	base := extractRiskScore(resp)
	assessment.RiskScore = adjustRisk(base, tx, cfg)
	assessment.Recommendations = recommendations(assessment.RiskScore, tx, cfg)
	assessment.Indicators = identifyIndicators(tx, resp, cfg)

	a.logger.Info("fraud assessment completed",
		"id", assessment.ID,
		"risk_score", assessment.RiskScore,
		"indicators", len(assessment.Indicators))
	return assessment
}

func (a *Assessor) resolveVelocity(ctx context.Context, tx domain.TransactionPayload) domain.TransactionPayload {
	if tx.RecentTransactionCount >= 0 || a.velocity == nil || tx.EntityID == "" {
		return tx
	}
	count, err := a.velocity.Count(ctx, tx.EntityID)
	if err != nil {
		a.logger.Debug("velocity lookup failed", "entity", tx.EntityID, "error", err)
		return tx
	}
	tx.RecentTransactionCount = int(count)
	return tx
}

func (a *Assessor) analyze(ctx context.Context, tx domain.TransactionPayload) (string, error) {
	if a.reasoning == nil {
		return "", errReasoningDisabled
	}
	payload := map[string]any{
		"amount":         tx.Amount,
		"location":       tx.Location,
		"usual_location": tx.UsualLocation,
	}
	if tx.EntityID != "" {
		payload["entity_id"] = tx.EntityID
	}
	if tx.RecentTransactionCount >= 0 {
		payload["recent_transactions"] = tx.RecentTransactionCount
	}
	for k, v := range tx.Extra {
		payload[k] = v
	}
	return a.reasoning.Infer(ctx, "fraud_pattern_analysis", payload, 2)
}

// ErrReasoningDisabled is returned internally when no reasoning service
// is configured; it routes assessment to the baseline path.
var errReasoningDisabled = errors.New("reasoning service disabled")

var fraudScoreRe = regexp.MustCompile(`risk[_ ]?score[_ ]?:?\s*([0-9]*\.?[0-9]+)`)

// extractRiskScore pulls a risk estimate out of the analysis text. An
// explicit "risk score: N" wins; otherwise risk vocabulary accumulates
// additively.
func extractRiskScore(resp string) float64 {
	text := strings.ToLower(resp)

	if m := fraudScoreRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return stats.Clamp01(v)
		}
	}

	risk := 0.0
	if strings.Contains(text, "high risk") || strings.Contains(text, "critical") || strings.Contains(text, "severe") {
		risk += 0.7
	}
	if strings.Contains(text, "medium risk") || strings.Contains(text, "moderate") {
		risk += 0.5
	}
	if strings.Contains(text, "low risk") || strings.Contains(text, "minimal") {
		risk += 0.2
	}
	if strings.Contains(text, "fraud") || strings.Contains(text, "suspicious") || strings.Contains(text, "anomal") {
		risk += 0.3
	}
	return stats.Clamp01(risk)
}

// adjustRisk layers feature heuristics over the base estimate.
func adjustRisk(base float64, tx domain.TransactionPayload, cfg *domain.EngineConfig) float64 {
	risk := base

	switch {
	case tx.Amount > cfg.BusinessThreshold:
		risk += 0.3
	case tx.Amount > cfg.IndividualThreshold:
		risk += 0.2
	case tx.Amount > cfg.IndividualThreshold*0.5:
		risk += 0.1
	}

	if geoMismatch(tx) {
		risk += 0.25
		if cfg.IsSanctioned(tx.Location) {
			risk += 0.4
		}
	}

	switch {
	case tx.RecentTransactionCount > cfg.VelocityExtreme:
		risk += 0.35
	case tx.RecentTransactionCount > cfg.VelocityHigh:
		risk += 0.2
	case tx.RecentTransactionCount > cfg.VelocityModerate:
		risk += 0.1
	}

	if cfg.UnusualHour(tx.Timestamp) {
		risk += 0.15
	}
	return stats.Clamp01(risk)
}

// baselineRisk is the heuristic-only path used when no reasoning analysis
// is available. Starts from a conservative prior.
func baselineRisk(tx domain.TransactionPayload, cfg *domain.EngineConfig, now func() time.Time) float64 {
	risk := 0.3

	switch {
	case tx.Amount > 50000:
		risk += 0.4
	case tx.Amount > 10000:
		risk += 0.2
	case tx.Amount > 1000:
		risk += 0.1
	}

	if geoMismatch(tx) {
		risk += 0.25
	}

	switch {
	case tx.RecentTransactionCount > cfg.VelocityHigh:
		risk += 0.2
	case tx.RecentTransactionCount > cfg.VelocityModerate:
		risk += 0.1
	}

	ts := tx.Timestamp
	if ts.IsZero() {
		ts = now()
	}
	if cfg.UnusualHour(ts) {
		risk += 0.1
	}
	return stats.Clamp01(risk)
}

func geoMismatch(tx domain.TransactionPayload) bool {
	return tx.Location != "" && tx.UsualLocation != "" && tx.Location != tx.UsualLocation
}
