// Package scoring implements composite risk scoring for compliance events.
//
// A score combines four contributions: a severity base weight, an
// event-type keyword weight, a historical-similarity component over the
// recent audit window, and an optional contextual assessment from the
// reasoning service. The result is clamped to [0, 1].
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/stats"
)

// Engine scores compliance events. Safe for concurrent use.
type Engine struct {
	config    *domain.ConfigHolder
	store     domain.AuditStore
	cache     domain.Cache
	reasoning domain.ReasoningService
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a scoring engine. cache and reasoning may be nil; the
// corresponding contributions are then skipped.
func New(config *domain.ConfigHolder, store domain.AuditStore, cache domain.Cache, reasoning domain.ReasoningService, logger *slog.Logger) *Engine {
	return &Engine{
		config:    config,
		store:     store,
		cache:     cache,
		reasoning: reasoning,
		logger:    logger.With("component", "scoring"),
		now:       time.Now,
	}
}

// Score computes the composite risk score for a single event. The call
// never fails outright: when the audit store is unreachable it degrades
// to basic mode (severity + event type only) and flags the result.
func (e *Engine) Score(ctx context.Context, ev domain.Event) (*domain.ScoreResult, error) {
	cfg := e.config.Load()

	res := &domain.ScoreResult{}
	score := 0.0

	base := cfg.SeverityWeight(ev.Severity)
	score += base
	res.Factors = append(res.Factors, domain.RiskFactor{Label: "severity_base", Weight: base})

	if kw := eventTypeRisk(ev.EventType); kw > 0 {
		score += kw
		res.Factors = append(res.Factors, domain.RiskFactor{Label: "event_type_risk", Weight: kw})
	}

	window, err := e.historicalWindow(ctx, cfg.HistoricalWindow)
	if err != nil {
		// Degraded mode. The store being down must not block scoring.
		e.logger.Warn("historical window unavailable, basic scoring mode",
			"error", err)
		res.Basic = true
		res.Score = stats.Clamp01(score)
		res.RiskLevel = riskLevel(res.Score, cfg.AnomalyThreshold)
		return res, nil
	}

	if hist := historicalContribution(ev, window, cfg.HistoricalWeight); hist > 0 {
		score += hist
		res.Factors = append(res.Factors, domain.RiskFactor{Label: "historical_similarity", Weight: hist})
	}

	if ctxScore, ok := e.contextualScore(ctx, ev); ok {
		w := cfg.ContextualWeight * ctxScore
		score += w
		res.Factors = append(res.Factors, domain.RiskFactor{Label: "contextual_assessment", Weight: w})
	}

	res.Score = stats.Clamp01(score)
	res.RiskLevel = riskLevel(res.Score, cfg.AnomalyThreshold)

	e.logger.Debug("event scored",
		"severity", ev.Severity,
		"event_type", ev.EventType,
		"score", res.Score,
		"factors", len(res.Factors))

	return res, nil
}

// riskLevel classifies a score against the anomaly threshold.
func riskLevel(score, threshold float64) string {
	switch {
	case score > threshold:
		return "HIGH"
	case score > threshold*0.7:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// eventTypeRisk maps event-type keywords to additional risk. Tiers are
// checked in order of concern; the first match wins.
func eventTypeRisk(eventType string) float64 {
	et := strings.ToUpper(eventType)
	switch {
	case strings.Contains(et, "FRAUD") || strings.Contains(et, "BREACH"):
		return 0.7
	case strings.Contains(et, "VIOLATION") || strings.Contains(et, "NON_COMPLIANCE"):
		return 0.5
	case strings.Contains(et, "SUSPICIOUS") || strings.Contains(et, "ANOMALY"):
		return 0.3
	default:
		return 0
	}
}

// historicalWindow loads the recent audit records, going through the
// cache when one is configured.
func (e *Engine) historicalWindow(ctx context.Context, lookback time.Duration) ([]*domain.AuditRecord, error) {
	end := e.now()
	start := end.Add(-lookback)

	// Cache key rounds to the minute so concurrent scorers share a window.
	key := fmt.Sprintf("scoring:window:%d", end.Truncate(time.Minute).Unix())

	if e.cache != nil {
		if cached, err := e.cache.GetWindow(ctx, key); err == nil && cached != nil {
			return cached, nil
		}
	}

	records, err := e.store.QueryWindow(ctx, start, end)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.SetWindow(ctx, key, records, time.Minute); err != nil {
			e.logger.Debug("window cache write failed", "error", err)
		}
	}
	return records, nil
}
