package scoring

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/stats"
)

var riskScoreRe = regexp.MustCompile(`(?i)risk[_ ]?score[_ ]?:?\s*([0-9]*\.?[0-9]+)`)

// contextualScore asks the reasoning service for an assessment of the
// event and parses a numeric score out of the response. Returns ok=false
// when the service is unavailable, errors, or produces nothing parseable;
// the caller then simply omits the contribution.
func (e *Engine) contextualScore(ctx context.Context, ev domain.Event) (float64, bool) {
	if e.reasoning == nil {
		return 0, false
	}

	payload := map[string]any{
		"severity":   string(ev.Severity),
		"event_type": ev.EventType,
	}
	if ev.Amount > 0 {
		payload["amount"] = ev.Amount
	}
	if ev.EntityID != "" {
		payload["entity_id"] = ev.EntityID
	}
	for k, v := range ev.Metadata {
		payload[k] = v
	}

	resp, err := e.reasoning.Infer(ctx, "contextual_risk_assessment", payload, 3)
	if err != nil {
		e.logger.Debug("contextual assessment skipped", "error", err)
		return 0, false
	}
	return parseRiskResponse(resp)
}

// parseRiskResponse extracts a [0,1] risk score from a reasoning response
// using three strategies in order: a structured JSON object, a loose
// "risk score: N" pattern, and finally risk-keyword averaging.
func parseRiskResponse(resp string) (float64, bool) {
	if score, ok := parseJSONRisk(resp); ok {
		return score, true
	}
	if m := riskScoreRe.FindStringSubmatch(resp); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return stats.Clamp01(v), true
		}
	}
	return keywordRisk(resp)
}

func parseJSONRisk(resp string) (float64, bool) {
	// The model may wrap the JSON in prose; take the outermost braces.
	start := strings.Index(resp, "{")
	end := strings.LastIndex(resp, "}")
	if start < 0 || end <= start {
		return 0, false
	}

	var body struct {
		RiskScore  *float64 `json:"risk_score"`
		RiskLevel  string   `json:"risk_level"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(resp[start:end+1]), &body); err != nil {
		return 0, false
	}

	switch {
	case body.RiskScore != nil:
		return stats.Clamp01(*body.RiskScore), true
	case body.RiskLevel != "":
		switch strings.ToLower(body.RiskLevel) {
		case "critical", "high":
			return 0.8, true
		case "medium":
			return 0.5, true
		case "low":
			return 0.2, true
		}
	case body.Confidence != nil:
		// Some models report only a confidence-style number; treat it as
		// the risk estimate of last resort.
		return stats.Clamp01(*body.Confidence), true
	}
	return 0, false
}

// keywordRisk averages the weights of risk vocabulary found in free text.
// Only the graded risk tiers count toward the average; the contextual
// adjustments below shift the sum without diluting it.
func keywordRisk(resp string) (float64, bool) {
	text := strings.ToLower(resp)
	var sum float64
	n := 0

	contains := func(phrases ...string) bool {
		for _, p := range phrases {
			if strings.Contains(text, p) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("critical", "severe", "extremely high"):
		sum += 0.9
		n++
	case contains("high risk", "very high"):
		sum += 0.8
		n++
	}
	if contains("medium risk", "moderate", "concerning") {
		sum += 0.5
		n++
	}
	if contains("low risk", "minimal", "very low") {
		sum += 0.1
		n++
	}

	if contains("suspicious", "anomal") {
		sum += 0.2
	}
	if contains("normal", "typical") {
		sum -= 0.1
	}

	if n == 0 {
		return 0, false
	}
	return stats.Clamp01(sum / float64(n)), true
}
