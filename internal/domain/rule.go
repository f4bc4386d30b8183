package domain

import (
	"time"
)

// RuleConfig is an operator-defined fraud indicator rule. The expression
// is a CEL predicate over transaction features; when it evaluates true
// the assessment gains the configured indicator.
type RuleConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Expression is a CEL predicate. Available variables: amount,
	// location, usual_location, entity_id, recent_transactions, hour,
	// time_since_last, and the full payload as tx.
	Expression string `json:"expression"`

	// Indicator emitted when the expression matches.
	IndicatorType     string `json:"indicatorType"`
	IndicatorSeverity string `json:"indicatorSeverity"`

	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
