// Package rules provides the CEL-Go based custom indicator rule engine.
//
// Operators define boolean CEL expressions over transaction features;
// each matching rule adds its configured fraud indicator to an
// assessment, alongside the built-in indicators.
package rules

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Engine is the CEL-based indicator rule engine.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.RuleConfig
	Program cel.Program
}

// NewEngine creates a new indicator rule engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	// CEL environment with transaction payload variables
	env, err := cel.NewEnv(
		cel.Variable("tx", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("location", cel.StringType),
		cel.Variable("usual_location", cel.StringType),
		cel.Variable("entity_id", cel.StringType),
		cel.Variable("recent_transactions", cel.IntType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("time_since_last", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles and validates a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(cfg *domain.RuleConfig) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg *domain.RuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules.
func (e *Engine) LoadRules(configs []*domain.RuleConfig) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// EvaluateAll evaluates all loaded rules against a transaction payload in
// parallel and returns the indicators of the rules that matched. A rule
// that errors is skipped; rule failures never block an assessment.
func (e *Engine) EvaluateAll(ctx context.Context, tx domain.TransactionPayload) []domain.FraudIndicator {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil
	}

	activation := activationFor(tx)

	// Parallel evaluation using worker pool pattern
	matched := make([]bool, len(rules))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			out, _, err := r.Program.Eval(activation)
			if err != nil {
				return
			}
			matched[idx] = toBool(out)
		}(i, rule)
	}

	wg.Wait()

	var indicators []domain.FraudIndicator
	for i, rule := range rules {
		if matched[i] {
			indicators = append(indicators, domain.FraudIndicator{
				Type:        rule.Config.IndicatorType,
				Description: rule.Config.Description,
				Severity:    rule.Config.IndicatorSeverity,
			})
		}
	}
	return indicators
}

func activationFor(tx domain.TransactionPayload) map[string]any {
	hour := -1
	if !tx.Timestamp.IsZero() {
		hour = tx.Timestamp.Hour()
	}

	txMap := map[string]any{
		"amount":              tx.Amount,
		"location":            tx.Location,
		"usual_location":      tx.UsualLocation,
		"entity_id":           tx.EntityID,
		"recent_transactions": tx.RecentTransactionCount,
	}
	for k, v := range tx.Extra {
		txMap[k] = v
	}

	return map[string]any{
		"tx":                  txMap,
		"amount":              tx.Amount,
		"location":            tx.Location,
		"usual_location":      tx.UsualLocation,
		"entity_id":           tx.EntityID,
		"recent_transactions": tx.RecentTransactionCount,
		"hour":                hour,
		"time_since_last":     tx.TimeSinceLastTransaction,
	}
}

// toBool converts a CEL result to a match decision.
func toBool(val ref.Val) bool {
	if b, ok := val.(types.Bool); ok {
		return bool(b)
	}
	return false
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// ReloadRules clears all existing rules and loads new ones.
// This enables hot-reloading of rules from the database.
func (e *Engine) ReloadRules(configs []*domain.RuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	// Load new rules
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// GetLoadedRules returns the currently loaded rule configurations.
func (e *Engine) GetLoadedRules() []*domain.RuleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.RuleConfig, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.RuleConfig) (*CompiledRule, error) {
	if cfg.IndicatorType == "" {
		return nil, fmt.Errorf("rule %s: indicator type is required", cfg.ID)
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
