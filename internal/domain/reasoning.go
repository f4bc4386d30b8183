package domain

import (
	"context"
)

// ReasoningService is the contextual analysis backend (an LLM gateway in
// production deployments). Any error from Infer means the corresponding
// scoring contribution is skipped; it is never fatal to the caller.
type ReasoningService interface {
	// Infer runs a reasoning task over the given payload and returns the
	// model's free-text response. steps bounds the reasoning depth.
	Infer(ctx context.Context, task string, payload map[string]any, steps int) (string, error)
}

// ReasoningConfig holds configuration for the reasoning client.
type ReasoningConfig struct {
	// Enabled gates all reasoning calls. When false the engine runs in
	// heuristic-only mode.
	Enabled bool

	// Endpoint is the HTTP base URL of the reasoning gateway.
	Endpoint string
	APIKey   string

	// TimeoutSeconds bounds a single inference call.
	TimeoutSeconds int
}
