// Package reasoning provides the HTTP client for the reasoning gateway.
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// ErrDisabled is returned when reasoning is not configured. Callers treat
// it like any other inference failure and fall back to heuristics.
var ErrDisabled = errors.New("reasoning service disabled")

const defaultTimeout = 30 * time.Second

// Client calls a reasoning gateway over HTTP JSON.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

// New creates a reasoning client from configuration. Returns nil when
// reasoning is disabled; the returned nil is safe to pass to consumers
// that check for it.
func New(cfg domain.ReasoningConfig, logger *slog.Logger) domain.ReasoningService {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil
	}

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.With("component", "reasoning"),
	}
}

// Disabled returns a service whose Infer always fails with ErrDisabled.
// Used for air-gapped deployments where callers still want a non-nil
// service value.
func Disabled() domain.ReasoningService {
	return disabledService{}
}

type disabledService struct{}

func (disabledService) Infer(ctx context.Context, task string, payload map[string]any, steps int) (string, error) {
	return "", ErrDisabled
}

type inferRequest struct {
	Task    string         `json:"task"`
	Payload map[string]any `json:"payload"`
	Steps   int            `json:"reasoning_steps"`
}

type inferResponse struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// Infer runs a reasoning task over the payload and returns the gateway's
// free-text response.
func (c *Client) Infer(ctx context.Context, task string, payload map[string]any, steps int) (string, error) {
	if task == "" {
		return "", fmt.Errorf("task is required")
	}

	body, err := json.Marshal(inferRequest{
		Task:    task,
		Payload: payload,
		Steps:   steps,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/infer", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("inference returned status %d", resp.StatusCode)
	}

	var parsed inferResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("inference error: %s", parsed.Error)
	}

	c.logger.Debug("inference completed",
		"task", task,
		"steps", steps,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return parsed.Output, nil
}
