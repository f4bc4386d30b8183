// Kestrel - Compliance anomaly detection and risk scoring engine.
// Copyright (c) 2026 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/kestrel/internal/api"
	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/fraud"
	"github.com/opensource-finance/kestrel/internal/monitor"
	"github.com/opensource-finance/kestrel/internal/reasoning"
	"github.com/opensource-finance/kestrel/internal/rules"
	"github.com/opensource-finance/kestrel/internal/scoring"
	"github.com/opensource-finance/kestrel/internal/store"
	"github.com/opensource-finance/kestrel/internal/velocity"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("KESTREL_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	if endpoint := os.Getenv("KESTREL_REASONING_ENDPOINT"); endpoint != "" {
		cfg.Reasoning.Enabled = true
		cfg.Reasoning.Endpoint = endpoint
		cfg.Reasoning.APIKey = os.Getenv("KESTREL_REASONING_API_KEY")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"store", cfg.Store.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"reasoning", cfg.Reasoning.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Store
	auditStore, err := store.New(cfg.Store)
	if err != nil {
		slog.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer auditStore.Close()
	slog.Info("store initialized", "driver", cfg.Store.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Engine tunables: prefer the persisted snapshot over defaults.
	holder := domain.NewConfigHolder(cfg.Engine)
	if persisted, err := auditStore.LoadEngineConfig(ctx); err == nil {
		holder.Store(*persisted)
		slog.Info("engine config restored from store")
	} else if !errors.Is(err, store.ErrNotFound) {
		slog.Warn("failed to load persisted engine config", "error", err)
	}

	// Initialize Reasoning client (optional)
	reasoningSvc := reasoning.New(cfg.Reasoning, logger)
	if reasoningSvc == nil {
		slog.Info("reasoning disabled, running heuristic-only")
	} else {
		slog.Info("reasoning client initialized", "endpoint", cfg.Reasoning.Endpoint)
	}

	// Initialize Velocity Service
	velocitySvc := velocity.NewService(auditStore, cacheImpl, velocity.DefaultWindow)
	slog.Info("velocity service initialized")

	// Initialize Rule Engine
	ruleEngine, err := rules.NewEngine(100)
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	defer ruleEngine.Close()

	// Load indicator rules from the store (no hardcoded defaults)
	if err := loadRulesFromStore(ctx, auditStore, ruleEngine); err != nil {
		slog.Error("failed to load rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", ruleEngine.RulesCount())

	// Initialize core engines
	scorer := scoring.New(holder, auditStore, cacheImpl, reasoningSvc, logger)
	assessor := fraud.New(holder, reasoningSvc, velocitySvc, logger)
	mon := monitor.New(holder, auditStore, busImpl, reasoningSvc, logger)

	// Start continuous monitoring
	if err := mon.Start(ctx); err != nil {
		slog.Error("failed to start monitor", "error", err)
		os.Exit(1)
	}
	defer mon.Stop()

	// Initialize Server
	srv := api.NewServer(cfg.Server, holder, auditStore, cacheImpl, busImpl,
		scorer, assessor, mon, ruleEngine, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	mon.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

// loadRulesFromStore loads indicator rules into the engine.
// All rules are configured via POST /rules - no hardcoded defaults.
func loadRulesFromStore(ctx context.Context, auditStore domain.AuditStore, engine *rules.Engine) error {
	configs, err := auditStore.ListRules(ctx)
	if err != nil {
		slog.Warn("failed to list rules from store", "error", err)
		return nil // Start with empty rules - they can be added via API
	}

	if len(configs) > 0 {
		slog.Info("loading indicator rules from store", "count", len(configs))
		return engine.LoadRules(configs)
	}

	slog.Info("no indicator rules in store - configure via POST /rules API")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🪶 KESTREL                  ║")
	fmt.Println("  ║   Compliance Anomaly Detection Engine     ║")
	fmt.Println("  ║      Watching the watchers.               ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /analyze           - Anomaly detection over a window")
	fmt.Println("    POST /score             - Score a compliance event")
	fmt.Println("    POST /fraud/assess      - Assess a transaction for fraud")
	fmt.Println("    POST /patterns/report   - Decision pattern analysis")
	fmt.Println("    GET  /reports           - Combined intelligence report")
	fmt.Println("    GET  /config            - Engine tunables")
	fmt.Println("    PUT  /config            - Update engine tunables")
	fmt.Println("    GET  /rules             - List indicator rules")
	fmt.Println("    POST /rules             - Create an indicator rule")
	fmt.Println("    POST /rules/reload      - Hot-reload rules from store")
	fmt.Println("    GET  /status            - Engine status")
	fmt.Println("    GET  /health            - Health check")
	fmt.Println()
}
