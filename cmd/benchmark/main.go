// Benchmark tool for the Kestrel analysis pipeline.
//
// Usage:
//
//	go run cmd/benchmark/main.go -records 50000 -db /tmp/kestrel-bench.db
//
// This tool:
//  1. Generates a synthetic audit stream into the store
//  2. Runs the anomaly detectors, pattern analyzer and risk scorer over it
//  3. Reports throughput and findings counts
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/anomaly"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/patterns"
	"github.com/opensource-finance/kestrel/internal/scoring"
	"github.com/opensource-finance/kestrel/internal/store"
)

var (
	recordCount = flag.Int("records", 10000, "number of synthetic audit records")
	dbPath      = flag.String("db", "", "sqlite path (default: temp file)")
	seed        = flag.Int64("seed", 42, "random seed")
	scoreCount  = flag.Int("scores", 1000, "number of scoring calls to benchmark")
)

var (
	actors     = []string{"kyc-agent", "aml-agent", "sanctions-agent", "review-agent", "escalation-agent"}
	decisions  = []string{"approve", "reject", "escalate", "review"}
	eventTypes = []string{"ROUTINE_CHECK", "SUSPICIOUS_TRANSFER", "POLICY_VIOLATION", "FRAUD_ATTEMPT", "ANOMALY_DETECTED"}
	severities = []domain.Severity{domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical}
)

func main() {
	flag.Parse()

	path := *dbPath
	if path == "" {
		tmp, err := os.CreateTemp("", "kestrel-bench-*.db")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create temp db: %v\n", err)
			os.Exit(1)
		}
		path = tmp.Name()
		tmp.Close()
		defer os.Remove(path)
	}

	s, err := store.New(domain.StoreConfig{Driver: "sqlite", SQLitePath: path})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(*seed))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Phase 1: ingest synthetic stream
	fmt.Printf("Generating %d synthetic audit records...\n", *recordCount)

	base := time.Now().Add(-24 * time.Hour)
	ingestStart := time.Now()

	records := make([]*domain.AuditRecord, 0, *recordCount)
	for i := 0; i < *recordCount; i++ {
		rec := syntheticRecord(rng, base, i)
		records = append(records, rec)
		if err := s.SaveRecord(ctx, rec); err != nil {
			fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			os.Exit(1)
		}
	}

	ingestDur := time.Since(ingestStart)
	fmt.Printf("  ingest:   %d records in %v (%.0f rec/s)\n",
		*recordCount, ingestDur.Round(time.Millisecond),
		float64(*recordCount)/ingestDur.Seconds())

	// Phase 2: detector + analyzer throughput
	detector := anomaly.New(logger)
	analyzer := patterns.New(logger)

	detectStart := time.Now()
	findings := detector.Detect(records)
	detectDur := time.Since(detectStart)

	engineCfg := domain.DefaultEngineConfig()

	patternStart := time.Now()
	report := analyzer.AnalyzeDecisions(records)
	perf := analyzer.AnalyzePerformance(records, &engineCfg)
	patternDur := time.Since(patternStart)

	fmt.Printf("  detect:   %d records in %v (%.0f rec/s), %d findings\n",
		len(records), detectDur.Round(time.Microsecond),
		float64(len(records))/detectDur.Seconds(), len(findings))
	fmt.Printf("  patterns: %v, %d bias indicators, %d perf anomalies\n",
		patternDur.Round(time.Microsecond),
		len(report.BiasIndicators), len(perf.Anomalies))

	// Phase 3: scorer throughput (heuristic-only, store-backed history)
	holder := domain.NewConfigHolder(domain.DefaultEngineConfig())
	scorer := scoring.New(holder, s, nil, nil, logger)

	scoreStart := time.Now()
	for i := 0; i < *scoreCount; i++ {
		ev := domain.Event{
			Severity:  severities[rng.Intn(len(severities))],
			EventType: eventTypes[rng.Intn(len(eventTypes))],
			Amount:    rng.Float64() * 100000,
			EntityID:  fmt.Sprintf("entity-%03d", rng.Intn(100)),
		}
		if _, err := scorer.Score(ctx, ev); err != nil {
			fmt.Fprintf(os.Stderr, "score failed: %v\n", err)
			os.Exit(1)
		}
	}
	scoreDur := time.Since(scoreStart)

	fmt.Printf("  score:    %d events in %v (%.0f ev/s)\n",
		*scoreCount, scoreDur.Round(time.Millisecond),
		float64(*scoreCount)/scoreDur.Seconds())
}

func syntheticRecord(rng *rand.Rand, base time.Time, i int) *domain.AuditRecord {
	actor := actors[rng.Intn(len(actors))]

	// Processing times are log-normal-ish with an occasional slow actor.
	processing := int64(50 + rng.Intn(400))
	if actor == "escalation-agent" && rng.Float64() < 0.1 {
		processing += int64(rng.Intn(8000))
	}

	risk := rng.Float64()
	level := "low"
	switch {
	case risk > 0.8:
		level = "critical"
	case risk > 0.6:
		level = "high"
	case risk > 0.4:
		level = "medium"
	}

	return &domain.AuditRecord{
		ID:               uuid.New().String(),
		ActorName:        actor,
		ActorType:        "analysis",
		Confidence:       rng.Intn(5),
		StartedAt:        base.Add(time.Duration(i) * 8 * time.Second),
		ProcessingTimeMs: processing,
		Decision:         decisions[rng.Intn(len(decisions))],
		RiskAssessment: domain.RiskAssessment{
			OverallRiskScore: risk,
			RiskLevel:        level,
		},
		EventType: eventTypes[rng.Intn(len(eventTypes))],
		Severity:  severities[rng.Intn(len(severities))],
		Amount:    rng.Float64() * 50000,
		EntityID:  fmt.Sprintf("entity-%03d", rng.Intn(100)),
	}
}
