// Package monitor runs the continuous audit analysis loop and builds
// intelligence reports.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/kestrel/internal/anomaly"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/patterns"
)

// DefaultAnalysisWindow is the lookback for a single monitoring pass.
const DefaultAnalysisWindow = time.Hour

// errorBackoff is the pause after a failed pass before retrying.
const errorBackoff = 30 * time.Second

// insightsFallback is used when the reasoning service cannot produce a
// report summary.
const insightsFallback = "Automated insights unavailable: reasoning service offline."

// Monitor orchestrates periodic anomaly analysis over the audit trail.
type Monitor struct {
	config    *domain.ConfigHolder
	store     domain.AuditStore
	bus       domain.EventBus
	reasoning domain.ReasoningService
	detector  *anomaly.Detector
	analyzer  *patterns.Analyzer
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	processed atomic.Int64

	now func() time.Time
}

// New creates a monitor. bus and reasoning may be nil; publication and
// report insights degrade gracefully.
func New(
	config *domain.ConfigHolder,
	store domain.AuditStore,
	bus domain.EventBus,
	reasoning domain.ReasoningService,
	logger *slog.Logger,
) *Monitor {
	return &Monitor{
		config:    config,
		store:     store,
		bus:       bus,
		reasoning: reasoning,
		detector:  anomaly.New(logger),
		analyzer:  patterns.New(logger),
		logger:    logger.With("component", "monitor"),
		now:       time.Now,
	}
}

// Start launches the continuous monitoring loop. Returns an error if the
// monitor is already running.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("monitor already running")
	}

	m.running = true
	m.stopCh = make(chan struct{})
	m.wg.Add(1)

	go m.run(ctx, m.stopCh)

	m.logger.Info("continuous monitoring started",
		"interval", m.config.Load().AnalysisInterval,
	)
	return nil
}

// Stop halts the monitoring loop and waits for the worker to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("continuous monitoring stopped")
}

// Running reports whether the loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// TotalRecordsProcessed returns the number of records seen by the
// monitoring loop and on-demand analyses.
func (m *Monitor) TotalRecordsProcessed() int64 {
	return m.processed.Load()
}

func (m *Monitor) run(ctx context.Context, stopCh chan struct{}) {
	defer m.wg.Done()

	for {
		findings, err := m.AnalyzeWindow(ctx, DefaultAnalysisWindow)

		var pause time.Duration
		if err != nil {
			m.logger.Error("analysis pass failed", "error", err)
			pause = errorBackoff
		} else {
			if len(findings) > 0 {
				m.logger.Warn("anomalies detected",
					"count", len(findings),
				)
			}
			pause = m.config.Load().AnalysisInterval
		}

		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(pause):
		}
	}
}

// AnalyzeWindow runs anomaly detection over the trailing window and
// publishes findings to the bus.
func (m *Monitor) AnalyzeWindow(ctx context.Context, window time.Duration) ([]domain.AnomalyFinding, error) {
	if window <= 0 {
		window = DefaultAnalysisWindow
	}

	end := m.now()
	start := end.Add(-window)

	records, err := m.store.QueryWindow(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit window: %w", err)
	}

	m.processed.Add(int64(len(records)))

	findings := m.detector.Detect(records)
	for i := range findings {
		m.publishFinding(ctx, &findings[i])
	}

	m.logger.Debug("analysis pass completed",
		"records", len(records),
		"findings", len(findings),
	)

	return findings, nil
}

// publishFinding sends a finding to the bus; HIGH and CRITICAL findings
// are additionally published on the alert topic.
func (m *Monitor) publishFinding(ctx context.Context, finding *domain.AnomalyFinding) {
	if m.bus == nil {
		return
	}

	payload, err := json.Marshal(finding)
	if err != nil {
		m.logger.Error("failed to marshal finding", "error", err)
		return
	}

	if err := m.bus.Publish(ctx, domain.TopicFinding, payload); err != nil {
		m.logger.Error("failed to publish finding",
			"pattern_type", finding.PatternType,
			"error", err,
		)
	}

	switch finding.Severity {
	case domain.SeverityHigh, domain.SeverityCritical:
		if err := m.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
			m.logger.Error("failed to publish alert",
				"pattern_type", finding.PatternType,
				"error", err,
			)
		}
	}
}

// GenerateReport builds a combined intelligence report over a period:
// anomaly findings, decision patterns, performance analytics, store
// analytics and a natural-language summary.
func (m *Monitor) GenerateReport(ctx context.Context, start, end time.Time) (*domain.AuditReport, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("report period end must be after start")
	}

	records, err := m.store.QueryWindow(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query report period: %w", err)
	}

	m.processed.Add(int64(len(records)))

	report := &domain.AuditReport{
		GeneratedAt: m.now(),
		PeriodStart: start,
		PeriodEnd:   end,
		RecordCount: len(records),
		Findings:    m.detector.Detect(records),
	}

	if pa := m.analyzer.AnalyzeDecisions(records); pa != nil {
		report.PatternAnalysis = *pa
	}
	if perf := m.analyzer.AnalyzePerformance(records, m.config.Load()); perf != nil {
		report.Performance = *perf
	}

	if analytics, err := m.store.GetAnalytics(ctx); err != nil {
		m.logger.Warn("analytics unavailable for report", "error", err)
	} else {
		report.AgentAnalytics = analytics
	}

	report.Insights = m.generateInsights(ctx, report)
	report.TotalRecordsProcessed = m.processed.Load()

	if m.bus != nil {
		if payload, err := json.Marshal(report); err == nil {
			if err := m.bus.Publish(ctx, domain.TopicReport, payload); err != nil {
				m.logger.Error("failed to publish report", "error", err)
			}
		}
	}

	return report, nil
}

// generateInsights asks the reasoning service for a narrative summary.
// Any failure yields the fixed fallback text.
func (m *Monitor) generateInsights(ctx context.Context, report *domain.AuditReport) string {
	if m.reasoning == nil {
		return insightsFallback
	}

	payload := map[string]any{
		"period_start":   report.PeriodStart.Format(time.RFC3339),
		"period_end":     report.PeriodEnd.Format(time.RFC3339),
		"record_count":   report.RecordCount,
		"finding_count":  len(report.Findings),
		"bias_count":     len(report.PatternAnalysis.BiasIndicators),
		"perf_anomalies": len(report.Performance.Anomalies),
	}

	insights, err := m.reasoning.Infer(ctx, "audit_report_insights", payload, 3)
	if err != nil {
		m.logger.Warn("reasoning unavailable for report insights", "error", err)
		return insightsFallback
	}
	return insights
}
