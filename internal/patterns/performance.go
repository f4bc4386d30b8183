package patterns

import (
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/stats"
)

// Performance thresholds. Outliers use the classic three-sigma rule over
// an actor's own processing times.
const (
	perfMinSamples    = 5
	outlierSigma      = 3.0
	outlierShareLimit = 0.10
	slowMinSamples    = 10
)

// AnalyzePerformance reports processing-time anomalies plus per-actor
// summary statistics. The "all" summary entry aggregates every record.
// cfg supplies the slow-processing ceiling; nil falls back to defaults.
func (a *Analyzer) AnalyzePerformance(records []*domain.AuditRecord, cfg *domain.EngineConfig) *domain.PerformanceReport {
	slowMeanMs := domain.DefaultEngineConfig().SlowProcessingMs
	if cfg != nil && cfg.SlowProcessingMs > 0 {
		slowMeanMs = cfg.SlowProcessingMs
	}
	report := &domain.PerformanceReport{
		Summary: make(map[string]domain.PerformanceStats),
	}
	if len(records) == 0 {
		return report
	}

	byActor := make(map[string][]int64)
	var all []int64
	for _, rec := range records {
		all = append(all, rec.ProcessingTimeMs)
		if rec.ActorName != "" {
			byActor[rec.ActorName] = append(byActor[rec.ActorName], rec.ProcessingTimeMs)
		}
	}
	report.Summary["all"] = summarize(all)

	for _, actor := range sortedKeys(byActor) {
		times := byActor[actor]
		report.Summary[actor] = summarize(times)
		if len(times) < perfMinSamples {
			continue
		}

		xs := make([]float64, len(times))
		for i, t := range times {
			xs[i] = float64(t)
		}
		mean := stats.Mean(xs)
		sd := stats.StdDev(xs)
		threshold := mean + outlierSigma*sd

		outliers := 0
		for _, x := range xs {
			if x > threshold {
				outliers++
			}
		}
		if share := float64(outliers) / float64(len(xs)); share > outlierShareLimit {
			report.Anomalies = append(report.Anomalies, domain.PerformanceAnomaly{
				Actor:              actor,
				AnomalyType:        "performance_outliers",
				Description:        fmt.Sprintf("actor %s has %.1f%% of decisions beyond the outlier threshold", actor, share*100),
				Severity:           "MEDIUM",
				MeanMs:             mean,
				OutlierThresholdMs: threshold,
			})
		}

		if mean > slowMeanMs && len(times) > slowMinSamples {
			report.Anomalies = append(report.Anomalies, domain.PerformanceAnomaly{
				Actor:       actor,
				AnomalyType: "slow_performance",
				Description: fmt.Sprintf("actor %s averages %.0fms per decision over %d decisions", actor, mean, len(times)),
				Severity:    "HIGH",
				MeanMs:      mean,
			})
		}
	}

	a.logger.Debug("performance analyzed",
		"records", len(records),
		"anomalies", len(report.Anomalies))
	return report
}

func summarize(times []int64) domain.PerformanceStats {
	if len(times) == 0 {
		return domain.PerformanceStats{}
	}
	xs := make([]float64, len(times))
	minT, maxT := times[0], times[0]
	for i, t := range times {
		xs[i] = float64(t)
		if t < minT {
			minT = t
		}
		if t > maxT {
			maxT = t
		}
	}
	return domain.PerformanceStats{
		MeanMs:      stats.Mean(xs),
		MinMs:       minT,
		MaxMs:       maxT,
		StdDevMs:    stats.StdDev(xs),
		SampleCount: len(times),
	}
}
