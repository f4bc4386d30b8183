package scoring

import (
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/stats"
)

// Historical similarity aggregation weights. The aggregate blends the
// mean and peak similarity with a severity-weighted average and the
// density of strong matches, then is damped so history alone can never
// dominate a score.
const (
	aggMeanWeight     = 0.30
	aggMaxWeight      = 0.35
	aggSeverityWeight = 0.20
	aggDensityWeight  = 0.15

	strongMatchThreshold = 0.7
	historicalDamping    = 0.85
	historicalCeiling    = 0.75
)

// historicalContribution computes the weighted historical component of a
// risk score. Returns 0 when the window is empty.
func historicalContribution(ev domain.Event, window []*domain.AuditRecord, weight float64) float64 {
	if len(window) == 0 {
		return 0
	}

	sims := make([]float64, 0, len(window))
	var weightedSum, weightSum, maxSim float64
	weighted := 0
	strong := 0

	evRank := ev.Severity.Rank()
	for _, rec := range window {
		sim := recordSimilarity(ev, rec)
		sims = append(sims, sim)
		if sim > maxSim {
			maxSim = sim
		}
		if sim > strongMatchThreshold {
			strong++
		}
		if recRank := rec.Severity.Rank(); evRank > 0 && recRank > 0 {
			w := float64(recRank) / 4.0
			weightedSum += sim * w
			weightSum += w
			weighted++
		}
	}

	mean := stats.Mean(sims)

	// Severity-weighted average over the severity weights themselves.
	// Falls back to the plain mean when any record lacks a severity rank.
	sevWeighted := mean
	if weighted == len(window) && weightSum > 0 {
		sevWeighted = weightedSum / weightSum
	}
	density := float64(strong) / float64(len(window))

	aggregate := aggMeanWeight*mean +
		aggMaxWeight*maxSim +
		aggSeverityWeight*sevWeighted +
		aggDensityWeight*density

	scaled := aggregate * historicalDamping
	if scaled > historicalCeiling {
		scaled = historicalCeiling
	}
	return weight * scaled
}

// recordSimilarity compares an incoming event against one historical
// record. Each available signal contributes equally; signals whose
// features are absent on either side are skipped.
func recordSimilarity(ev domain.Event, rec *domain.AuditRecord) float64 {
	var sum float64
	n := 0

	// Event type: exact match after case folding.
	if strings.EqualFold(ev.EventType, rec.EventType) {
		sum += 1.0
	}
	n++

	// Severity distance on the 4-step ordinal scale.
	evRank, recRank := ev.Severity.Rank(), rec.Severity.Rank()
	if evRank > 0 && recRank > 0 {
		d := float64(evRank - recRank)
		if d < 0 {
			d = -d
		}
		sum += 1.0 - d/3.0
		n++
	}

	// Amount proximity on a log scale.
	if ev.Amount > 0 && rec.Amount > 0 {
		sum += stats.LogAmountSimilarity(ev.Amount, rec.Amount)
		n++
	}

	// Entity overlap: same entity is a strong signal, different entities
	// still share the population baseline.
	if ev.EntityID != "" && rec.EntityID != "" {
		if ev.EntityID == rec.EntityID {
			sum += 1.0
		} else {
			sum += 0.3
		}
		n++
	}

	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
