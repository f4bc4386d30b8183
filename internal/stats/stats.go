// Package stats provides the small set of numeric helpers shared by the
// detectors and analyzers. All functions are pure and allocation-free.
package stats

import (
	"math"
)

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the population standard deviation, or 0 for fewer than
// two samples.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := Mean(xs)
	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance)
}

// Pearson returns the Pearson correlation coefficient of two equal-length
// series. Returns 0 when either series has zero variance or the series
// are shorter than two samples.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || len(ys) != n {
		return 0
	}
	mx, my := Mean(xs), Mean(ys)
	var num, dx, dy float64
	for i := 0; i < n; i++ {
		a := xs[i] - mx
		b := ys[i] - my
		num += a * b
		dx += a * a
		dy += b * b
	}
	den := math.Sqrt(dx * dy)
	if den == 0 {
		return 0
	}
	return num / den
}

// LogAmountSimilarity compares two monetary amounts on a log10 scale with
// a Gaussian kernel (sigma = 1.0, one order of magnitude). Amounts are
// shifted by one before taking logs so small values stay comparable.
// Returns 0 when either amount is non-positive.
func LogAmountSimilarity(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	d := math.Log10(a+1) - math.Log10(b+1)
	return math.Exp(-0.5 * d * d)
}

// Clamp01 clamps x to [0, 1].
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
