// Package evaluation scores a denoised signal against a clean reference.
package evaluation

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

func truncate(reference, candidate []float64) ([]float64, []float64) {
	n := min(len(reference), len(candidate))
	return reference[:n], candidate[:n]
}

func residual(reference, candidate []float64) []float64 {
	diff := make([]float64, len(reference))
	floats.SubTo(diff, reference, candidate)
	return diff
}

// SNR returns the signal-to-noise ratio in decibels of candidate against
// reference, 10*log10(sum(ref^2) / sum((ref-cand)^2)).
//
// Both signals are truncated to the shorter length first. A zero error
// energy (identical or empty signals) yields +Inf; a silent reference with
// a non-zero error yields -Inf.
func SNR(reference, candidate []float64) float64 {
	reference, candidate = truncate(reference, candidate)
	diff := residual(reference, candidate)
	noise := floats.Dot(diff, diff)
	if noise == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(floats.Dot(reference, reference)/noise)
}

// RMSE returns the root mean squared difference of the signals truncated
// to the shorter length; 0 if either is empty.
func RMSE(reference, candidate []float64) float64 {
	reference, candidate = truncate(reference, candidate)
	if len(reference) == 0 {
		return 0
	}
	diff := residual(reference, candidate)
	return math.Sqrt(floats.Dot(diff, diff) / float64(len(diff)))
}
