// Package syncer finds the delay between two recordings of the same
// material, so that a noisy take can be lined up with its clean reference.
package syncer

import (
	"context"
	"math"

	"github.com/xaionaro-go/speechdenoise/pkg/audio"
)

type ShiftResult struct {
	// Shift is the amount of samples the comparison is ahead of the
	// reference: comparison[t] ~ reference[t+Shift].
	Shift float64

	// Confidence is in [0; 1].
	Confidence float64
}

type Syncer interface {
	CalculateShift(
		ctx context.Context,
		reference audio.Signal,
		comparison audio.Signal,
	) (ShiftResult, error)
}

/* for easier copy&paste:

func () CalculateShift(
	ctx context.Context,
	reference audio.Signal,
	comparison audio.Signal,
) (syncer.ShiftResult, error) {
}

*/

// Align drops the leading samples that have no counterpart according to
// the shift and cuts both signals to the common length.
func Align(reference, comparison []float64, shift ShiftResult) ([]float64, []float64) {
	offset := int(math.Round(shift.Shift))
	switch {
	case offset > 0:
		reference = reference[min(offset, len(reference)):]
	case offset < 0:
		comparison = comparison[min(-offset, len(comparison)):]
	}
	n := min(len(reference), len(comparison))
	return reference[:n], comparison[:n]
}
