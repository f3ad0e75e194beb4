// Package batch adapts magnitude matrices to the fixed-width batch layout
// estimators consume (one frame per row, one frequency bin per column) and
// back.
package batch

import (
	"fmt"

	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"gonum.org/v1/gonum/mat"
)

// Reconciliation describes how FromBatch had to reshape an estimator output
// to reach the target shape.
//
// Padded frames are zeros: after recombination with the original phase they
// synthesize silence, i.e. frames beyond the estimator's coverage are not
// denoised, they are dropped.
type Reconciliation struct {
	PaddedRows    int
	PaddedCols    int
	TruncatedRows int
	TruncatedCols int
}

// Partial returns true if the output did not match the target shape as is.
func (r Reconciliation) Partial() bool {
	return r != Reconciliation{}
}

func (r Reconciliation) String() string {
	return fmt.Sprintf("padded %dx%d, truncated %dx%d", r.PaddedRows, r.PaddedCols, r.TruncatedRows, r.TruncatedCols)
}

// ToBatch transposes a bins x frames magnitude matrix into frames x bins
// and keeps at most maxFrames leading frames. No padding is added.
func ToBatch(magnitude mat.Matrix, maxFrames int) (*mat.Dense, error) {
	if magnitude == nil {
		return nil, &audio.ValidationError{Op: "to batch", Err: audio.ErrEmptySignal}
	}
	if maxFrames <= 0 {
		return nil, &audio.ValidationError{Op: "to batch", Err: fmt.Errorf("%w: max frames %d", audio.ErrNonPositiveSize, maxFrames)}
	}

	bins, frames := magnitude.Dims()
	if bins == 0 || frames == 0 {
		return nil, &audio.ValidationError{Op: "to batch", Err: fmt.Errorf("%w: magnitude %dx%d", audio.ErrEmptySignal, bins, frames)}
	}
	rows := min(frames, maxFrames)
	result := mat.NewDense(rows, bins, nil)
	// Copy takes the overlapping part only, which is the truncation.
	result.Copy(magnitude.T())
	return result, nil
}

// FromBatch transposes an estimator output back into bins x frames and
// reshapes it into exactly targetRows x targetCols: missing trailing rows
// and columns are zero-padded, extra ones are truncated.
func FromBatch(b mat.Matrix, targetRows, targetCols int) (*mat.Dense, Reconciliation, error) {
	if b == nil {
		return nil, Reconciliation{}, &audio.ValidationError{Op: "from batch", Err: audio.ErrEmptySignal}
	}
	if targetRows <= 0 || targetCols <= 0 {
		return nil, Reconciliation{}, &audio.ValidationError{Op: "from batch", Err: fmt.Errorf("%w: target shape %dx%d", audio.ErrNonPositiveSize, targetRows, targetCols)}
	}

	transposed := b.T()
	rows, cols := transposed.Dims()
	if rows == 0 || cols == 0 {
		return nil, Reconciliation{}, &audio.ValidationError{Op: "from batch", Err: fmt.Errorf("%w: batch %dx%d", audio.ErrEmptySignal, cols, rows)}
	}
	r := Reconciliation{
		PaddedRows:    max(0, targetRows-rows),
		PaddedCols:    max(0, targetCols-cols),
		TruncatedRows: max(0, rows-targetRows),
		TruncatedCols: max(0, cols-targetCols),
	}

	result := mat.NewDense(targetRows, targetCols, nil)
	result.Copy(transposed)
	return result, r, nil
}
