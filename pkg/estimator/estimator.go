package estimator

import (
	"context"
	"io"

	"gonum.org/v1/gonum/mat"
)

// Estimator maps a batch of noisy magnitude frames to denoised ones.
//
// The batch has one frame per row and one frequency bin per column. The
// output must keep the column count; the row count is expected to be kept
// too, but callers reconcile it if it is not.
//
// Implementations must be safe for concurrent EstimateMagnitude calls.
type Estimator interface {
	io.Closer

	// Features returns the required amount of columns, or 0 if any
	// amount is accepted.
	Features() int

	EstimateMagnitude(ctx context.Context, batch mat.Matrix) (mat.Matrix, error)
}

/* for easier copy&paste:

func () Close() error {
}

func () Features() int {
}

func () EstimateMagnitude(
	ctx context.Context,
	batch mat.Matrix,
) (mat.Matrix, error) {
}

*/
