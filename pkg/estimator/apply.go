package estimator

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"gonum.org/v1/gonum/mat"
)

// Apply runs the estimator on the batch and normalizes the result into a
// freshly allocated non-negative matrix.
//
// Apply only checks that the output is present and non-empty; whether the
// row count matches is left to the caller (see batch.FromBatch).
func Apply(
	ctx context.Context,
	est Estimator,
	batch *mat.Dense,
) (_ret *mat.Dense, _err error) {
	logger.Tracef(ctx, "Apply")
	defer func() { logger.Tracef(ctx, "/Apply: %v", _err) }()

	if est == nil {
		return nil, &audio.ValidationError{Op: "estimate", Err: fmt.Errorf("estimator is not set")}
	}
	if batch == nil || batch.IsEmpty() {
		return nil, &audio.ValidationError{Op: "estimate", Err: audio.ErrEmptySignal}
	}
	_, features := batch.Dims()
	if want := est.Features(); want != 0 && want != features {
		return nil, &audio.ValidationError{Op: "estimate", Err: fmt.Errorf("%w: the estimator expects %d frequency bins, got %d", audio.ErrFeatureMismatch, want, features)}
	}

	output, err := est.EstimateMagnitude(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("estimator %T failed: %w", est, err)
	}
	if output == nil {
		return nil, fmt.Errorf("estimator %T returned no output", est)
	}
	rows, cols := output.Dims()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("estimator %T returned an empty %dx%d output", est, rows, cols)
	}

	result := mat.DenseCopyOf(output)
	var clamped int
	result.Apply(func(_, _ int, v float64) float64 {
		if v < 0 {
			clamped++
			return 0
		}
		return v
	}, result)
	if clamped > 0 {
		logger.Debugf(ctx, "clamped %d negative magnitudes out of %d", clamped, rows*cols)
	}
	return result, nil
}
