// Package spectrum splits a complex spectrogram into magnitude and phase
// and recombines them.
package spectrum

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"gonum.org/v1/gonum/mat"
)

// Split returns |spec| and arg(spec) elementwise; the phase is within (-pi, pi].
func Split(spec *mat.CDense) (magnitude, phase *mat.Dense, err error) {
	if spec == nil || spec.IsEmpty() {
		return nil, nil, &audio.ValidationError{Op: "split", Err: audio.ErrEmptySignal}
	}
	rows, cols := spec.Dims()
	magnitude = mat.NewDense(rows, cols, nil)
	phase = mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			c := spec.At(i, j)
			magnitude.Set(i, j, cmplx.Abs(c))
			phase.Set(i, j, Phase(c))
		}
	}
	return magnitude, phase, nil
}

// Phase is cmplx.Phase folded into (-pi, pi]: a negative real value with a
// negative zero imaginary part yields +pi instead of -pi.
func Phase(c complex128) float64 {
	p := cmplx.Phase(c)
	if p == -math.Pi {
		return math.Pi
	}
	return p
}

// Recombine returns magnitude * exp(i*phase) elementwise. Both matrices
// must have the same shape; use the batch package to reconcile them first.
func Recombine(magnitude, phase mat.Matrix) (*mat.CDense, error) {
	if magnitude == nil || phase == nil {
		return nil, &audio.ValidationError{Op: "recombine", Err: fmt.Errorf("%w: nil matrix", audio.ErrShapeMismatch)}
	}
	mr, mc := magnitude.Dims()
	pr, pc := phase.Dims()
	if mr != pr || mc != pc {
		return nil, &audio.ValidationError{Op: "recombine", Err: fmt.Errorf("%w: magnitude %dx%d vs phase %dx%d", audio.ErrShapeMismatch, mr, mc, pr, pc)}
	}

	result := mat.NewCDense(mr, mc, nil)
	for i := 0; i < mr; i++ {
		for j := 0; j < mc; j++ {
			result.Set(i, j, cmplx.Rect(magnitude.At(i, j), phase.At(i, j)))
		}
	}
	return result, nil
}
