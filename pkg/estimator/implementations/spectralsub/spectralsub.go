// Package spectralsub implements a spectral subtraction estimator.
//
// The noise floor of every frequency bin is estimated as a low quantile of
// its power across the batch, and every magnitude is scaled by
// sqrt(max(Floor, 1 - noise/power)).
package spectralsub

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/xaionaro-go/speechdenoise/pkg/estimator"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultQuantile  = 0.1
	DefaultFloor     = 0.0
	DefaultOverboost = 1.0
)

type SpectralSubtraction struct {
	// Quantile of the per-bin power that is considered noise, in [0; 1].
	Quantile float64

	// Floor is the minimal gain, in [0; 1].
	Floor float64

	// Overboost multiplies the estimated noise power.
	Overboost float64
}

var _ estimator.Estimator = (*SpectralSubtraction)(nil)

func New(quantile, floor, overboost float64) (*SpectralSubtraction, error) {
	if quantile < 0 || quantile > 1 {
		return nil, fmt.Errorf("the quantile is expected to be in [0; 1], got %f", quantile)
	}
	if floor < 0 || floor > 1 {
		return nil, fmt.Errorf("the floor is expected to be in [0; 1], got %f", floor)
	}
	if overboost <= 0 {
		return nil, fmt.Errorf("the overboost is expected to be positive, got %f", overboost)
	}
	return &SpectralSubtraction{
		Quantile:  quantile,
		Floor:     floor,
		Overboost: overboost,
	}, nil
}

func NewDefault() *SpectralSubtraction {
	return &SpectralSubtraction{
		Quantile:  DefaultQuantile,
		Floor:     DefaultFloor,
		Overboost: DefaultOverboost,
	}
}

func (*SpectralSubtraction) Close() error {
	return nil
}

func (*SpectralSubtraction) Features() int {
	return 0
}

// NoiseFloor returns the estimated noise power per column of the batch.
func (s *SpectralSubtraction) NoiseFloor(batch mat.Matrix) []float64 {
	rows, cols := batch.Dims()
	noise := make([]float64, cols)
	if rows == 0 {
		return noise
	}
	power := make([]float64, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			v := batch.At(r, c)
			power[r] = v * v
		}
		slices.Sort(power)
		noise[c] = s.Overboost * stat.Quantile(s.Quantile, stat.Empirical, power, nil)
	}
	return noise
}

func (s *SpectralSubtraction) EstimateMagnitude(
	ctx context.Context,
	batch mat.Matrix,
) (mat.Matrix, error) {
	rows, cols := batch.Dims()
	noise := s.NoiseFloor(batch)
	result := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for c := 0; c < cols; c++ {
			v := batch.At(r, c)
			p := v * v
			if p == 0 {
				continue
			}
			gain := math.Sqrt(math.Max(s.Floor, 1-noise[c]/p))
			result.Set(r, c, v*gain)
		}
	}
	return result, nil
}
