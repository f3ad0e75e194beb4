// Package gain implements an estimator scaling every magnitude by a constant.
package gain

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/speechdenoise/pkg/estimator"
	"gonum.org/v1/gonum/mat"
)

type Gain struct {
	Factor float64
}

var _ estimator.Estimator = (*Gain)(nil)

func New(factor float64) (*Gain, error) {
	if factor < 0 {
		return nil, fmt.Errorf("the gain factor cannot be negative, got %f", factor)
	}
	return &Gain{Factor: factor}, nil
}

func (*Gain) Close() error {
	return nil
}

func (*Gain) Features() int {
	return 0
}

func (g *Gain) EstimateMagnitude(
	_ context.Context,
	batch mat.Matrix,
) (mat.Matrix, error) {
	var result mat.Dense
	result.Scale(g.Factor, batch)
	return &result, nil
}
