package mlp

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

type Activation string

const (
	ActivationLinear = Activation("linear")
	ActivationReLU   = Activation("relu")
)

func (a Activation) apply(v float64) float64 {
	switch a {
	case ActivationReLU:
		return math.Max(0, v)
	default:
		return v
	}
}

func (a Activation) derivative(z float64) float64 {
	switch a {
	case ActivationReLU:
		if z > 0 {
			return 1
		}
		return 0
	default:
		return 1
	}
}

func (a Activation) validate() error {
	switch a {
	case ActivationLinear, ActivationReLU:
		return nil
	}
	return fmt.Errorf("unknown activation '%s'", a)
}

// Layer is a fully connected layer: out = activation(in * Weights + Bias).
type Layer struct {
	Weights    *mat.Dense // inputs x outputs
	Bias       []float64
	Activation Activation
}

func newLayer(rng *rand.Rand, inputs, outputs int, activation Activation) Layer {
	limit := math.Sqrt(6 / float64(inputs+outputs))
	weights := make([]float64, inputs*outputs)
	for i := range weights {
		weights[i] = (rng.Float64()*2 - 1) * limit
	}
	return Layer{
		Weights:    mat.NewDense(inputs, outputs, weights),
		Bias:       make([]float64, outputs),
		Activation: activation,
	}
}

func (l *Layer) Inputs() int {
	r, _ := l.Weights.Dims()
	return r
}

func (l *Layer) Outputs() int {
	_, c := l.Weights.Dims()
	return c
}

// forward returns the pre-activation and the activation matrices.
func (l *Layer) forward(input mat.Matrix) (*mat.Dense, *mat.Dense) {
	var z mat.Dense
	z.Mul(input, l.Weights)
	z.Apply(func(_, j int, v float64) float64 {
		return v + l.Bias[j]
	}, &z)
	var a mat.Dense
	a.Apply(func(_, _ int, v float64) float64 {
		return l.Activation.apply(v)
	}, &z)
	return &z, &a
}
