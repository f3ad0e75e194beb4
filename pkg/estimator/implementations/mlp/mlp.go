// Package mlp implements a magnitude estimator backed by a multilayer
// perceptron that maps every noisy frame to a clean one.
package mlp

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"github.com/xaionaro-go/speechdenoise/pkg/estimator"
	"gonum.org/v1/gonum/mat"
)

var DefaultHidden = []int{128, 256, 128}

type MLP struct {
	locker sync.RWMutex
	Layers []Layer
}

var _ estimator.Estimator = (*MLP)(nil)

// New creates a network with Glorot-uniform initialized weights; hidden
// layers use ReLU and the output layer is linear.
func New(features int, hidden []int, seed uint64) (*MLP, error) {
	if features <= 0 {
		return nil, fmt.Errorf("%w: features: %d", audio.ErrNonPositiveSize, features)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	var layers []Layer
	inputs := features
	for idx, outputs := range hidden {
		if outputs <= 0 {
			return nil, fmt.Errorf("%w: hidden layer #%d: %d", audio.ErrNonPositiveSize, idx, outputs)
		}
		layers = append(layers, newLayer(rng, inputs, outputs, ActivationReLU))
		inputs = outputs
	}
	layers = append(layers, newLayer(rng, inputs, features, ActivationLinear))
	return &MLP{Layers: layers}, nil
}

func (m *MLP) Close() error {
	return nil
}

func (m *MLP) Features() int {
	m.locker.RLock()
	defer m.locker.RUnlock()
	if len(m.Layers) == 0 {
		return 0
	}
	return m.Layers[0].Inputs()
}

func (m *MLP) validate() error {
	if len(m.Layers) == 0 {
		return fmt.Errorf("the network has no layers")
	}
	for idx := range m.Layers {
		l := &m.Layers[idx]
		if l.Weights == nil {
			return fmt.Errorf("layer #%d has no weights", idx)
		}
		if len(l.Bias) != l.Outputs() {
			return fmt.Errorf("layer #%d has %d biases for %d outputs", idx, len(l.Bias), l.Outputs())
		}
		if err := l.Activation.validate(); err != nil {
			return fmt.Errorf("layer #%d: %w", idx, err)
		}
		if idx > 0 && m.Layers[idx-1].Outputs() != l.Inputs() {
			return fmt.Errorf("layer #%d expects %d inputs, but the previous layer has %d outputs", idx, l.Inputs(), m.Layers[idx-1].Outputs())
		}
	}
	if first, last := m.Layers[0].Inputs(), m.Layers[len(m.Layers)-1].Outputs(); first != last {
		return fmt.Errorf("the network maps %d features to %d", first, last)
	}
	return nil
}

// Predict maps every row of the batch through the network.
func (m *MLP) Predict(batch mat.Matrix) (*mat.Dense, error) {
	m.locker.RLock()
	defer m.locker.RUnlock()
	return m.predict(batch)
}

func (m *MLP) predict(batch mat.Matrix) (*mat.Dense, error) {
	if len(m.Layers) == 0 {
		return nil, fmt.Errorf("the network has no layers")
	}
	_, cols := batch.Dims()
	if want := m.Layers[0].Inputs(); cols != want {
		return nil, fmt.Errorf("%w: the network expects %d features, got %d", audio.ErrFeatureMismatch, want, cols)
	}
	var out mat.Matrix = batch
	for idx := range m.Layers {
		_, out = m.Layers[idx].forward(out)
	}
	return out.(*mat.Dense), nil
}

func (m *MLP) EstimateMagnitude(
	ctx context.Context,
	batch mat.Matrix,
) (mat.Matrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.Predict(batch)
}
