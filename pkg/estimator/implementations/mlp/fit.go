package mlp

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultEpochs       = 200
	DefaultBatchSize    = 100
	DefaultLearningRate = 0.0005

	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-7
)

type FitOptions struct {
	Epochs       int
	BatchSize    int
	LearningRate float64

	// Shuffle permutes the rows before every epoch if non-nil.
	Shuffle *rand.Rand

	// OnEpoch is called after every epoch with the mean batch loss.
	OnEpoch func(epoch int, loss float64)
}

func DefaultFitOptions() FitOptions {
	return FitOptions{
		Epochs:       DefaultEpochs,
		BatchSize:    DefaultBatchSize,
		LearningRate: DefaultLearningRate,
	}
}

type adamState struct {
	step   int
	mW, vW [][]float64
	mB, vB [][]float64
}

func newAdamState(layers []Layer) *adamState {
	s := &adamState{}
	for idx := range layers {
		w := layers[idx].Weights.RawMatrix()
		s.mW = append(s.mW, make([]float64, len(w.Data)))
		s.vW = append(s.vW, make([]float64, len(w.Data)))
		s.mB = append(s.mB, make([]float64, len(layers[idx].Bias)))
		s.vB = append(s.vB, make([]float64, len(layers[idx].Bias)))
	}
	return s
}

func (s *adamState) update(params, grads, m, v []float64, lr float64) {
	c1 := 1 - math.Pow(adamBeta1, float64(s.step))
	c2 := 1 - math.Pow(adamBeta2, float64(s.step))
	for i, g := range grads {
		m[i] = adamBeta1*m[i] + (1-adamBeta1)*g
		v[i] = adamBeta2*v[i] + (1-adamBeta2)*g*g
		params[i] -= lr * (m[i] / c1) / (math.Sqrt(v[i]/c2) + adamEpsilon)
	}
}

// Fit trains the network to map the rows of x to the rows of y minimizing
// the mean squared error, and returns the loss of every epoch.
func (m *MLP) Fit(
	ctx context.Context,
	x, y mat.Matrix,
	opts FitOptions,
) (_ret []float64, _err error) {
	logger.Tracef(ctx, "Fit")
	defer func() { logger.Tracef(ctx, "/Fit: %v", _err) }()

	m.locker.Lock()
	defer m.locker.Unlock()

	if err := m.validate(); err != nil {
		return nil, err
	}
	rows, cols := x.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows || cols != yCols {
		return nil, fmt.Errorf("%w: inputs are %dx%d, targets are %dx%d", audio.ErrShapeMismatch, rows, cols, yRows, yCols)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: no training rows", audio.ErrEmptySignal)
	}
	if want := m.Layers[0].Inputs(); cols != want {
		return nil, fmt.Errorf("%w: the network expects %d features, got %d", audio.ErrFeatureMismatch, want, cols)
	}
	if opts.Epochs <= 0 || opts.BatchSize <= 0 || opts.LearningRate <= 0 {
		return nil, fmt.Errorf("%w: epochs: %d, batch size: %d, learning rate: %f", audio.ErrNonPositiveSize, opts.Epochs, opts.BatchSize, opts.LearningRate)
	}

	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}

	state := newAdamState(m.Layers)
	losses := make([]float64, 0, opts.Epochs)
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return losses, err
		}
		if opts.Shuffle != nil {
			opts.Shuffle.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		var lossSum float64
		var batches int
		for start := 0; start < rows; start += opts.BatchSize {
			end := min(start+opts.BatchSize, rows)
			bx := gatherRows(x, order[start:end])
			by := gatherRows(y, order[start:end])
			lossSum += m.step(state, bx, by, opts.LearningRate)
			batches++
		}
		loss := lossSum / float64(batches)
		losses = append(losses, loss)
		if opts.OnEpoch != nil {
			opts.OnEpoch(epoch, loss)
		}
	}
	return losses, nil
}

func gatherRows(src mat.Matrix, indices []int) *mat.Dense {
	_, cols := src.Dims()
	dst := mat.NewDense(len(indices), cols, nil)
	for i, idx := range indices {
		for c := 0; c < cols; c++ {
			dst.Set(i, c, src.At(idx, c))
		}
	}
	return dst
}

// step does one forward/backward pass over the batch and returns its loss.
func (m *MLP) step(state *adamState, x, y *mat.Dense, lr float64) float64 {
	count := len(m.Layers)
	preacts := make([]*mat.Dense, count)
	acts := make([]*mat.Dense, count+1)
	acts[0] = x
	for idx := range m.Layers {
		preacts[idx], acts[idx+1] = m.Layers[idx].forward(acts[idx])
	}

	rows, cols := y.Dims()
	scale := 2 / float64(rows*cols)
	grad := &mat.Dense{}
	grad.Sub(acts[count], y)
	var loss float64
	for _, v := range grad.RawMatrix().Data {
		loss += v * v
	}
	loss /= float64(rows * cols)
	grad.Scale(scale, grad)

	state.step++
	for idx := count - 1; idx >= 0; idx-- {
		l := &m.Layers[idx]
		var delta mat.Dense
		delta.Apply(func(i, j int, v float64) float64 {
			return v * l.Activation.derivative(preacts[idx].At(i, j))
		}, grad)

		var gradW mat.Dense
		gradW.Mul(acts[idx].T(), &delta)
		deltaRows, outputs := delta.Dims()
		gradB := make([]float64, outputs)
		for r := 0; r < deltaRows; r++ {
			for c, v := range delta.RawRowView(r) {
				gradB[c] += v
			}
		}

		if idx > 0 {
			next := &mat.Dense{}
			next.Mul(&delta, l.Weights.T())
			grad = next
		}

		state.update(l.Weights.RawMatrix().Data, gradW.RawMatrix().Data, state.mW[idx], state.vW[idx], lr)
		state.update(l.Bias, gradB, state.mB[idx], state.vB[idx], lr)
	}
	return loss
}
