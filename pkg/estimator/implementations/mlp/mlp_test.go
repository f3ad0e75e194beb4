package mlp

import (
	"bytes"
	"context"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"gonum.org/v1/gonum/mat"
)

func randomMatrix(rng *rand.Rand, rows, cols int) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.Float64()
	}
	return mat.NewDense(rows, cols, data)
}

func TestNew(t *testing.T) {
	m, err := New(513, DefaultHidden, 1)
	require.NoError(t, err)
	require.Len(t, m.Layers, 4)
	assert.Equal(t, 513, m.Features())
	assert.Equal(t, 128, m.Layers[0].Outputs())
	assert.Equal(t, 256, m.Layers[1].Outputs())
	assert.Equal(t, ActivationReLU, m.Layers[2].Activation)
	assert.Equal(t, ActivationLinear, m.Layers[3].Activation)
	assert.Equal(t, 513, m.Layers[3].Outputs())
	require.NoError(t, m.validate())

	_, err = New(0, nil, 1)
	require.ErrorIs(t, err, audio.ErrNonPositiveSize)
	_, err = New(4, []int{3, 0}, 1)
	require.ErrorIs(t, err, audio.ErrNonPositiveSize)
}

func TestPredictShape(t *testing.T) {
	m, err := New(8, []int{4}, 1)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	out, err := m.EstimateMagnitude(context.Background(), randomMatrix(rng, 5, 8))
	require.NoError(t, err)
	rows, cols := out.Dims()
	assert.Equal(t, 5, rows)
	assert.Equal(t, 8, cols)

	_, err = m.Predict(randomMatrix(rng, 5, 7))
	require.ErrorIs(t, err, audio.ErrFeatureMismatch)
}

func TestFitReducesLoss(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	clean := randomMatrix(rng, 64, 6)
	noisy := mat.DenseCopyOf(clean)
	noisy.Apply(func(_, _ int, v float64) float64 {
		return v + 0.3
	}, noisy)

	m, err := New(6, []int{16}, 42)
	require.NoError(t, err)

	var reported int
	opts := DefaultFitOptions()
	opts.Epochs = 150
	opts.BatchSize = 16
	opts.LearningRate = 0.01
	opts.Shuffle = rand.New(rand.NewPCG(5, 6))
	opts.OnEpoch = func(int, float64) { reported++ }
	losses, err := m.Fit(context.Background(), noisy, clean, opts)
	require.NoError(t, err)
	require.Len(t, losses, opts.Epochs)
	assert.Equal(t, opts.Epochs, reported)
	assert.Less(t, losses[len(losses)-1], losses[0]/4)
}

func TestFitValidation(t *testing.T) {
	m, err := New(3, nil, 1)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = m.Fit(ctx, mat.NewDense(2, 3, nil), mat.NewDense(3, 3, nil), DefaultFitOptions())
	require.ErrorIs(t, err, audio.ErrShapeMismatch)
	_, err = m.Fit(ctx, mat.NewDense(2, 4, nil), mat.NewDense(2, 4, nil), DefaultFitOptions())
	require.ErrorIs(t, err, audio.ErrFeatureMismatch)
	_, err = m.Fit(ctx, mat.NewDense(2, 3, nil), mat.NewDense(2, 3, nil), FitOptions{})
	require.ErrorIs(t, err, audio.ErrNonPositiveSize)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.Fit(cancelled, mat.NewDense(2, 3, nil), mat.NewDense(2, 3, nil), DefaultFitOptions())
	require.ErrorIs(t, err, context.Canceled)
}

func TestSaveLoad(t *testing.T) {
	m, err := New(6, []int{5, 4}, 7)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))
	loaded, err := Load(&buf)
	require.NoError(t, err)

	input := randomMatrix(rand.New(rand.NewPCG(8, 9)), 3, 6)
	want, err := m.Predict(input)
	require.NoError(t, err)
	got, err := loaded.Predict(input)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))

	path := filepath.Join(t.TempDir(), "model.msgpack")
	require.NoError(t, m.SaveFile(path))
	fromFile, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 6, fromFile.Features())

	_, err = Load(bytes.NewReader([]byte("definitely not a model")))
	require.Error(t, err)
}

func TestConcurrentPredict(t *testing.T) {
	m, err := New(16, []int{8}, 11)
	require.NoError(t, err)
	input := randomMatrix(rand.New(rand.NewPCG(1, 1)), 10, 16)
	want, err := m.Predict(input)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := m.Predict(input)
			assert.NoError(t, err)
			assert.True(t, mat.Equal(want, got))
		}()
	}
	wg.Wait()
}

func BenchmarkPredict(b *testing.B) {
	m, err := New(513, DefaultHidden, 1)
	require.NoError(b, err)
	input := randomMatrix(rand.New(rand.NewPCG(1, 1)), 100, 513)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Predict(input)
	}
}
