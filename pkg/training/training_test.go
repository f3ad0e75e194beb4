package training

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"github.com/xaionaro-go/speechdenoise/pkg/denoise"
	"github.com/xaionaro-go/speechdenoise/pkg/estimator"
	"github.com/xaionaro-go/speechdenoise/pkg/estimator/implementations/mlp"
	"github.com/xaionaro-go/speechdenoise/pkg/syncer/implementations/gccphat"
)

func smallPipeline() denoise.Config {
	return denoise.Config{
		FrameSize: 64,
		HopSize:   32,
		MaxFrames: 1000,
	}
}

func example(seed uint64, length int) Example {
	rng := rand.New(rand.NewPCG(seed, seed))
	clean := make([]float64, length)
	noisy := make([]float64, length)
	for i := range clean {
		clean[i] = 0.5 * math.Sin(2*math.Pi*500*float64(i)/8000)
		noisy[i] = clean[i] + 0.05*rng.NormFloat64()
	}
	return Example{
		Noisy: audio.NewSignal(noisy, 8000),
		Clean: audio.NewSignal(clean, 8000),
	}
}

func TestPair(t *testing.T) {
	ctx := context.Background()
	ex := example(1, 3200)
	ex.Clean.Samples = ex.Clean.Samples[:1600]

	noisy, clean, err := Pair(ctx, ex, smallPipeline())
	require.NoError(t, err)
	nr, nc := noisy.Dims()
	cr, cc := clean.Dims()
	assert.Equal(t, 51, nr)
	assert.Equal(t, 33, nc)
	assert.Equal(t, nr, cr)
	assert.Equal(t, nc, cc)

	ex.Clean.SampleRate = 16000
	_, _, err = Pair(ctx, ex, smallPipeline())
	require.ErrorIs(t, err, audio.ErrShapeMismatch)
}

func TestDataset(t *testing.T) {
	noisy, clean, err := Dataset(context.Background(), []Example{example(1, 3200), example(2, 1600)}, smallPipeline())
	require.NoError(t, err)
	rows, cols := noisy.Dims()
	assert.Equal(t, 101+51, rows)
	assert.Equal(t, 33, cols)
	cr, _ := clean.Dims()
	assert.Equal(t, rows, cr)

	_, _, err = Dataset(context.Background(), nil, smallPipeline())
	require.ErrorIs(t, err, audio.ErrEmptySignal)
}

func TestTrainAndEvaluate(t *testing.T) {
	ctx := context.Background()
	examples := []Example{example(1, 3200), example(2, 3200)}

	net, err := mlp.New(33, []int{16}, 1)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Pipeline = smallPipeline()
	cfg.Fit.Epochs = 30
	cfg.Fit.BatchSize = 32
	cfg.Fit.LearningRate = 0.005
	var epochs int
	cfg.Fit.OnEpoch = func(int, float64) { epochs++ }

	losses, err := Train(ctx, net, examples, cfg)
	require.NoError(t, err)
	require.Len(t, losses, 30)
	assert.Equal(t, 30, epochs)
	assert.Less(t, losses[len(losses)-1], losses[0])

	score, err := Evaluate(ctx, net, example(3, 3200), cfg.Pipeline)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(score.SNR))
	assert.Greater(t, score.RMSE, 0.0)
}

func TestEvaluateIdentity(t *testing.T) {
	ex := example(4, 3200)
	score, err := Evaluate(context.Background(), estimator.NewIdentity(), ex, smallPipeline())
	require.NoError(t, err)
	assert.InDelta(t, score.InputSNR, score.SNR, 1e-6)
}

func broadbandExample(seed uint64, length int) Example {
	rng := rand.New(rand.NewPCG(seed, seed))
	clean := make([]float64, length)
	noisy := make([]float64, length)
	for i := range clean {
		clean[i] = rng.Float64() - 0.5
		noisy[i] = clean[i] + 0.05*rng.NormFloat64()
	}
	return Example{
		Noisy: audio.NewSignal(noisy, 8000),
		Clean: audio.NewSignal(clean, 8000),
	}
}

func TestAlign(t *testing.T) {
	ex := broadbandExample(5, 4000)
	delayed := ex
	delayed.Noisy.Samples = append(make([]float64, 80), ex.Noisy.Samples...)

	aligned, shift, err := Align(context.Background(), gccphat.New(), delayed, DefaultMinSyncConfidence)
	require.NoError(t, err)
	assert.InDelta(t, -80, shift.Shift, 0.5)
	require.Len(t, aligned.Noisy.Samples, len(ex.Noisy.Samples))
	assert.Equal(t, ex.Noisy.Samples, aligned.Noisy.Samples)
	assert.Equal(t, ex.Clean.Samples, aligned.Clean.Samples)

	cfg := DefaultConfig()
	cfg.Pipeline = smallPipeline()
	cfg.Fit.Epochs = 2
	cfg.Syncer = gccphat.New()
	net, err := mlp.New(33, []int{8}, 1)
	require.NoError(t, err)
	losses, err := Train(context.Background(), net, []Example{delayed}, cfg)
	require.NoError(t, err)
	assert.Len(t, losses, 2)
}
