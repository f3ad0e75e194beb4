package gccphat

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"github.com/xaionaro-go/speechdenoise/pkg/syncer"
)

func noise(seed uint64, length int) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed))
	samples := make([]float64, length)
	for i := range samples {
		samples[i] = rng.Float64()*2 - 1
	}
	return samples
}

func TestCalculateShift(t *testing.T) {
	ctx := context.Background()
	const sampleRate = 16000
	ref := noise(1, 8000)

	for name, offset := range map[string]int{
		"ahead":   37,
		"behind":  -120,
		"in_sync": 0,
	} {
		t.Run(name, func(t *testing.T) {
			var comp []float64
			if offset >= 0 {
				comp = append(comp, ref[offset:]...)
			} else {
				comp = append(make([]float64, -offset), ref...)
			}

			s := New()
			result, err := s.CalculateShift(ctx, audio.NewSignal(ref, sampleRate), audio.NewSignal(comp, sampleRate))
			require.NoError(t, err)
			assert.InDelta(t, float64(offset), result.Shift, 0.5)
			assert.Greater(t, result.Confidence, 0.5)

			alignedRef, alignedComp := syncer.Align(ref, comp, result)
			require.Equal(t, len(alignedRef), len(alignedComp))
			require.NotEmpty(t, alignedRef)
			assert.Equal(t, alignedRef[:100], alignedComp[:100])
		})
	}
}

func TestCalculateShiftMaxShift(t *testing.T) {
	ref := noise(2, 4000)
	comp := ref[300:]
	s := New()
	s.MaxShift = 100
	result, err := s.CalculateShift(context.Background(), audio.NewSignal(ref, 16000), audio.NewSignal(comp, 16000))
	require.NoError(t, err)
	assert.LessOrEqual(t, result.Shift, 101.0)
	assert.GreaterOrEqual(t, result.Shift, -101.0)
}

func TestCalculateShiftValidation(t *testing.T) {
	s := New()
	_, err := s.CalculateShift(context.Background(), audio.NewSignal(nil, 16000), audio.NewSignal([]float64{1}, 16000))
	require.ErrorIs(t, err, audio.ErrEmptySignal)
	_, err = s.CalculateShift(context.Background(), audio.NewSignal([]float64{1}, 16000), audio.NewSignal([]float64{1}, 8000))
	require.ErrorIs(t, err, audio.ErrShapeMismatch)
}
