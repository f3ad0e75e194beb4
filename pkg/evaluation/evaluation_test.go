package evaluation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSNR(t *testing.T) {
	t.Run("identical", func(t *testing.T) {
		x := []float64{0.1, -0.2, 0.3}
		assert.True(t, math.IsInf(SNR(x, x), 1))
	})
	t.Run("empty", func(t *testing.T) {
		assert.True(t, math.IsInf(SNR(nil, nil), 1))
	})
	t.Run("half_amplitude", func(t *testing.T) {
		// the error is the other half: 10*log10(4)
		ref := []float64{1, -1, 1, -1}
		cand := []float64{0.5, -0.5, 0.5, -0.5}
		assert.InDelta(t, 10*math.Log10(4), SNR(ref, cand), 1e-12)
	})
	t.Run("truncates_to_shorter", func(t *testing.T) {
		ref := []float64{1, 2, 3}
		cand := []float64{1, 2, 3, 100, -100}
		assert.True(t, math.IsInf(SNR(ref, cand), 1))
		assert.Equal(t, SNR([]float64{1, 2}, []float64{1, 1}), SNR([]float64{1, 2, 3}, []float64{1, 1}))
	})
	t.Run("silent_reference", func(t *testing.T) {
		assert.True(t, math.IsInf(SNR([]float64{0, 0}, []float64{1, 0}), -1))
	})
}

func TestRMSE(t *testing.T) {
	assert.Zero(t, RMSE(nil, []float64{1}))
	assert.InDelta(t, 0.5, RMSE([]float64{1, -1, 1, -1}, []float64{0.5, -0.5, 0.5, -0.5}), 1e-12)
	assert.InDelta(t, 1, RMSE([]float64{0, 0, 7}, []float64{1, 1}), 1e-12)
}
