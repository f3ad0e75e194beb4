package stft

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
)

func sine(freq float64, sampleRate, length int) []float64 {
	result := make([]float64, length)
	for i := range result {
		result[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return result
}

func TestHann(t *testing.T) {
	w := Hann(8)
	require.Len(t, w, 8)
	for k, v := range w {
		assert.InDelta(t, 0.5*(1-math.Cos(2*math.Pi*float64(k+1)/9)), v, 1e-12, "tap %d", k)
		assert.Greater(t, v, 0.0, "tap %d", k)
	}
	assert.InDelta(t, w[0], w[7], 1e-12)
	assert.InDelta(t, w[3], w[4], 1e-12)

	for _, v := range Hann(4096) {
		require.Greater(t, v*v, windowSumEpsilon)
	}
}

func TestNumFrames(t *testing.T) {
	assert.Equal(t, 2, NumFrames(1, 1024, 512))
	assert.Equal(t, 64, NumFrames(32000, 1024, 512))
	assert.Equal(t, 150, NumFrames(149*512, 1024, 512))
	assert.Equal(t, 0, NumFrames(0, 1024, 512))
}

func TestForwardShape(t *testing.T) {
	signal := sine(440, 16000, 16000)
	spectrogram, err := Forward(signal, 1024, 512)
	require.NoError(t, err)

	bins, frames := spectrogram.Dims()
	assert.Equal(t, 513, bins)
	assert.Equal(t, NumFrames(len(signal), 1024, 512), frames)
}

func TestForwardShortSignal(t *testing.T) {
	spectrogram, err := Forward([]float64{0.1, 0.2, 0.3}, 1024, 256)
	require.NoError(t, err)
	bins, frames := spectrogram.Dims()
	assert.Equal(t, 513, bins)
	assert.GreaterOrEqual(t, frames, 1)
}

func TestForwardValidation(t *testing.T) {
	for name, tc := range map[string]struct {
		samples   []float64
		frameSize int
		hopSize   int
		err       error
	}{
		"empty":          {nil, 1024, 512, audio.ErrEmptySignal},
		"zero_frame":     {[]float64{1}, 0, 512, audio.ErrNonPositiveSize},
		"negative_hop":   {[]float64{1}, 1024, -1, audio.ErrNonPositiveSize},
		"hop_gt_frame":   {[]float64{1}, 256, 512, audio.ErrHopExceedsFrame},
		"negative_frame": {[]float64{1}, -4, 1, audio.ErrNonPositiveSize},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Forward(tc.samples, tc.frameSize, tc.hopSize)
			require.ErrorIs(t, err, tc.err)
			require.True(t, audio.IsValidationError(err))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, backendName := range []string{"gonum", "godsp", "radix2"} {
		backend, err := BackendByName(backendName)
		require.NoError(t, err)
		s := New(backend)

		for _, tc := range []struct {
			frameSize int
			hopSize   int
			length    int
		}{
			{1024, 512, 32000},
			{1024, 256, 10007},
			{512, 128, 4096},
			{256, 128, 100},
			{1024, 1024, 16000},
			{256, 200, 3001},
		} {
			signal := sine(440, 16000, tc.length)
			spectrogram, err := s.Forward(signal, tc.frameSize, tc.hopSize)
			require.NoError(t, err)

			restored, err := s.Inverse(spectrogram, tc.hopSize, tc.frameSize)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(restored), len(signal))

			for i := range signal {
				require.InDelta(t, signal[i], restored[i], 1e-9, "%s %+v: sample %d", backendName, tc, i)
			}
			for i := len(signal); i < len(restored); i++ {
				require.InDelta(t, 0, restored[i], 1e-9, "%s %+v: padding sample %d", backendName, tc, i)
			}
		}
	}
}

func TestInverseLength(t *testing.T) {
	signal := sine(220, 8000, 5000)
	spectrogram, err := Forward(signal, 512, 256)
	require.NoError(t, err)

	restored, err := New(nil).InverseLength(spectrogram, 256, 512, len(signal))
	require.NoError(t, err)
	require.Len(t, restored, len(signal))

	longer, err := New(nil).InverseLength(spectrogram, 256, 512, 10000)
	require.NoError(t, err)
	require.Len(t, longer, 10000)
	assert.Equal(t, 0.0, longer[9999])
}

func TestInverseValidation(t *testing.T) {
	spectrogram, err := Forward(sine(100, 8000, 1000), 256, 128)
	require.NoError(t, err)

	_, err = Inverse(nil, 128, 256)
	require.ErrorIs(t, err, audio.ErrEmptySignal)

	_, err = Inverse(spectrogram, 0, 256)
	require.ErrorIs(t, err, audio.ErrNonPositiveSize)

	_, err = Inverse(spectrogram, 300, 256)
	require.ErrorIs(t, err, audio.ErrHopExceedsFrame)

	_, err = Inverse(spectrogram, 128, 1024)
	require.ErrorIs(t, err, audio.ErrShapeMismatch)
}

func TestInverseShorterWindow(t *testing.T) {
	// a window shorter than the FFT is zero-padded in the centre, the
	// reconstruction stays finite
	spectrogram, err := Forward(sine(100, 8000, 2000), 256, 64)
	require.NoError(t, err)
	restored, err := Inverse(spectrogram, 64, 200)
	require.NoError(t, err)
	for _, v := range restored {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestBackendByName(t *testing.T) {
	b, err := BackendByName("")
	require.NoError(t, err)
	assert.Equal(t, "gonum", b.String())

	_, err = BackendByName("fftw")
	require.ErrorIs(t, err, audio.ErrUnsupportedFormat)
}

func BenchmarkForward(b *testing.B) {
	signal := sine(440, 16000, 16000*10)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Forward(signal, 1024, 512); err != nil {
			b.Fatal(err)
		}
	}
}
