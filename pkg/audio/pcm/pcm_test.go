package pcm

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
)

func TestToFloat64(t *testing.T) {
	t.Run("U8", func(t *testing.T) {
		out, err := ToFloat64(audio.PCMFormatU8, []byte{0, 128, 255})
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.InDelta(t, -1.0, out[0], 0.01)
		assert.InDelta(t, 0.0, out[1], 0.01)
		assert.InDelta(t, 1.0, out[2], 0.01)
	})

	t.Run("S16LE", func(t *testing.T) {
		data := make([]byte, 4)
		neg := int16(-16384)
		binary.LittleEndian.PutUint16(data, uint16(neg))
		binary.LittleEndian.PutUint16(data[2:], uint16(int16(16384)))
		out, err := ToFloat64(audio.PCMFormatS16LE, data)
		require.NoError(t, err)
		assert.Equal(t, []float64{-0.5, 0.5}, out)
	})

	t.Run("S24LE_negative", func(t *testing.T) {
		out, err := ToFloat64(audio.PCMFormatS24LE, []byte{0x00, 0x00, 0xC0})
		require.NoError(t, err)
		assert.Equal(t, []float64{-0.5}, out)
	})

	t.Run("Float32LE", func(t *testing.T) {
		data := make([]byte, 4)
		binary.LittleEndian.PutUint32(data, math.Float32bits(0.25))
		out, err := ToFloat64(audio.PCMFormatFloat32LE, data)
		require.NoError(t, err)
		assert.Equal(t, []float64{0.25}, out)
	})

	t.Run("misaligned", func(t *testing.T) {
		_, err := ToFloat64(audio.PCMFormatS16LE, []byte{1, 2, 3})
		require.Error(t, err)
	})

	t.Run("undefined", func(t *testing.T) {
		_, err := ToFloat64(audio.PCMFormatUndefined, []byte{1})
		require.ErrorIs(t, err, audio.ErrUnsupportedFormat)
	})
}

func TestDownmix(t *testing.T) {
	out, err := Downmix([]float64{1, 0, 0.5, 0.5, -1, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5, 0}, out)

	_, err = Downmix([]float64{1, 2, 3}, 2)
	require.Error(t, err)

	_, err = Downmix([]float64{1}, 0)
	require.True(t, audio.IsValidationError(err))
}

func TestResample(t *testing.T) {
	t.Run("Identity", func(t *testing.T) {
		in := []float64{1, 2, 3}
		out, err := Resample(in, 16000, 16000)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("Downsample_by_2", func(t *testing.T) {
		in := make([]float64, 100)
		for i := range in {
			in[i] = float64(i)
		}
		out, err := Resample(in, 44100, 22050)
		require.NoError(t, err)
		require.Len(t, out, 50)
		assert.Equal(t, in[0], out[0])
		assert.Equal(t, in[2], out[1])
	})

	t.Run("Upsample_by_2", func(t *testing.T) {
		out, err := Resample([]float64{0, 1, 2}, 8000, 16000)
		require.NoError(t, err)
		require.Len(t, out, 6)
		assert.InDelta(t, 0.5, out[1], 1e-12)
		assert.InDelta(t, 1.5, out[3], 1e-12)
		assert.Equal(t, 2.0, out[5])
	})
}

func TestQuantizeNormalize(t *testing.T) {
	q, err := Quantize([]float64{-2, -1, 0, 0.5, 1, 3}, 16)
	require.NoError(t, err)
	assert.Equal(t, []int{-32767, -32767, 0, 16384, 32767, 32767}, q)

	n, err := Normalize([]int{-32768, 0, 16384}, 16)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 0, 0.5}, n)

	_, err = Quantize([]float64{0}, 0)
	require.ErrorIs(t, err, audio.ErrUnsupportedFormat)
}

func TestDecode(t *testing.T) {
	data := make([]byte, 8)
	neg := int16(-16384)
	binary.LittleEndian.PutUint16(data[0:], uint16(int16(16384)))
	binary.LittleEndian.PutUint16(data[2:], uint16(neg))
	binary.LittleEndian.PutUint16(data[4:], uint16(int16(16384)))
	binary.LittleEndian.PutUint16(data[6:], uint16(int16(16384)))

	sig, err := Decode(Format{
		Channels:   2,
		SampleRate: 44100,
		PCMFormat:  audio.PCMFormatS16LE,
	}, data, 0)
	require.NoError(t, err)
	assert.Equal(t, audio.SampleRate(44100), sig.SampleRate)
	assert.Equal(t, []float64{0, 0.5}, sig.Samples)
}
