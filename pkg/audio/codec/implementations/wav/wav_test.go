package wav

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
)

// extensibleWAV builds a mono 16 kHz WAVE_FORMAT_EXTENSIBLE file whose
// sub-format GUID starts with subFormat.
func extensibleWAV(t *testing.T, subFormat uint16, bitDepth uint16, data []byte) []byte {
	t.Helper()
	le := binary.LittleEndian

	var fmtChunk bytes.Buffer
	for _, v := range []any{
		uint16(formatExtensible),
		uint16(1),     // channels
		uint32(16000), // sample rate
		uint32(16000 * int(bitDepth) / 8),
		uint16(bitDepth / 8), // block align
		bitDepth,
		uint16(22),  // cbSize
		bitDepth,    // valid bits
		uint32(0x4), // channel mask
		subFormat,
	} {
		require.NoError(t, binary.Write(&fmtChunk, le, v))
	}
	fmtChunk.Write(guidSuffix)
	require.Equal(t, extensibleChunkSize, fmtChunk.Len())

	var file bytes.Buffer
	file.WriteString("RIFF")
	require.NoError(t, binary.Write(&file, le, uint32(4+8+fmtChunk.Len()+8+len(data))))
	file.WriteString("WAVE")
	file.WriteString("fmt ")
	require.NoError(t, binary.Write(&file, le, uint32(fmtChunk.Len())))
	file.Write(fmtChunk.Bytes())
	file.WriteString("data")
	require.NoError(t, binary.Write(&file, le, uint32(len(data))))
	file.Write(data)
	return file.Bytes()
}

func TestDecodeExtensiblePCM(t *testing.T) {
	var data bytes.Buffer
	for _, v := range []int16{0, 16384, -16384, 8192} {
		require.NoError(t, binary.Write(&data, binary.LittleEndian, v))
	}

	sig, err := Codec{}.Decode(context.Background(), bytes.NewReader(extensibleWAV(t, formatPCM, 16, data.Bytes())), 0)
	require.NoError(t, err)
	require.Equal(t, audio.SampleRate(16000), sig.SampleRate)
	require.Len(t, sig.Samples, 4)
	require.InDelta(t, 0.5, sig.Samples[1], 1e-3)
	require.InDelta(t, -0.5, sig.Samples[2], 1e-3)
}

func TestDecodeExtensibleFloatRejected(t *testing.T) {
	var data bytes.Buffer
	for _, v := range []float32{0, 0.5, -0.5, 0.25} {
		require.NoError(t, binary.Write(&data, binary.LittleEndian, v))
	}

	_, err := Codec{}.Decode(context.Background(), bytes.NewReader(extensibleWAV(t, formatFloat, 32, data.Bytes())), 0)
	require.ErrorIs(t, err, audio.ErrUnsupportedFormat)
	require.True(t, audio.IsValidationError(err))
}

func TestSampleFormatRewinds(t *testing.T) {
	r := bytes.NewReader(extensibleWAV(t, formatPCM, 16, make([]byte, 8)))
	format, err := sampleFormat(r)
	require.NoError(t, err)
	require.Equal(t, uint16(formatPCM), format)

	offset, err := r.Seek(0, 1)
	require.NoError(t, err)
	require.Zero(t, offset)
}
