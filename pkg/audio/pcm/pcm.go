// Package pcm converts raw interleaved PCM into the mono float64 samples
// the spectral pipeline works on, and back.
package pcm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xaionaro-go/speechdenoise/pkg/audio"
)

type Format struct {
	Channels   audio.Channel
	SampleRate audio.SampleRate
	PCMFormat  audio.PCMFormat
}

func sampleToFloat64(f audio.PCMFormat, p []byte) float64 {
	switch f {
	case audio.PCMFormatU8:
		return (float64(p[0]) - 128) / 128
	case audio.PCMFormatS16LE:
		return float64(int16(binary.LittleEndian.Uint16(p))) / 32768
	case audio.PCMFormatS16BE:
		return float64(int16(binary.BigEndian.Uint16(p))) / 32768
	case audio.PCMFormatS24LE:
		val := int32(uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16)
		if val&0x800000 != 0 {
			val |= -16777216
		}
		return float64(val) / 8388608
	case audio.PCMFormatS32LE:
		return float64(int32(binary.LittleEndian.Uint32(p))) / 2147483648
	case audio.PCMFormatFloat32LE:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
	case audio.PCMFormatFloat64LE:
		return math.Float64frombits(binary.LittleEndian.Uint64(p))
	default:
		panic(fmt.Sprintf("unknown format: %v", f))
	}
}

// ToFloat64 converts interleaved PCM bytes into interleaved float64 samples.
func ToFloat64(f audio.PCMFormat, p []byte) ([]float64, error) {
	sampleSize := int(f.Size())
	if sampleSize == 0 {
		return nil, &audio.ValidationError{Op: "pcm", Err: fmt.Errorf("%w: %v", audio.ErrUnsupportedFormat, f)}
	}
	if len(p)%sampleSize != 0 {
		return nil, fmt.Errorf("the size of the input is not a multiple of the sample size: %d %% %d != 0", len(p), sampleSize)
	}

	result := make([]float64, len(p)/sampleSize)
	for idx := range result {
		result[idx] = sampleToFloat64(f, p[idx*sampleSize:])
	}
	return result, nil
}

// Downmix averages interleaved channels into a single channel.
func Downmix(interleaved []float64, channels audio.Channel) ([]float64, error) {
	if channels == 0 {
		return nil, &audio.ValidationError{Op: "downmix", Err: fmt.Errorf("%w: channels", audio.ErrNonPositiveSize)}
	}
	if channels == 1 {
		return interleaved, nil
	}
	if len(interleaved)%int(channels) != 0 {
		return nil, fmt.Errorf("expected a sample count that is a multiple of %d, but received %d", channels, len(interleaved))
	}

	result := make([]float64, len(interleaved)/int(channels))
	for idx := range result {
		var sum float64
		for ch := 0; ch < int(channels); ch++ {
			sum += interleaved[idx*int(channels)+ch]
		}
		result[idx] = sum / float64(channels)
	}
	return result, nil
}

// Resample changes the sample rate using linear interpolation.
func Resample(samples []float64, from, to audio.SampleRate) ([]float64, error) {
	if from == 0 || to == 0 {
		return nil, &audio.ValidationError{Op: "resample", Err: fmt.Errorf("%w: sample rate", audio.ErrNonPositiveSize)}
	}
	if from == to || len(samples) == 0 {
		return samples, nil
	}

	outLen := int(uint64(len(samples)) * uint64(to) / uint64(from))
	if outLen == 0 {
		outLen = 1
	}
	step := float64(from) / float64(to)
	result := make([]float64, outLen)
	for idx := range result {
		pos := float64(idx) * step
		left := int(pos)
		if left >= len(samples)-1 {
			result[idx] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(left)
		result[idx] = samples[left]*(1-frac) + samples[left+1]*frac
	}
	return result, nil
}

// Quantize converts samples to signed integers of the given bit depth,
// clipping to [-1, 1] first.
func Quantize(samples []float64, bitDepth int) ([]int, error) {
	if bitDepth <= 1 || bitDepth > 32 {
		return nil, &audio.ValidationError{Op: "quantize", Err: fmt.Errorf("%w: bit depth %d", audio.ErrUnsupportedFormat, bitDepth)}
	}
	maxValue := float64(int64(1)<<(bitDepth-1)) - 1
	result := make([]int, len(samples))
	for idx, v := range samples {
		v = math.Max(-1, math.Min(1, v))
		result[idx] = int(math.Round(v * maxValue))
	}
	return result, nil
}

// Normalize maps signed integer samples of the given bit depth into [-1, 1).
func Normalize(data []int, bitDepth int) ([]float64, error) {
	if bitDepth <= 1 || bitDepth > 32 {
		return nil, &audio.ValidationError{Op: "normalize", Err: fmt.Errorf("%w: bit depth %d", audio.ErrUnsupportedFormat, bitDepth)}
	}
	scale := float64(int64(1) << (bitDepth - 1))
	result := make([]float64, len(data))
	for idx, v := range data {
		result[idx] = float64(v) / scale
	}
	return result, nil
}

// Decode converts interleaved PCM of the given format into a mono signal,
// optionally resampled to targetRate (0 keeps the native rate).
func Decode(format Format, p []byte, targetRate audio.SampleRate) (audio.Signal, error) {
	interleaved, err := ToFloat64(format.PCMFormat, p)
	if err != nil {
		return audio.Signal{}, fmt.Errorf("unable to convert %v samples: %w", format.PCMFormat, err)
	}
	return FromInterleaved(interleaved, format.Channels, format.SampleRate, targetRate)
}

// FromInterleaved builds a mono signal out of interleaved float samples.
func FromInterleaved(
	interleaved []float64,
	channels audio.Channel,
	sampleRate audio.SampleRate,
	targetRate audio.SampleRate,
) (audio.Signal, error) {
	mono, err := Downmix(interleaved, channels)
	if err != nil {
		return audio.Signal{}, fmt.Errorf("unable to downmix %d channels: %w", channels, err)
	}
	if targetRate == 0 {
		targetRate = sampleRate
	}
	resampled, err := Resample(mono, sampleRate, targetRate)
	if err != nil {
		return audio.Signal{}, fmt.Errorf("unable to resample from %d to %d: %w", sampleRate, targetRate, err)
	}
	return audio.NewSignal(resampled, targetRate), nil
}
