// Package stft implements the short-time Fourier transform pair used by the
// denoising pipeline.
//
// Forward frames a signal with a Hann window (see Hann) after centring it
// (frameSize/2 zeros on the left, enough zeros on the right to cover every
// sample). Inverse overlap-adds the windowed frames and divides by the sum of
// squared windows, so Inverse(Forward(x)) reproduces x up to rounding for
// any hop <= frame.
package stft

import (
	"fmt"

	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"github.com/xaionaro-go/speechdenoise/pkg/fft"
	"github.com/xaionaro-go/speechdenoise/pkg/fft/implementations/godsp"
	"github.com/xaionaro-go/speechdenoise/pkg/fft/implementations/gonum"
	"github.com/xaionaro-go/speechdenoise/pkg/fft/implementations/radix2"
	"gonum.org/v1/gonum/mat"
)

// windowSumEpsilon is the smallest squared-window sum that is still
// divided by; samples with less coverage are synthesized as zero.
const windowSumEpsilon = 1e-20

type STFT struct {
	Backend fft.Backend
}

// New returns an STFT using the given FFT backend; nil means the default one.
func New(backend fft.Backend) *STFT {
	if backend == nil {
		backend = DefaultBackend()
	}
	return &STFT{
		Backend: backend,
	}
}

func DefaultBackend() fft.Backend {
	return gonum.New()
}

// BackendByName resolves an FFT backend by its String() value.
// An empty name returns the default backend.
func BackendByName(name string) (fft.Backend, error) {
	switch name {
	case "", "gonum":
		return gonum.New(), nil
	case "godsp":
		return godsp.New(), nil
	case "radix2":
		return radix2.New(), nil
	default:
		return nil, &audio.ValidationError{Op: "fft backend", Err: fmt.Errorf("%w: unknown backend %q", audio.ErrUnsupportedFormat, name)}
	}
}

// NumFrames returns the amount of frames Forward produces for a signal of
// the given length.
func NumFrames(length, frameSize, hopSize int) int {
	if length <= 0 || hopSize <= 0 {
		return 0
	}
	return 1 + (length+hopSize-1)/hopSize
}

func validate(length, frameSize, hopSize int) error {
	switch {
	case length == 0:
		return &audio.ValidationError{Op: "stft", Err: audio.ErrEmptySignal}
	case frameSize <= 0:
		return &audio.ValidationError{Op: "stft", Err: fmt.Errorf("%w: frame size %d", audio.ErrNonPositiveSize, frameSize)}
	case hopSize <= 0:
		return &audio.ValidationError{Op: "stft", Err: fmt.Errorf("%w: hop size %d", audio.ErrNonPositiveSize, hopSize)}
	case hopSize > frameSize:
		return &audio.ValidationError{Op: "stft", Err: fmt.Errorf("%w: %d > %d", audio.ErrHopExceedsFrame, hopSize, frameSize)}
	}
	return nil
}

// Forward returns the complex spectrogram of samples as a
// (frameSize/2+1) x NumFrames matrix: one row per frequency bin,
// one column per time frame.
func (s *STFT) Forward(samples []float64, frameSize, hopSize int) (*mat.CDense, error) {
	if err := validate(len(samples), frameSize, hopSize); err != nil {
		return nil, err
	}

	plan, err := s.Backend.Plan(frameSize)
	if err != nil {
		return nil, fmt.Errorf("unable to plan an FFT of size %d with %s: %w", frameSize, s.Backend, err)
	}

	numFrames := NumFrames(len(samples), frameSize, hopSize)
	bins := fft.Bins(frameSize)
	pad := frameSize / 2
	win := Hann(frameSize)

	spec := mat.NewCDense(bins, numFrames, nil)
	frame := make([]float64, frameSize)
	coeffs := make([]complex128, bins)
	for f := 0; f < numFrames; f++ {
		start := f*hopSize - pad
		for i := range frame {
			idx := start + i
			if idx < 0 || idx >= len(samples) {
				frame[i] = 0
				continue
			}
			frame[i] = samples[idx] * win[i]
		}
		coeffs = plan.Forward(coeffs, frame)
		for k, c := range coeffs {
			spec.Set(k, f, c)
		}
	}

	return spec, nil
}

// Inverse reconstructs (frames-1)*hopSize samples from a spectrogram
// produced by Forward.
//
// The FFT length is windowSize when it matches the bin count, otherwise it
// is 2*(bins-1) and the window is zero-padded around the centre.
func (s *STFT) Inverse(spec *mat.CDense, hopSize, windowSize int) ([]float64, error) {
	if spec == nil || spec.IsEmpty() {
		return nil, &audio.ValidationError{Op: "istft", Err: audio.ErrEmptySignal}
	}
	bins, numFrames := spec.Dims()

	fftSize := 2 * (bins - 1)
	if windowSize > 0 && fft.Bins(windowSize) == bins {
		fftSize = windowSize
	}
	switch {
	case fftSize <= 0:
		return nil, &audio.ValidationError{Op: "istft", Err: fmt.Errorf("%w: %d frequency bins", audio.ErrNonPositiveSize, bins)}
	case windowSize <= 0:
		return nil, &audio.ValidationError{Op: "istft", Err: fmt.Errorf("%w: window size %d", audio.ErrNonPositiveSize, windowSize)}
	case hopSize <= 0:
		return nil, &audio.ValidationError{Op: "istft", Err: fmt.Errorf("%w: hop size %d", audio.ErrNonPositiveSize, hopSize)}
	case windowSize > fftSize:
		return nil, &audio.ValidationError{Op: "istft", Err: fmt.Errorf("%w: window size %d exceeds FFT size %d", audio.ErrShapeMismatch, windowSize, fftSize)}
	case hopSize > windowSize:
		return nil, &audio.ValidationError{Op: "istft", Err: fmt.Errorf("%w: %d > %d", audio.ErrHopExceedsFrame, hopSize, windowSize)}
	}

	plan, err := s.Backend.Plan(fftSize)
	if err != nil {
		return nil, fmt.Errorf("unable to plan an FFT of size %d with %s: %w", fftSize, s.Backend, err)
	}

	win := centered(Hann(windowSize), fftSize)
	paddedLen := fftSize + hopSize*(numFrames-1)
	out := make([]float64, paddedLen)
	windowSum := make([]float64, paddedLen)

	coeffs := make([]complex128, bins)
	frame := make([]float64, fftSize)
	for f := 0; f < numFrames; f++ {
		for k := range coeffs {
			coeffs[k] = spec.At(k, f)
		}
		frame = plan.Inverse(frame, coeffs)
		start := f * hopSize
		for i, v := range frame {
			out[start+i] += v * win[i]
			windowSum[start+i] += win[i] * win[i]
		}
	}

	for i := range out {
		if windowSum[i] > windowSumEpsilon {
			out[i] /= windowSum[i]
		} else {
			out[i] = 0
		}
	}

	pad := fftSize / 2
	length := hopSize * (numFrames - 1)
	return out[pad : pad+length], nil
}

// InverseLength is Inverse with the output trimmed or zero-extended to
// exactly length samples.
func (s *STFT) InverseLength(spec *mat.CDense, hopSize, windowSize, length int) ([]float64, error) {
	samples, err := s.Inverse(spec, hopSize, windowSize)
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, &audio.ValidationError{Op: "istft", Err: fmt.Errorf("%w: length %d", audio.ErrNonPositiveSize, length)}
	}
	if len(samples) >= length {
		return samples[:length], nil
	}
	result := make([]float64, length)
	copy(result, samples)
	return result, nil
}

// Forward is STFT.Forward with the default backend.
func Forward(samples []float64, frameSize, hopSize int) (*mat.CDense, error) {
	return New(nil).Forward(samples, frameSize, hopSize)
}

// Inverse is STFT.Inverse with the default backend.
func Inverse(spec *mat.CDense, hopSize, windowSize int) ([]float64, error) {
	return New(nil).Inverse(spec, hopSize, windowSize)
}
