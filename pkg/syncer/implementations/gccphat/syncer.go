// Package gccphat estimates the delay between two signals with the
// generalized cross-correlation with phase transform (GCC-PHAT): the
// cross-power spectrum is whitened, so the correlation peak depends on
// phase only and stays sharp regardless of the spectral envelope.
package gccphat

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/mjibson/go-dsp/fft"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"github.com/xaionaro-go/speechdenoise/pkg/syncer"
)

const (
	DefaultMinFreq = 100
	DefaultMaxFreq = 12000

	// bins below this fraction of the strongest cross-power bin are not
	// whitened (-60dB)
	activeBinThreshold = 0.001
)

type Syncer struct {
	// MinFreq and MaxFreq limit the band used for the correlation, in Hz;
	// zero disables the respective limit.
	MinFreq float64
	MaxFreq float64

	// MaxShift limits the searched delay in samples; zero means any.
	MaxShift int
}

var _ syncer.Syncer = (*Syncer)(nil)

func New() *Syncer {
	return &Syncer{
		MinFreq: DefaultMinFreq,
		MaxFreq: DefaultMaxFreq,
	}
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func spectrum(samples []float64, size int) []complex128 {
	padded := make([]float64, size)
	copy(padded, samples)
	return fft.FFTReal(padded)
}

func (s *Syncer) CalculateShift(
	ctx context.Context,
	reference audio.Signal,
	comparison audio.Signal,
) (_ret syncer.ShiftResult, _err error) {
	logger.Tracef(ctx, "CalculateShift")
	defer func() { logger.Tracef(ctx, "/CalculateShift: %v %v", _ret, _err) }()

	if err := reference.Validate(); err != nil {
		return syncer.ShiftResult{}, fmt.Errorf("reference: %w", err)
	}
	if err := comparison.Validate(); err != nil {
		return syncer.ShiftResult{}, fmt.Errorf("comparison: %w", err)
	}
	if reference.SampleRate != comparison.SampleRate {
		return syncer.ShiftResult{}, &audio.ValidationError{Op: "sync", Err: fmt.Errorf("%w: sample rates %d and %d", audio.ErrShapeMismatch, reference.SampleRate, comparison.SampleRate)}
	}

	// the size covers the full linear correlation, so there is no wrap-around
	n := nextPowerOfTwo(len(reference.Samples) + len(comparison.Samples) - 1)
	refSpectrum := spectrum(reference.Samples, n)
	compSpectrum := spectrum(comparison.Samples, n)
	if err := ctx.Err(); err != nil {
		return syncer.ShiftResult{}, err
	}

	shift, confidence := s.crossCorrelate(refSpectrum, compSpectrum, float64(reference.SampleRate))
	return syncer.ShiftResult{
		Shift:      shift,
		Confidence: confidence,
	}, nil
}

func (s *Syncer) binRange(n int, sampleRate float64) (int, int) {
	lo, hi := 0, n/2
	if s.MinFreq > 0 {
		lo = int(s.MinFreq * float64(n) / sampleRate)
	}
	if s.MaxFreq > 0 && s.MaxFreq < sampleRate/2 {
		hi = int(s.MaxFreq * float64(n) / sampleRate)
	}
	return lo, hi
}

func (s *Syncer) crossCorrelate(ref, comp []complex128, sampleRate float64) (float64, float64) {
	n := len(ref)
	lo, hi := s.binRange(n, sampleRate)

	cross := make([]complex128, n)
	var strongest float64
	for k := range cross {
		cross[k] = comp[k] * cmplx.Conj(ref[k])
		strongest = math.Max(strongest, cmplx.Abs(cross[k]))
	}
	threshold := math.Max(strongest*activeBinThreshold, 1e-12)

	var active int
	for k, v := range cross {
		freqIdx := k
		if k > n/2 {
			freqIdx = n - k
		}
		mag := cmplx.Abs(v)
		if freqIdx < lo || freqIdx > hi || mag <= threshold {
			cross[k] = 0
			continue
		}
		cross[k] = v / complex(mag, 0)
		active++
	}
	if active == 0 {
		return 0, 0
	}

	correlation := fft.IFFT(cross)
	lag := func(idx int) int {
		if idx > n/2 {
			return idx - n
		}
		return idx
	}

	peakIdx, peak := 0, -1.0
	for idx, v := range correlation {
		if s.MaxShift > 0 && abs(lag(idx)) > s.MaxShift {
			continue
		}
		if a := cmplx.Abs(v); a > peak {
			peakIdx, peak = idx, a
		}
	}

	delay := float64(lag(peakIdx))
	prev := cmplx.Abs(correlation[(peakIdx-1+n)%n])
	next := cmplx.Abs(correlation[(peakIdx+1)%n])
	if denom := prev - 2*peak + next; peak >= prev && peak >= next && math.Abs(denom) > 1e-12 {
		delay += (prev - next) / (2 * denom)
	}

	// a perfect match puts all the whitened energy into the peak: active/n
	confidence := math.Min(1, peak*float64(n)/float64(active))

	// the peak is at the comparison's delay, i.e. the opposite of how far ahead it is
	return -delay, confidence
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
