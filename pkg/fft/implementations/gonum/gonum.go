// Package gonum implements fft.Backend on top of gonum's dsp/fourier.
package gonum

import (
	"fmt"

	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"github.com/xaionaro-go/speechdenoise/pkg/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

type Backend struct{}

var _ fft.Backend = Backend{}

func New() Backend {
	return Backend{}
}

func (Backend) String() string {
	return "gonum"
}

func (Backend) Plan(size int) (fft.Plan, error) {
	if size <= 0 {
		return nil, &audio.ValidationError{Op: "fft plan", Err: fmt.Errorf("%w: %d", audio.ErrNonPositiveSize, size)}
	}
	return &plan{
		fft:  fourier.NewFFT(size),
		size: size,
	}, nil
}

type plan struct {
	fft  *fourier.FFT
	size int
}

func (p *plan) Size() int {
	return p.size
}

func (p *plan) Forward(dst []complex128, frame []float64) []complex128 {
	if cap(dst) < fft.Bins(p.size) {
		dst = nil
	} else {
		dst = dst[:fft.Bins(p.size)]
	}
	return p.fft.Coefficients(dst, frame)
}

func (p *plan) Inverse(dst []float64, coeffs []complex128) []float64 {
	if cap(dst) < p.size {
		dst = nil
	} else {
		dst = dst[:p.size]
	}
	// gonum does not normalize the inverse transform
	dst = p.fft.Sequence(dst, coeffs)
	scale := 1 / float64(p.size)
	for i := range dst {
		dst[i] *= scale
	}
	return dst
}
