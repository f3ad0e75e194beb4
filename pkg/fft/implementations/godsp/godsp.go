// Package godsp implements fft.Backend on top of github.com/mjibson/go-dsp.
package godsp

import (
	"fmt"

	"github.com/mjibson/go-dsp/fft"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	fftbackend "github.com/xaionaro-go/speechdenoise/pkg/fft"
)

type Backend struct{}

var _ fftbackend.Backend = Backend{}

func New() Backend {
	return Backend{}
}

func (Backend) String() string {
	return "godsp"
}

func (Backend) Plan(size int) (fftbackend.Plan, error) {
	if size <= 0 {
		return nil, &audio.ValidationError{Op: "fft plan", Err: fmt.Errorf("%w: %d", audio.ErrNonPositiveSize, size)}
	}
	return &plan{size: size}, nil
}

type plan struct {
	size     int
	spectrum []complex128
}

func (p *plan) Size() int {
	return p.size
}

func (p *plan) Forward(dst []complex128, frame []float64) []complex128 {
	full := fft.FFTReal(frame)
	bins := fftbackend.Bins(p.size)
	if cap(dst) < bins {
		dst = make([]complex128, bins)
	}
	dst = dst[:bins]
	copy(dst, full[:bins])
	return dst
}

func (p *plan) Inverse(dst []float64, coeffs []complex128) []float64 {
	p.spectrum = fftbackend.Hermitian(p.spectrum, coeffs, p.size)
	seq := fft.IFFT(p.spectrum)
	if cap(dst) < p.size {
		dst = make([]float64, p.size)
	}
	dst = dst[:p.size]
	for i, v := range seq {
		dst[i] = real(v)
	}
	return dst
}
