// Package radix2 implements fft.Backend on top of github.com/brettbuddin/fourier,
// which only supports power-of-two sizes.
package radix2

import (
	"fmt"

	"github.com/brettbuddin/fourier"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"github.com/xaionaro-go/speechdenoise/pkg/fft"
)

type Backend struct{}

var _ fft.Backend = Backend{}

func New() Backend {
	return Backend{}
}

func (Backend) String() string {
	return "radix2"
}

func (Backend) Plan(size int) (fft.Plan, error) {
	if size <= 0 {
		return nil, &audio.ValidationError{Op: "fft plan", Err: fmt.Errorf("%w: %d", audio.ErrNonPositiveSize, size)}
	}
	if size&(size-1) != 0 {
		return nil, &audio.ValidationError{Op: "fft plan", Err: fmt.Errorf("%w: size %d is not a power of two", audio.ErrUnsupportedFormat, size)}
	}
	return &plan{
		size: size,
		buf:  make([]complex128, size),
	}, nil
}

type plan struct {
	size int
	buf  []complex128
}

func (p *plan) Size() int {
	return p.size
}

func (p *plan) Forward(dst []complex128, frame []float64) []complex128 {
	for i := range p.buf {
		if i < len(frame) {
			p.buf[i] = complex(frame[i], 0)
		} else {
			p.buf[i] = 0
		}
	}
	if err := fourier.Forward(p.buf); err != nil {
		// the size is validated in Plan
		panic(fmt.Errorf("unable to compute the forward FFT of size %d: %w", p.size, err))
	}

	bins := fft.Bins(p.size)
	if cap(dst) < bins {
		dst = make([]complex128, bins)
	}
	dst = dst[:bins]
	copy(dst, p.buf[:bins])
	return dst
}

// Inverse computes conj(FFT(conj(X)))/n, so only the forward
// transform of the library is relied upon.
func (p *plan) Inverse(dst []float64, coeffs []complex128) []float64 {
	p.buf = fft.Hermitian(p.buf, coeffs, p.size)
	for i, c := range p.buf {
		p.buf[i] = complex(real(c), -imag(c))
	}
	if err := fourier.Forward(p.buf); err != nil {
		panic(fmt.Errorf("unable to compute the inverse FFT of size %d: %w", p.size, err))
	}

	if cap(dst) < p.size {
		dst = make([]float64, p.size)
	}
	dst = dst[:p.size]
	scale := 1 / float64(p.size)
	for i, c := range p.buf {
		dst[i] = real(c) * scale
	}
	return dst
}
