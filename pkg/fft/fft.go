package fft

// Backend creates FFT plans of a given size.
//
// Backends are expected to be stateless: a plan holds all the work buffers,
// so a single Backend may be shared between goroutines as long as every
// goroutine uses its own Plan.
type Backend interface {
	Plan(size int) (Plan, error)
	String() string
}

// Plan is a real-input FFT of a fixed size. A Plan is not safe for
// concurrent use.
type Plan interface {
	Size() int

	// Forward returns the one-sided spectrum (Size()/2+1 coefficients)
	// of a real frame of Size() samples.
	Forward(dst []complex128, frame []float64) []complex128

	// Inverse returns Size() real samples from Size()/2+1 one-sided
	// coefficients, normalized by 1/Size().
	Inverse(dst []float64, coeffs []complex128) []float64
}

// Bins returns the amount of one-sided coefficients for a frame of the given size.
func Bins(size int) int {
	return size/2 + 1
}

// Hermitian expands a one-sided spectrum into the full spectrum of a real
// sequence of the given size.
func Hermitian(dst []complex128, coeffs []complex128, size int) []complex128 {
	if cap(dst) < size {
		dst = make([]complex128, size)
	}
	dst = dst[:size]
	for k := range dst {
		switch {
		case k < len(coeffs):
			dst[k] = coeffs[k]
		case size-k < len(coeffs):
			c := coeffs[size-k]
			dst[k] = complex(real(c), -imag(c))
		default:
			dst[k] = 0
		}
	}
	return dst
}
