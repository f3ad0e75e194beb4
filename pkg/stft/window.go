package stft

import (
	"gonum.org/v1/gonum/dsp/window"
)

// Hann returns a Hann window of the given size with no zero taps:
// w[k] = 0.5 * (1 - cos(2*pi*(k+1)/(size+1))).
//
// gonum generates the symmetric form over size+2 points; dropping both
// zero endpoints leaves every tap positive, so the squared-window sum is
// positive everywhere for any hop up to size.
func Hann(size int) []float64 {
	w := make([]float64, size+2)
	for i := range w {
		w[i] = 1
	}
	return window.Hann(w)[1 : size+1]
}

// centered places the window in the middle of a zero buffer of length size.
func centered(w []float64, size int) []float64 {
	if len(w) == size {
		return w
	}
	result := make([]float64, size)
	copy(result[(size-len(w))/2:], w)
	return result
}
