package audio

import (
	"fmt"
	"time"
)

type SampleRate uint32

type Channel uint32

// Signal is a mono sequence of samples in the [-1, 1] range.
type Signal struct {
	Samples    []float64
	SampleRate SampleRate
}

func NewSignal(samples []float64, sampleRate SampleRate) Signal {
	return Signal{
		Samples:    samples,
		SampleRate: sampleRate,
	}
}

func (s Signal) Validate() error {
	if s.SampleRate == 0 {
		return &ValidationError{Op: "signal", Err: fmt.Errorf("%w: sample rate", ErrNonPositiveSize)}
	}
	if len(s.Samples) == 0 {
		return &ValidationError{Op: "signal", Err: ErrEmptySignal}
	}
	return nil
}

func (s Signal) Duration() time.Duration {
	if s.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(s.Samples)) * time.Second / time.Duration(s.SampleRate)
}
