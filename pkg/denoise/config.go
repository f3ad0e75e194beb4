package denoise

import (
	"fmt"

	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"github.com/xaionaro-go/speechdenoise/pkg/fft"
)

const (
	DefaultFrameSize = 1024
	DefaultHopSize   = 512
	DefaultMaxFrames = 100
)

type Config struct {
	FrameSize int
	HopSize   int

	// MaxFrames is the amount of frames the estimator sees; the rest of
	// the signal is synthesized as silence.
	MaxFrames int

	// FFT is the transform backend; nil means the default one.
	FFT fft.Backend
}

func DefaultConfig() Config {
	return Config{
		FrameSize: DefaultFrameSize,
		HopSize:   DefaultHopSize,
		MaxFrames: DefaultMaxFrames,
	}
}

func (cfg Config) Validate() error {
	switch {
	case cfg.FrameSize <= 0:
		return &audio.ValidationError{Op: "denoise config", Err: fmt.Errorf("%w: frame size %d", audio.ErrNonPositiveSize, cfg.FrameSize)}
	case cfg.HopSize <= 0:
		return &audio.ValidationError{Op: "denoise config", Err: fmt.Errorf("%w: hop size %d", audio.ErrNonPositiveSize, cfg.HopSize)}
	case cfg.MaxFrames <= 0:
		return &audio.ValidationError{Op: "denoise config", Err: fmt.Errorf("%w: max frames %d", audio.ErrNonPositiveSize, cfg.MaxFrames)}
	case cfg.HopSize > cfg.FrameSize:
		return &audio.ValidationError{Op: "denoise config", Err: fmt.Errorf("%w: %d > %d", audio.ErrHopExceedsFrame, cfg.HopSize, cfg.FrameSize)}
	}
	return nil
}
