// Package denoise chains the spectral pipeline: STFT, magnitude/phase
// split, batching, magnitude estimation, recombination with the noisy
// phase and the inverse STFT.
package denoise

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"github.com/xaionaro-go/speechdenoise/pkg/batch"
	"github.com/xaionaro-go/speechdenoise/pkg/estimator"
	"github.com/xaionaro-go/speechdenoise/pkg/spectrum"
	"github.com/xaionaro-go/speechdenoise/pkg/stft"
)

type Report struct {
	Frames          int
	Bins            int
	EstimatedFrames int
	Reconciliation  batch.Reconciliation
}

// Denoise returns the denoised signal of the same length and sample rate
// as the input.
//
// It keeps no state between calls, so it may be called concurrently as
// long as the estimator supports that.
func Denoise(
	ctx context.Context,
	sig audio.Signal,
	est estimator.Estimator,
	cfg Config,
) (_ret audio.Signal, _report Report, _err error) {
	logger.Tracef(ctx, "Denoise")
	defer func() { logger.Tracef(ctx, "/Denoise: %v", _err) }()

	if err := sig.Validate(); err != nil {
		return audio.Signal{}, Report{}, err
	}
	if err := cfg.Validate(); err != nil {
		return audio.Signal{}, Report{}, err
	}

	transform := stft.New(cfg.FFT)
	spec, err := transform.Forward(sig.Samples, cfg.FrameSize, cfg.HopSize)
	if err != nil {
		return audio.Signal{}, Report{}, fmt.Errorf("unable to compute the spectrogram: %w", err)
	}
	bins, frames := spec.Dims()
	report := Report{
		Frames: frames,
		Bins:   bins,
	}

	magnitude, phase, err := spectrum.Split(spec)
	if err != nil {
		return audio.Signal{}, report, fmt.Errorf("unable to split the spectrogram: %w", err)
	}
	input, err := batch.ToBatch(magnitude, cfg.MaxFrames)
	if err != nil {
		return audio.Signal{}, report, fmt.Errorf("unable to prepare the estimator input: %w", err)
	}
	report.EstimatedFrames, _ = input.Dims()
	logger.Debugf(ctx, "estimating %d of %d frames (%d bins)", report.EstimatedFrames, frames, bins)

	estimated, err := estimator.Apply(ctx, est, input)
	if err != nil {
		return audio.Signal{}, report, fmt.Errorf("unable to estimate the magnitude: %w", err)
	}

	restored, reconciliation, err := batch.FromBatch(estimated, bins, frames)
	if err != nil {
		return audio.Signal{}, report, fmt.Errorf("unable to restore the magnitude layout: %w", err)
	}
	report.Reconciliation = reconciliation
	if reconciliation.Partial() {
		logger.Warnf(ctx, "the estimated magnitude did not match the spectrogram (%s); uncovered frames are synthesized as silence", reconciliation)
	}

	recombined, err := spectrum.Recombine(restored, phase)
	if err != nil {
		return audio.Signal{}, report, fmt.Errorf("unable to recombine magnitude and phase: %w", err)
	}

	samples, err := transform.InverseLength(recombined, cfg.HopSize, cfg.FrameSize, len(sig.Samples))
	if err != nil {
		return audio.Signal{}, report, fmt.Errorf("unable to synthesize the signal: %w", err)
	}
	return audio.NewSignal(samples, sig.SampleRate), report, nil
}
