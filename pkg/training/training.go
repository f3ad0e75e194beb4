// Package training fits an mlp estimator on pairs of noisy and clean
// recordings and scores the result.
package training

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"github.com/xaionaro-go/speechdenoise/pkg/batch"
	"github.com/xaionaro-go/speechdenoise/pkg/denoise"
	"github.com/xaionaro-go/speechdenoise/pkg/estimator"
	"github.com/xaionaro-go/speechdenoise/pkg/estimator/implementations/mlp"
	"github.com/xaionaro-go/speechdenoise/pkg/evaluation"
	"github.com/xaionaro-go/speechdenoise/pkg/spectrum"
	"github.com/xaionaro-go/speechdenoise/pkg/stft"
	"github.com/xaionaro-go/speechdenoise/pkg/syncer"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultLogEvery          = 10
	DefaultMinSyncConfidence = 0.2
)

// Example is a noisy recording and its clean counterpart.
type Example struct {
	Noisy audio.Signal
	Clean audio.Signal
}

type Config struct {
	Pipeline denoise.Config
	Fit      mlp.FitOptions

	// LogEvery is the epoch interval of loss reports; 0 disables them.
	LogEvery int

	// Syncer lines every noisy recording up with its clean one before
	// training if set.
	Syncer syncer.Syncer

	// MinSyncConfidence is the confidence below which a found shift is
	// ignored.
	MinSyncConfidence float64
}

func DefaultConfig() Config {
	return Config{
		Pipeline: denoise.DefaultConfig(),
		Fit:      mlp.DefaultFitOptions(),
		LogEvery: DefaultLogEvery,

		MinSyncConfidence: DefaultMinSyncConfidence,
	}
}

// Align returns the example with the leading samples that have no
// counterpart in the other recording removed.
func Align(
	ctx context.Context,
	s syncer.Syncer,
	ex Example,
	minConfidence float64,
) (Example, syncer.ShiftResult, error) {
	shift, err := s.CalculateShift(ctx, ex.Clean, ex.Noisy)
	if err != nil {
		return Example{}, syncer.ShiftResult{}, fmt.Errorf("unable to calculate the shift: %w", err)
	}
	if shift.Confidence < minConfidence {
		logger.Warnf(ctx, "ignoring the shift of %.1f samples: the confidence %.2f is below %.2f", shift.Shift, shift.Confidence, minConfidence)
		return ex, shift, nil
	}
	clean, noisy := syncer.Align(ex.Clean.Samples, ex.Noisy.Samples, shift)
	logger.Debugf(ctx, "aligned with the shift of %.1f samples (confidence %.2f)", shift.Shift, shift.Confidence)
	return Example{
		Noisy: audio.NewSignal(noisy, ex.Noisy.SampleRate),
		Clean: audio.NewSignal(clean, ex.Clean.SampleRate),
	}, shift, nil
}

func magnitude(transform *stft.STFT, sig audio.Signal, cfg denoise.Config) (*mat.Dense, error) {
	spectrogram, err := transform.Forward(sig.Samples, cfg.FrameSize, cfg.HopSize)
	if err != nil {
		return nil, err
	}
	mag, _, err := spectrum.Split(spectrogram)
	if err != nil {
		return nil, err
	}
	return mag, nil
}

// Pair returns the frames x bins magnitudes of the example, both cut to
// the frame count of the shorter signal.
func Pair(
	ctx context.Context,
	ex Example,
	cfg denoise.Config,
) (noisy, clean *mat.Dense, _err error) {
	if err := ex.Noisy.Validate(); err != nil {
		return nil, nil, fmt.Errorf("noisy: %w", err)
	}
	if err := ex.Clean.Validate(); err != nil {
		return nil, nil, fmt.Errorf("clean: %w", err)
	}
	if ex.Noisy.SampleRate != ex.Clean.SampleRate {
		return nil, nil, &audio.ValidationError{Op: "pair", Err: fmt.Errorf("%w: sample rates %d and %d", audio.ErrShapeMismatch, ex.Noisy.SampleRate, ex.Clean.SampleRate)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	transform := stft.New(cfg.FFT)
	noisyMag, err := magnitude(transform, ex.Noisy, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to transform the noisy signal: %w", err)
	}
	cleanMag, err := magnitude(transform, ex.Clean, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to transform the clean signal: %w", err)
	}

	_, noisyFrames := noisyMag.Dims()
	_, cleanFrames := cleanMag.Dims()
	frames := min(noisyFrames, cleanFrames)
	if noisyFrames != cleanFrames {
		logger.Debugf(ctx, "the noisy signal has %d frames and the clean one %d; using %d", noisyFrames, cleanFrames, frames)
	}

	noisy, err = batch.ToBatch(noisyMag, frames)
	if err != nil {
		return nil, nil, err
	}
	clean, err = batch.ToBatch(cleanMag, frames)
	if err != nil {
		return nil, nil, err
	}
	return noisy, clean, nil
}

// Dataset stacks the frames of every example.
func Dataset(
	ctx context.Context,
	examples []Example,
	cfg denoise.Config,
) (noisy, clean *mat.Dense, _err error) {
	if len(examples) == 0 {
		return nil, nil, &audio.ValidationError{Op: "dataset", Err: audio.ErrEmptySignal}
	}
	for idx, ex := range examples {
		n, c, err := Pair(ctx, ex, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("example #%d: %w", idx, err)
		}
		if noisy == nil {
			noisy, clean = n, c
			continue
		}
		var stackedNoisy, stackedClean mat.Dense
		stackedNoisy.Stack(noisy, n)
		stackedClean.Stack(clean, c)
		noisy, clean = &stackedNoisy, &stackedClean
	}
	return noisy, clean, nil
}

// Train fits the network on the examples and returns the loss of every
// epoch.
func Train(
	ctx context.Context,
	net *mlp.MLP,
	examples []Example,
	cfg Config,
) (_ret []float64, _err error) {
	logger.Tracef(ctx, "Train")
	defer func() { logger.Tracef(ctx, "/Train: %v", _err) }()

	if cfg.Syncer != nil {
		aligned := make([]Example, 0, len(examples))
		for idx, ex := range examples {
			ex, _, err := Align(ctx, cfg.Syncer, ex, cfg.MinSyncConfidence)
			if err != nil {
				return nil, fmt.Errorf("unable to align example #%d: %w", idx, err)
			}
			aligned = append(aligned, ex)
		}
		examples = aligned
	}

	noisy, clean, err := Dataset(ctx, examples, cfg.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("unable to build the dataset: %w", err)
	}
	frames, bins := noisy.Dims()
	logger.Infof(ctx, "training on %d frames of %d bins from %d examples", frames, bins, len(examples))

	fitOpts := cfg.Fit
	onEpoch := fitOpts.OnEpoch
	fitOpts.OnEpoch = func(epoch int, loss float64) {
		if cfg.LogEvery > 0 && epoch%cfg.LogEvery == 0 {
			logger.Infof(ctx, "epoch %d, loss: %g", epoch, loss)
		}
		if onEpoch != nil {
			onEpoch(epoch, loss)
		}
	}
	losses, err := net.Fit(ctx, noisy, clean, fitOpts)
	if err != nil {
		return losses, fmt.Errorf("unable to fit the network: %w", err)
	}
	logger.Infof(ctx, "training complete, final loss: %g", losses[len(losses)-1])
	return losses, nil
}

type Score struct {
	// InputSNR is the SNR of the noisy signal itself.
	InputSNR float64
	SNR      float64
	RMSE     float64
}

// Evaluate denoises the noisy signal and compares both it and the result
// with the clean one.
func Evaluate(
	ctx context.Context,
	est estimator.Estimator,
	ex Example,
	cfg denoise.Config,
) (Score, error) {
	denoised, _, err := denoise.Denoise(ctx, ex.Noisy, est, cfg)
	if err != nil {
		return Score{}, fmt.Errorf("unable to denoise: %w", err)
	}
	return Score{
		InputSNR: evaluation.SNR(ex.Clean.Samples, ex.Noisy.Samples),
		SNR:      evaluation.SNR(ex.Clean.Samples, denoised.Samples),
		RMSE:     evaluation.RMSE(ex.Clean.Samples, denoised.Samples),
	}, nil
}
