package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"github.com/xaionaro-go/speechdenoise/pkg/audio/codec"
	_ "github.com/xaionaro-go/speechdenoise/pkg/audio/codec/implementations/mp3"
	_ "github.com/xaionaro-go/speechdenoise/pkg/audio/codec/implementations/vorbis"
	_ "github.com/xaionaro-go/speechdenoise/pkg/audio/codec/implementations/wav"
	"github.com/xaionaro-go/speechdenoise/pkg/config"
	"github.com/xaionaro-go/speechdenoise/pkg/denoise"
	"github.com/xaionaro-go/speechdenoise/pkg/evaluation"
	"github.com/xaionaro-go/speechdenoise/pkg/fft"
	"github.com/xaionaro-go/speechdenoise/pkg/syncer"
	"github.com/xaionaro-go/speechdenoise/pkg/syncer/implementations/gccphat"
)

func main() {
	defaults := config.Default()
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	estimatorKind := pflag.String("estimator", string(defaults.Estimator.Kind), "identity, gain, spectralsub or mlp")
	modelPath := pflag.String("model", "", "path to a model file produced by 'train' (for --estimator=mlp)")
	gainFactor := pflag.Float64("gain", defaults.Estimator.Gain, "the factor for --estimator=gain")
	quantile := pflag.Float64("noise-quantile", defaults.Estimator.SpectralSubtraction.Quantile, "the power quantile considered noise (for --estimator=spectralsub)")
	floor := pflag.Float64("gain-floor", defaults.Estimator.SpectralSubtraction.Floor, "the minimal gain (for --estimator=spectralsub)")
	frameSize := pflag.Int("frame-size", defaults.Pipeline.FrameSize, "STFT frame size in samples")
	hopSize := pflag.Int("hop-size", defaults.Pipeline.HopSize, "STFT hop size in samples")
	maxFrames := pflag.Int("max-frames", defaults.Pipeline.MaxFrames, "the amount of frames passed to the estimator; the rest is silenced")
	fftBackend := pflag.String("fft", defaults.Pipeline.FFT, "FFT backend: gonum, godsp or radix2")
	sampleRate := pflag.Uint32("sample-rate", 0, "resample the input to this rate (0 keeps the native one)")
	referencePath := pflag.String("reference", "", "a clean recording to report the SNR against")
	alignReference := pflag.Bool("align-reference", false, "line the --reference recording up with the input before computing the SNR")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	pflag.Parse()

	if pflag.NArg() != 2 {
		panic(fmt.Errorf("expected exactly two arguments: <input-file> <output-file>"))
	}

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	pipelineCfg := config.Pipeline{
		FrameSize: *frameSize,
		HopSize:   *hopSize,
		MaxFrames: *maxFrames,
		FFT:       *fftBackend,
	}
	pipeline, err := pipelineCfg.DenoiseConfig()
	assertNoError(err)

	estimatorCfg := defaults.Estimator
	estimatorCfg.Kind = config.EstimatorKind(*estimatorKind)
	estimatorCfg.ModelPath = *modelPath
	estimatorCfg.Gain = *gainFactor
	estimatorCfg.SpectralSubtraction.Quantile = *quantile
	estimatorCfg.SpectralSubtraction.Floor = *floor
	est, err := estimatorCfg.NewEstimator(fft.Bins(pipeline.FrameSize))
	assertNoError(err)
	defer est.Close()

	input, err := codec.Load(ctx, pflag.Arg(0), codec.LoadOptions{SampleRate: audio.SampleRate(*sampleRate)})
	assertNoError(err)
	logger.Infof(ctx, "loaded %s: %v at %d Hz", pflag.Arg(0), input.Duration(), input.SampleRate)

	output, report, err := denoise.Denoise(ctx, input, est, pipeline)
	assertNoError(err)
	logger.Debugf(ctx, "report: %#+v", report)

	assertNoError(codec.Save(ctx, pflag.Arg(1), output))
	logger.Infof(ctx, "written %s", pflag.Arg(1))

	if *referencePath != "" {
		reference, err := codec.Load(ctx, *referencePath, codec.LoadOptions{SampleRate: output.SampleRate})
		assertNoError(err)
		refSamples, inputSamples, outputSamples := reference.Samples, input.Samples, output.Samples
		if *alignReference {
			shift, err := gccphat.New().CalculateShift(ctx, reference, input)
			assertNoError(err)
			logger.Infof(ctx, "the input is %.1f samples ahead of the reference (confidence %.2f)", shift.Shift, shift.Confidence)
			_, inputSamples = syncer.Align(reference.Samples, input.Samples, shift)
			refSamples, outputSamples = syncer.Align(reference.Samples, output.Samples, shift)
		}
		fmt.Printf("SNR of the input:  %.2f dB\n", evaluation.SNR(refSamples, inputSamples))
		fmt.Printf("SNR of the output: %.2f dB\n", evaluation.SNR(refSamples, outputSamples))
	}
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
