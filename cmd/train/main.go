package main

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"github.com/xaionaro-go/speechdenoise/pkg/audio/codec"
	_ "github.com/xaionaro-go/speechdenoise/pkg/audio/codec/implementations/mp3"
	_ "github.com/xaionaro-go/speechdenoise/pkg/audio/codec/implementations/vorbis"
	_ "github.com/xaionaro-go/speechdenoise/pkg/audio/codec/implementations/wav"
	"github.com/xaionaro-go/speechdenoise/pkg/denoise"
	"github.com/xaionaro-go/speechdenoise/pkg/estimator/implementations/mlp"
	"github.com/xaionaro-go/speechdenoise/pkg/fft"
	"github.com/xaionaro-go/speechdenoise/pkg/stft"
	"github.com/xaionaro-go/speechdenoise/pkg/syncer/implementations/gccphat"
	"github.com/xaionaro-go/speechdenoise/pkg/training"
)

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	noisyPaths := pflag.StringSlice("noisy", nil, "noisy recordings (comma separated or repeated)")
	cleanPaths := pflag.StringSlice("clean", nil, "clean recordings, in the same order as --noisy")
	evalNoisyPath := pflag.String("eval-noisy", "", "a noisy recording to evaluate the trained model on")
	evalCleanPath := pflag.String("eval-clean", "", "the clean counterpart of --eval-noisy")
	outputPath := pflag.String("output", "model.msgpack", "where to write the trained model")
	initPath := pflag.String("init", "", "continue training a previously saved model")
	epochs := pflag.Int("epochs", mlp.DefaultEpochs, "training epochs")
	batchSize := pflag.Int("batch-size", mlp.DefaultBatchSize, "frames per mini-batch")
	learningRate := pflag.Float64("learning-rate", mlp.DefaultLearningRate, "Adam learning rate")
	hidden := pflag.IntSlice("hidden", mlp.DefaultHidden, "hidden layer sizes")
	seed := pflag.Uint64("seed", 0, "weight initialization and shuffling seed")
	shuffle := pflag.Bool("shuffle", false, "shuffle frames every epoch")
	align := pflag.Bool("align", false, "line every noisy recording up with its clean one using GCC-PHAT")
	frameSize := pflag.Int("frame-size", denoise.DefaultFrameSize, "STFT frame size in samples")
	hopSize := pflag.Int("hop-size", denoise.DefaultHopSize, "STFT hop size in samples")
	fftBackend := pflag.String("fft", "", "FFT backend: gonum, godsp or radix2")
	sampleRate := pflag.Uint32("sample-rate", 0, "resample every recording to this rate (0 keeps the native one)")
	pflag.Parse()

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	if len(*noisyPaths) == 0 || len(*noisyPaths) != len(*cleanPaths) {
		panic(fmt.Errorf("expected the same non-zero amount of --noisy and --clean files, got %d and %d", len(*noisyPaths), len(*cleanPaths)))
	}

	backend, err := stft.BackendByName(*fftBackend)
	assertNoError(err)
	cfg := training.DefaultConfig()
	cfg.Pipeline.FrameSize = *frameSize
	cfg.Pipeline.HopSize = *hopSize
	cfg.Pipeline.FFT = backend
	cfg.Fit.Epochs = *epochs
	cfg.Fit.BatchSize = *batchSize
	cfg.Fit.LearningRate = *learningRate
	if *align {
		cfg.Syncer = gccphat.New()
	}
	if *shuffle {
		cfg.Fit.Shuffle = rand.New(rand.NewPCG(*seed, *seed+1))
	}

	loadOpts := codec.LoadOptions{SampleRate: audio.SampleRate(*sampleRate)}
	var examples []training.Example
	for idx := range *noisyPaths {
		examples = append(examples, loadExample(ctx, (*noisyPaths)[idx], (*cleanPaths)[idx], loadOpts))
	}

	var net *mlp.MLP
	if *initPath != "" {
		net, err = mlp.LoadFile(*initPath)
	} else {
		net, err = mlp.New(fft.Bins(*frameSize), *hidden, *seed)
	}
	assertNoError(err)

	_, err = training.Train(ctx, net, examples, cfg)
	assertNoError(err)
	assertNoError(net.SaveFile(*outputPath))
	logger.Infof(ctx, "the model is saved to %s", *outputPath)

	if *evalNoisyPath != "" && *evalCleanPath != "" {
		ex := loadExample(ctx, *evalNoisyPath, *evalCleanPath, loadOpts)
		if cfg.Syncer != nil {
			ex, _, err = training.Align(ctx, cfg.Syncer, ex, cfg.MinSyncConfidence)
			assertNoError(err)
		}
		score, err := training.Evaluate(ctx, net, ex, cfg.Pipeline)
		assertNoError(err)
		fmt.Printf("SNR: %.2f dB (input: %.2f dB), RMSE: %g\n", score.SNR, score.InputSNR, score.RMSE)
	}
}

func loadExample(ctx context.Context, noisyPath, cleanPath string, opts codec.LoadOptions) training.Example {
	noisy, err := codec.Load(ctx, noisyPath, opts)
	assertNoError(err)
	if opts.SampleRate == 0 {
		opts.SampleRate = noisy.SampleRate
	}
	clean, err := codec.Load(ctx, cleanPath, opts)
	assertNoError(err)
	return training.Example{
		Noisy: noisy,
		Clean: clean,
	}
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
