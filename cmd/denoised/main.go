package main

import (
	"context"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	_ "github.com/xaionaro-go/speechdenoise/pkg/audio/codec/implementations/mp3"
	_ "github.com/xaionaro-go/speechdenoise/pkg/audio/codec/implementations/vorbis"
	_ "github.com/xaionaro-go/speechdenoise/pkg/audio/codec/implementations/wav"
	"github.com/xaionaro-go/speechdenoise/pkg/config"
	"github.com/xaionaro-go/speechdenoise/pkg/fft"
	"github.com/xaionaro-go/speechdenoise/pkg/server"
)

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	configPath := pflag.String("config", "", "path to a YAML config file")
	listenAddr := pflag.String("listen-addr", "", "overrides server.listen_addr of the config")
	modelPath := pflag.String("model", "", "overrides estimator.model_path of the config (and selects the mlp estimator)")
	printConfig := pflag.Bool("print-config", false, "print the effective config and exit")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	pflag.Parse()

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(*configPath)
		assertNoError(err)
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}
	if *modelPath != "" {
		cfg.Estimator.Kind = config.EstimatorKindMLP
		cfg.Estimator.ModelPath = *modelPath
	}

	if *printConfig {
		b, err := cfg.Bytes()
		assertNoError(err)
		_, err = os.Stdout.Write(b)
		assertNoError(err)
		return
	}

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	pipeline, err := cfg.Pipeline.DenoiseConfig()
	assertNoError(err)
	est, err := cfg.Estimator.NewEstimator(fft.Bins(pipeline.FrameSize))
	assertNoError(err)
	defer est.Close()
	logger.Infof(ctx, "using the %s estimator", cfg.Estimator.Kind)

	opts := server.DefaultOptions()
	opts.Pipeline = pipeline
	opts.MaxUploadBytes = cfg.Server.MaxUploadBytes
	opts.RequestTimeout = cfg.Server.RequestTimeout
	opts.SampleRate = audio.SampleRate(cfg.Server.SampleRate)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = server.New(est, opts).ListenAndServe(ctx, cfg.Server.ListenAddr)
	assertNoError(err)
	logger.Infof(ctx, "stopped")
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
