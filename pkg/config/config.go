// Package config describes the service configuration file and builds the
// pipeline pieces out of it.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xaionaro-go/speechdenoise/pkg/denoise"
	"github.com/xaionaro-go/speechdenoise/pkg/estimator"
	"github.com/xaionaro-go/speechdenoise/pkg/estimator/implementations/gain"
	"github.com/xaionaro-go/speechdenoise/pkg/estimator/implementations/mlp"
	"github.com/xaionaro-go/speechdenoise/pkg/estimator/implementations/spectralsub"
	"github.com/xaionaro-go/speechdenoise/pkg/stft"
	"gopkg.in/yaml.v3"
)

type EstimatorKind string

const (
	EstimatorKindIdentity            = EstimatorKind("identity")
	EstimatorKindGain                = EstimatorKind("gain")
	EstimatorKindSpectralSubtraction = EstimatorKind("spectralsub")
	EstimatorKindMLP                 = EstimatorKind("mlp")
)

type Pipeline struct {
	FrameSize int    `yaml:"frame_size"`
	HopSize   int    `yaml:"hop_size"`
	MaxFrames int    `yaml:"max_frames"`
	FFT       string `yaml:"fft"`
}

type SpectralSubtraction struct {
	Quantile  float64 `yaml:"quantile"`
	Floor     float64 `yaml:"floor"`
	Overboost float64 `yaml:"overboost"`
}

type Estimator struct {
	Kind                EstimatorKind       `yaml:"kind"`
	Gain                float64             `yaml:"gain"`
	ModelPath           string              `yaml:"model_path"`
	SpectralSubtraction SpectralSubtraction `yaml:"spectral_subtraction"`
}

type Server struct {
	ListenAddr     string        `yaml:"listen_addr"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// SampleRate to resample uploads to; zero keeps the native rate.
	SampleRate uint32 `yaml:"sample_rate"`
}

type Config struct {
	Pipeline  Pipeline  `yaml:"pipeline"`
	Estimator Estimator `yaml:"estimator"`
	Server    Server    `yaml:"server"`
}

func Default() Config {
	pipeline := denoise.DefaultConfig()
	return Config{
		Pipeline: Pipeline{
			FrameSize: pipeline.FrameSize,
			HopSize:   pipeline.HopSize,
			MaxFrames: pipeline.MaxFrames,
			FFT:       stft.DefaultBackend().String(),
		},
		Estimator: Estimator{
			Kind: EstimatorKindSpectralSubtraction,
			Gain: 1,
			SpectralSubtraction: SpectralSubtraction{
				Quantile:  spectralsub.DefaultQuantile,
				Floor:     spectralsub.DefaultFloor,
				Overboost: spectralsub.DefaultOverboost,
			},
		},
		Server: Server{
			ListenAddr:     ":5000",
			MaxUploadBytes: 64 << 20,
			RequestTimeout: time.Minute,
		},
	}
}

// Read parses a YAML document on top of the defaults.
func Read(r io.Reader) (Config, error) {
	cfg := Default()
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read the config: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to parse YAML: %w", err)
	}
	return cfg, nil
}

func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer f.Close()
	cfg, err := Read(f)
	if err != nil {
		return Config{}, fmt.Errorf("'%s': %w", path, err)
	}
	return cfg, nil
}

func (cfg Config) Bytes() ([]byte, error) {
	return yaml.Marshal(cfg)
}

func (p Pipeline) DenoiseConfig() (denoise.Config, error) {
	backend, err := stft.BackendByName(p.FFT)
	if err != nil {
		return denoise.Config{}, err
	}
	result := denoise.Config{
		FrameSize: p.FrameSize,
		HopSize:   p.HopSize,
		MaxFrames: p.MaxFrames,
		FFT:       backend,
	}
	if err := result.Validate(); err != nil {
		return denoise.Config{}, err
	}
	return result, nil
}

// NewEstimator builds the configured estimator; bins is the frequency bin
// count the pipeline produces, used to check a loaded model.
func (e Estimator) NewEstimator(bins int) (estimator.Estimator, error) {
	switch e.Kind {
	case "", EstimatorKindIdentity:
		return estimator.NewIdentity(), nil
	case EstimatorKindGain:
		g, err := gain.New(e.Gain)
		if err != nil {
			return nil, err
		}
		return g, nil
	case EstimatorKindSpectralSubtraction:
		s := e.SpectralSubtraction
		sub, err := spectralsub.New(s.Quantile, s.Floor, s.Overboost)
		if err != nil {
			return nil, err
		}
		return sub, nil
	case EstimatorKindMLP:
		if e.ModelPath == "" {
			return nil, fmt.Errorf("the 'mlp' estimator requires a model path")
		}
		net, err := mlp.LoadFile(e.ModelPath)
		if err != nil {
			return nil, err
		}
		if net.Features() != bins {
			return nil, fmt.Errorf("the model at '%s' expects %d frequency bins, but the pipeline produces %d", e.ModelPath, net.Features(), bins)
		}
		return net, nil
	default:
		return nil, fmt.Errorf("unknown estimator kind '%s'", e.Kind)
	}
}
