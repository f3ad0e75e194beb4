package mlp

import (
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
)

const modelFormatVersion = 1

type modelFile struct {
	Version int         `msgpack:"version"`
	Layers  []layerFile `msgpack:"layers"`
}

type layerFile struct {
	Inputs     int        `msgpack:"inputs"`
	Outputs    int        `msgpack:"outputs"`
	Weights    []float64  `msgpack:"weights"`
	Bias       []float64  `msgpack:"bias"`
	Activation Activation `msgpack:"activation"`
}

// Save writes the network parameters to w.
func (m *MLP) Save(w io.Writer) error {
	m.locker.RLock()
	defer m.locker.RUnlock()

	f := modelFile{Version: modelFormatVersion}
	for idx := range m.Layers {
		l := &m.Layers[idx]
		f.Layers = append(f.Layers, layerFile{
			Inputs:     l.Inputs(),
			Outputs:    l.Outputs(),
			Weights:    mat.DenseCopyOf(l.Weights).RawMatrix().Data,
			Bias:       l.Bias,
			Activation: l.Activation,
		})
	}
	if err := msgpack.NewEncoder(w).Encode(f); err != nil {
		return fmt.Errorf("unable to encode the model: %w", err)
	}
	return nil
}

func (m *MLP) SaveFile(path string) (_err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create file '%s': %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil && _err == nil {
			_err = fmt.Errorf("unable to close file '%s': %w", path, err)
		}
	}()
	return m.Save(f)
}

// Load reads a network previously written by Save.
func Load(r io.Reader) (*MLP, error) {
	var f modelFile
	if err := msgpack.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("unable to decode the model: %w", err)
	}
	if f.Version != modelFormatVersion {
		return nil, fmt.Errorf("unsupported model format version %d (expected %d)", f.Version, modelFormatVersion)
	}

	m := &MLP{}
	for idx, l := range f.Layers {
		if l.Inputs <= 0 || l.Outputs <= 0 || len(l.Weights) != l.Inputs*l.Outputs {
			return nil, fmt.Errorf("layer #%d: %d weights do not fit %dx%d", idx, len(l.Weights), l.Inputs, l.Outputs)
		}
		m.Layers = append(m.Layers, Layer{
			Weights:    mat.NewDense(l.Inputs, l.Outputs, l.Weights),
			Bias:       l.Bias,
			Activation: l.Activation,
		})
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	return m, nil
}

func LoadFile(path string) (*MLP, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open file '%s': %w", path, err)
	}
	defer f.Close()
	return Load(f)
}
