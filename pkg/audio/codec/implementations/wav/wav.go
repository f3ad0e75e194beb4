// Package wav reads and writes RIFF/WAVE files with integer PCM samples.
package wav

import (
	"context"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"github.com/xaionaro-go/speechdenoise/pkg/audio/codec"
	"github.com/xaionaro-go/speechdenoise/pkg/audio/pcm"
)

const (
	Priority = 100

	// OutputBitDepth is the sample size of the written files.
	OutputBitDepth = 16

	formatPCM        = 1
	formatExtensible = 0xFFFE
)

func init() {
	codec.RegisterDecoder(Priority, Codec{})
	codec.RegisterEncoder(Priority, Codec{})
}

type Codec struct{}

var (
	_ codec.Decoder = Codec{}
	_ codec.Encoder = Codec{}
)

func (Codec) String() string {
	return "wav"
}

func (Codec) Extensions() []string {
	return []string{".wav", ".wave"}
}

func (Codec) Decode(
	ctx context.Context,
	r io.Reader,
	targetRate audio.SampleRate,
) (audio.Signal, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return audio.Signal{}, fmt.Errorf("the WAV decoder requires an io.ReadSeeker, got %T", r)
	}
	format, err := sampleFormat(rs)
	if err != nil {
		return audio.Signal{}, err
	}
	if format != formatPCM {
		return audio.Signal{}, &audio.ValidationError{Op: "wav", Err: fmt.Errorf("%w: WAV sample format %d (only integer PCM is supported)", audio.ErrUnsupportedFormat, format)}
	}

	decoder := wav.NewDecoder(rs)
	if !decoder.IsValidFile() {
		return audio.Signal{}, &audio.ValidationError{Op: "wav", Err: fmt.Errorf("%w: not a valid WAV file", audio.ErrUnsupportedFormat)}
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return audio.Signal{}, fmt.Errorf("unable to read the PCM buffer: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return audio.Signal{}, &audio.ValidationError{Op: "wav", Err: fmt.Errorf("%w: missing format", audio.ErrUnsupportedFormat)}
	}

	data := buf.Data
	bitDepth := int(buf.SourceBitDepth)
	if bitDepth == 8 {
		// 8-bit WAV samples are unsigned
		data = make([]int, len(buf.Data))
		for idx, v := range buf.Data {
			data[idx] = v - 128
		}
	}
	interleaved, err := pcm.Normalize(data, bitDepth)
	if err != nil {
		return audio.Signal{}, err
	}
	return pcm.FromInterleaved(
		interleaved,
		audio.Channel(buf.Format.NumChannels),
		audio.SampleRate(buf.Format.SampleRate),
		targetRate,
	)
}

// Encode writes a mono 16-bit PCM file; samples are clipped to [-1, 1].
func (Codec) Encode(
	ctx context.Context,
	w io.WriteSeeker,
	sig audio.Signal,
) (_err error) {
	data, err := pcm.Quantize(sig.Samples, OutputBitDepth)
	if err != nil {
		return err
	}

	encoder := wav.NewEncoder(w, int(sig.SampleRate), OutputBitDepth, 1, formatPCM)
	defer func() {
		if err := encoder.Close(); err != nil && _err == nil {
			_err = fmt.Errorf("unable to finalize the WAV file: %w", err)
		}
	}()

	err = encoder.Write(&goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  int(sig.SampleRate),
		},
		Data:           data,
		SourceBitDepth: OutputBitDepth,
	})
	if err != nil {
		return fmt.Errorf("unable to write samples: %w", err)
	}
	return nil
}
