// Package vorbis decodes Ogg Vorbis files.
package vorbis

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"github.com/xaionaro-go/speechdenoise/pkg/audio/codec"
	"github.com/xaionaro-go/speechdenoise/pkg/audio/pcm"
)

const (
	Priority = 50

	readChunkSize = 4096
)

func init() {
	codec.RegisterDecoder(Priority, Decoder{})
}

type Decoder struct{}

var _ codec.Decoder = Decoder{}

func (Decoder) String() string {
	return "vorbis"
}

func (Decoder) Extensions() []string {
	return []string{".ogg", ".oga"}
}

func (Decoder) Decode(
	ctx context.Context,
	r io.Reader,
	targetRate audio.SampleRate,
) (audio.Signal, error) {
	oggReader, err := oggvorbis.NewReader(r)
	if err != nil {
		return audio.Signal{}, fmt.Errorf("unable to initialize a vorbis reader: %w", err)
	}
	channels := oggReader.Channels()
	if channels <= 0 {
		return audio.Signal{}, &audio.ValidationError{Op: "vorbis", Err: fmt.Errorf("%w: %d channels", audio.ErrUnsupportedFormat, channels)}
	}

	var interleaved []float64
	buf := make([]float32, readChunkSize*channels)
	for {
		n, err := oggReader.Read(buf)
		for _, v := range buf[:n] {
			interleaved = append(interleaved, float64(v))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return audio.Signal{}, fmt.Errorf("unable to read vorbis samples: %w", err)
		}
	}

	return pcm.FromInterleaved(
		interleaved,
		audio.Channel(channels),
		audio.SampleRate(oggReader.SampleRate()),
		targetRate,
	)
}
