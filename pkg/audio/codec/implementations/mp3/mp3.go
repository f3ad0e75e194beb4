// Package mp3 decodes MPEG-1/2 Layer III files.
package mp3

import (
	"context"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
	"github.com/xaionaro-go/speechdenoise/pkg/audio/codec"
	"github.com/xaionaro-go/speechdenoise/pkg/audio/pcm"
)

const (
	Priority = 50
)

func init() {
	codec.RegisterDecoder(Priority, Decoder{})
}

type Decoder struct{}

var _ codec.Decoder = Decoder{}

func (Decoder) String() string {
	return "mp3"
}

func (Decoder) Extensions() []string {
	return []string{".mp3"}
}

// Decode uses the decoder's native output, which is always interleaved
// stereo signed 16-bit little endian.
func (Decoder) Decode(
	ctx context.Context,
	r io.Reader,
	targetRate audio.SampleRate,
) (audio.Signal, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return audio.Signal{}, fmt.Errorf("unable to initialize an MP3 decoder: %w", err)
	}
	raw, err := io.ReadAll(decoder)
	if err != nil {
		return audio.Signal{}, fmt.Errorf("unable to decode MP3 frames: %w", err)
	}
	return pcm.Decode(pcm.Format{
		Channels:   2,
		SampleRate: audio.SampleRate(decoder.SampleRate()),
		PCMFormat:  audio.PCMFormatS16LE,
	}, raw, targetRate)
}
