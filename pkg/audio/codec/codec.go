// Package codec loads and stores signals in audio file formats. The formats
// themselves live in implementations/ and register here on import.
package codec

import (
	"context"
	"io"

	"github.com/xaionaro-go/speechdenoise/pkg/audio"
)

type Decoder interface {
	String() string

	// Extensions returns the lower-case file extensions (with the leading
	// dot) the decoder handles.
	Extensions() []string

	// Decode reads a whole file and returns it as a mono signal, resampled
	// to targetRate unless it is zero.
	Decode(ctx context.Context, r io.Reader, targetRate audio.SampleRate) (audio.Signal, error)
}

type Encoder interface {
	String() string
	Extensions() []string
	Encode(ctx context.Context, w io.WriteSeeker, sig audio.Signal) error
}
