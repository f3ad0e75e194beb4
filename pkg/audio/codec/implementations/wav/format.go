package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/riff"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
)

const (
	formatFloat = 3

	// fmt chunk offsets of WAVE_FORMAT_EXTENSIBLE
	extensibleChunkSize = 40
	subFormatOffset     = 24
)

// guidSuffix is the tail shared by the KSDATAFORMAT_SUBTYPE_* GUIDs whose
// first two bytes carry a plain format code.
var guidSuffix = []byte{
	0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00,
	0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71,
}

// sampleFormat returns the effective format code of the file: the
// format tag itself, or the sub-format of an extensible file.
// The reader is rewound to the start afterwards.
func sampleFormat(rs io.ReadSeeker) (_ret uint16, _err error) {
	defer func() {
		if _, err := rs.Seek(0, io.SeekStart); err != nil && _err == nil {
			_err = fmt.Errorf("unable to rewind: %w", err)
		}
	}()

	parser := riff.New(rs)
	if err := parser.ParseHeaders(); err != nil {
		return 0, &audio.ValidationError{Op: "wav", Err: fmt.Errorf("%w: %v", audio.ErrUnsupportedFormat, err)}
	}
	if parser.Format != riff.WavFormatID {
		return 0, &audio.ValidationError{Op: "wav", Err: fmt.Errorf("%w: RIFF form %q", audio.ErrUnsupportedFormat, parser.Format[:])}
	}

	for {
		chunk, err := parser.NextChunk()
		if err != nil {
			return 0, &audio.ValidationError{Op: "wav", Err: fmt.Errorf("%w: no fmt chunk: %v", audio.ErrUnsupportedFormat, err)}
		}
		if chunk.ID != riff.FmtID {
			chunk.Drain()
			continue
		}

		body := make([]byte, chunk.Size)
		if _, err := io.ReadFull(chunk, body); err != nil {
			return 0, &audio.ValidationError{Op: "wav", Err: fmt.Errorf("%w: truncated fmt chunk: %v", audio.ErrUnsupportedFormat, err)}
		}
		if len(body) < 2 {
			return 0, &audio.ValidationError{Op: "wav", Err: fmt.Errorf("%w: fmt chunk of %d bytes", audio.ErrUnsupportedFormat, len(body))}
		}
		tag := binary.LittleEndian.Uint16(body)
		if tag != formatExtensible {
			return tag, nil
		}

		if len(body) < extensibleChunkSize {
			return 0, &audio.ValidationError{Op: "wav", Err: fmt.Errorf("%w: extensible fmt chunk of %d bytes", audio.ErrUnsupportedFormat, len(body))}
		}
		guid := body[subFormatOffset : subFormatOffset+16]
		if !bytes.Equal(guid[2:], guidSuffix) {
			return 0, &audio.ValidationError{Op: "wav", Err: fmt.Errorf("%w: sub-format %X", audio.ErrUnsupportedFormat, guid)}
		}
		return binary.LittleEndian.Uint16(guid), nil
	}
}
