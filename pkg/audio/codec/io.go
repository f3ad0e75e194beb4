package codec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/speechdenoise/pkg/audio"
)

type LoadOptions struct {
	// SampleRate to resample to; zero keeps the native rate.
	SampleRate audio.SampleRate
}

// Decode decodes the content of r, picking the decoders by the extension of
// name. Decoders are tried in the order of their priority until one succeeds.
func Decode(
	ctx context.Context,
	name string,
	r io.Reader,
	opts LoadOptions,
) (_ret audio.Signal, _err error) {
	logger.Tracef(ctx, "Decode(%s)", name)
	defer func() { logger.Tracef(ctx, "/Decode(%s): %v", name, _err) }()

	ext := filepath.Ext(name)
	if ext == "" {
		return audio.Signal{}, &audio.ValidationError{Op: "decode", Err: fmt.Errorf("%w: no file extension in '%s'", audio.ErrUnsupportedFormat, name)}
	}
	decoders := Decoders(ext)
	if len(decoders) == 0 {
		return audio.Signal{}, &audio.ValidationError{Op: "decode", Err: fmt.Errorf("%w: '%s'", audio.ErrUnsupportedFormat, ext)}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return audio.Signal{}, fmt.Errorf("unable to read '%s': %w", name, err)
	}

	var mErr *multierror.Error
	for _, decoder := range decoders {
		sig, err := decoder.Decode(ctx, bytes.NewReader(data), opts.SampleRate)
		logger.Debugf(ctx, "decoding '%s' with %s result is %v", name, decoder, err)
		if err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("%s: %w", decoder, err))
			continue
		}
		if err := sig.Validate(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("%s: %w", decoder, err))
			continue
		}
		return sig, nil
	}
	return audio.Signal{}, fmt.Errorf("unable to decode '%s': %w", name, mErr.ErrorOrNil())
}

// Load decodes the file at path.
func Load(
	ctx context.Context,
	path string,
	opts LoadOptions,
) (audio.Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return audio.Signal{}, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer f.Close()
	return Decode(ctx, path, f, opts)
}

// Encode writes the signal in the format chosen by the extension of name.
func Encode(
	ctx context.Context,
	name string,
	w io.WriteSeeker,
	sig audio.Signal,
) (_err error) {
	logger.Tracef(ctx, "Encode(%s)", name)
	defer func() { logger.Tracef(ctx, "/Encode(%s): %v", name, _err) }()

	if err := sig.Validate(); err != nil {
		return err
	}
	encoders := Encoders(filepath.Ext(name))
	if filepath.Ext(name) == "" || len(encoders) == 0 {
		return &audio.ValidationError{Op: "encode", Err: fmt.Errorf("%w: cannot write '%s'", audio.ErrUnsupportedFormat, name)}
	}
	encoder := encoders[0]
	if err := encoder.Encode(ctx, w, sig); err != nil {
		return fmt.Errorf("unable to encode '%s' with %s: %w", name, encoder, err)
	}
	return nil
}

// Save writes the signal to the file at path; the file is removed if
// encoding fails.
func Save(
	ctx context.Context,
	path string,
	sig audio.Signal,
) (_err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create '%s': %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil && _err == nil {
			_err = fmt.Errorf("unable to close '%s': %w", path, err)
		}
		if _err != nil {
			if err := os.Remove(path); err != nil {
				logger.Errorf(ctx, "unable to remove '%s': %v", path, err)
			}
		}
	}()
	return Encode(ctx, path, f, sig)
}
