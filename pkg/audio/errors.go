package audio

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySignal       = errors.New("empty signal")
	ErrNonPositiveSize   = errors.New("size must be positive")
	ErrHopExceedsFrame   = errors.New("hop size exceeds frame size")
	ErrShapeMismatch     = errors.New("shape mismatch")
	ErrFeatureMismatch   = errors.New("feature width mismatch")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// ValidationError reports malformed input. It is never corrected silently:
// whoever receives it is expected to fix the input.
type ValidationError struct {
	Op  string
	Err error
}

var _ error = (*ValidationError)(nil)

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid input: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError returns true if the error chain contains a ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
