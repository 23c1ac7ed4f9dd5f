package texture

import (
	"errors"
	"fmt"
)

// ErrReleased is returned when a handle is released more than once.
var ErrReleased = errors.New("texture: image already released")

// DecodeError reports a file that could not be turned into pixels: missing,
// malformed, or using a variant of the format that is not supported.
type DecodeError struct {
	Path string
	// Pixel is the index of the offending pixel, or -1 when the failure is
	// not tied to one.
	Pixel  int
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "texture: decode"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Pixel >= 0 {
		msg += fmt.Sprintf(" at pixel %d", e.Pixel)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ResourceError reports a GPU allocation failure during upload.
type ResourceError struct {
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("texture: upload %s: %v", e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

func headerError(reason string, args ...any) *DecodeError {
	return &DecodeError{Pixel: -1, Reason: fmt.Sprintf(reason, args...)}
}
