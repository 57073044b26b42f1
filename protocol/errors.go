package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrNeedMoreData is returned by Decode when the buffer holds only a prefix
	// of a frame. It is not a failure; callers append more bytes and retry.
	ErrNeedMoreData = errors.New("protocol: need more data")

	// ErrMalformedFrame matches every *MalformedFrameError via errors.Is.
	ErrMalformedFrame = errors.New("protocol: malformed frame")

	// ErrInvalidFrame is returned by Encode for values that have no valid
	// wire representation.
	ErrInvalidFrame = errors.New("protocol: invalid frame")
)

// MalformedFrameError describes why a frame could not be decoded. A malformed
// frame is fatal to the connection it arrived on.
type MalformedFrameError struct {
	Tag    Type
	Reason string
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("protocol: malformed %s frame: %s", e.Tag, e.Reason)
}

// Is makes errors.Is(err, ErrMalformedFrame) succeed.
func (e *MalformedFrameError) Is(target error) bool {
	return target == ErrMalformedFrame
}

func malformed(tag Type, format string, args ...any) error {
	return &MalformedFrameError{Tag: tag, Reason: fmt.Sprintf(format, args...)}
}
