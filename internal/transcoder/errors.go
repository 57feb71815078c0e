package transcoder

import (
	"context"
	"errors"
)

// Error classes. Use errors.Is to test the class of a conversion error.
var (
	// ErrDecode means the source bytes could not be read by the platform decoder.
	ErrDecode = errors.New("decode error")
	// ErrCapability means no capture codec could be negotiated.
	ErrCapability = errors.New("capability error")
	// ErrPlayback means playback could not start or failed midway.
	ErrPlayback = errors.New("playback error")
	// ErrCapture means the capture sink failed or produced no data.
	ErrCapture = errors.New("capture error")

	// ErrUnsupportedFormat is returned for output tokens that are neither
	// audio nor video.
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// Error is a classified conversion failure with a message suitable for
// showing to the user.
type Error struct {
	Class   error
	Message string
	Err     error
}

func newError(class error, message string, cause error) *Error {
	return &Error{Class: class, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Is matches the error class.
func (e *Error) Is(target error) bool {
	return target == e.Class
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClassName returns a short label for the class of err, used for metrics
// and API responses.
func ClassName(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrCapability):
		return "capability"
	case errors.Is(err, ErrPlayback):
		return "playback"
	case errors.Is(err, ErrCapture):
		return "capture"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
