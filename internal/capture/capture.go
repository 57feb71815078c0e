package capture

import (
	"io"
	"time"

	"media-converter/internal/codec"
)

// EventType discriminates recorder events.
type EventType int

const (
	// EventData carries an encoded chunk.
	EventData EventType = iota
	// EventError reports a sink failure.
	EventError
	// EventStopped is sent once after Stop has flushed all data.
	EventStopped
)

func (t EventType) String() string {
	switch t {
	case EventData:
		return "data"
	case EventError:
		return "error"
	case EventStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Event is emitted by a Recorder.
type Event struct {
	Type EventType
	Data []byte
	Err  error
}

// StreamFormat describes the raw input a Recorder consumes. Audio is
// interleaved float32 little-endian PCM; video is packed RGBA frames.
type StreamFormat struct {
	Kind       codec.Kind
	SampleRate int
	Channels   int
	Width      int
	Height     int
	FrameRate  int
}

// FrameSize returns the byte size of one raw video frame.
func (f StreamFormat) FrameSize() int {
	return f.Width * f.Height * 4
}

// Recorder is a capture sink. Writes deliver raw input; encoded output
// arrives on Events. After Stop the recorder flushes, emits any remaining
// data and then exactly one EventStopped (or EventError). Close releases
// the underlying resources and may be called in any state. Start and Stop
// must not block on event delivery.
type Recorder interface {
	io.Writer
	Start(timeslice time.Duration) error
	Stop() error
	Events() <-chan Event
	Close() error
}
