package transcoder

import (
	"context"
	"image"
	"time"

	"media-converter/internal/capture"
	"media-converter/internal/codec"
	"media-converter/internal/pcm"
)

// Source is the input of one conversion. It is not modified.
type Source struct {
	Name string
	MIME string
	Data []byte
}

// Blob is the encoded output of a conversion.
type Blob struct {
	MIME string
	Data []byte
	// Poster is a JPEG thumbnail of the last rendered frame (video only).
	Poster []byte
}

// Callbacks observe a conversion. Both are optional. OnProgress receives
// non-decreasing values and ends with 100 on success.
type Callbacks struct {
	OnProgress func(percent int)
	OnStatus   func(message string)
}

// VideoMetadata is what is known about a video before the first frame.
type VideoMetadata struct {
	Width     int
	Height    int
	Duration  time.Duration
	FrameRate float64
}

// VideoSource is a playable decoded video. Frames are not retained: Frame
// returns the currently presentable one.
type VideoSource interface {
	Metadata() VideoMetadata
	// Play starts playback. An error means playback never started.
	Play(ctx context.Context) error
	Frame() (image.Image, bool)
	Position() time.Duration
	// Ended is closed when playback reaches its natural end.
	Ended() <-chan struct{}
	// Errors delivers mid-playback faults.
	Errors() <-chan error
	Close() error
}

// Platform supplies the host decode and capture primitives.
type Platform interface {
	codec.Support
	DecodeAudio(ctx context.Context, src Source) (*pcm.Buffer, error)
	OpenVideo(ctx context.Context, src Source) (VideoSource, error)
	NewRecorder(ctx context.Context, format capture.StreamFormat, sig codec.Signature) (capture.Recorder, error)
}
