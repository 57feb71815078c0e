package transcoder

import (
	"context"
	"fmt"
	"time"

	"media-converter/internal/codec"
	"media-converter/internal/formats"
	"media-converter/internal/logging"
	"media-converter/internal/pcm"
	"media-converter/internal/progress"
)

// Status messages delivered through Callbacks.OnStatus.
const (
	StatusDecodingAudio   = "Decoding audio…"
	StatusEncoding        = "Encoding…"
	StatusConvertingVideo = "Converting video…"
	StatusFinalizing      = "Finalizing…"
)

// Config holds the timing and capture constants of the pipelines.
type Config struct {
	// AudioTimeslice is how often the audio recorder emits chunks.
	AudioTimeslice time.Duration
	// AudioProgressInterval is the progress timer period during capture.
	AudioProgressInterval time.Duration
	// AudioGraceDelay separates playback end from the stop request.
	AudioGraceDelay time.Duration

	// VideoTimeslice is how often the video recorder emits chunks.
	VideoTimeslice time.Duration
	// VideoGraceDelay separates playback end from the stop request.
	VideoGraceDelay time.Duration
	// VideoFrameRate is the capture rate of the rendering surface.
	VideoFrameRate int
	// VideoBitrate is the bitrate hint passed with the signature.
	VideoBitrate int
	// PumpInterval is the frame pump tick (animation frame) period.
	PumpInterval time.Duration
	// DefaultWidth and DefaultHeight size the surface when the source
	// reports no dimensions.
	DefaultWidth  int
	DefaultHeight int
	// PosterSize bounds the poster thumbnail (0 disables posters).
	PosterSize int

	AudioCandidates []codec.Signature
	VideoCandidates []codec.Signature
}

// DefaultConfig returns the standard pipeline constants.
func DefaultConfig() Config {
	return Config{
		AudioTimeslice:        250 * time.Millisecond,
		AudioProgressInterval: 250 * time.Millisecond,
		AudioGraceDelay:       150 * time.Millisecond,
		VideoTimeslice:        100 * time.Millisecond,
		VideoGraceDelay:       400 * time.Millisecond,
		VideoFrameRate:        30,
		VideoBitrate:          4_000_000,
		PumpInterval:          time.Second / 60,
		DefaultWidth:          640,
		DefaultHeight:         360,
		PosterSize:            320,
		AudioCandidates:       codec.AudioCandidates,
		VideoCandidates:       codec.VideoCandidates,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AudioTimeslice <= 0 {
		c.AudioTimeslice = d.AudioTimeslice
	}
	if c.AudioProgressInterval <= 0 {
		c.AudioProgressInterval = d.AudioProgressInterval
	}
	if c.VideoTimeslice <= 0 {
		c.VideoTimeslice = d.VideoTimeslice
	}
	if c.VideoFrameRate <= 0 {
		c.VideoFrameRate = d.VideoFrameRate
	}
	if c.PumpInterval <= 0 {
		c.PumpInterval = d.PumpInterval
	}
	if c.DefaultWidth <= 0 || c.DefaultHeight <= 0 {
		c.DefaultWidth, c.DefaultHeight = d.DefaultWidth, d.DefaultHeight
	}
	if c.AudioCandidates == nil {
		c.AudioCandidates = d.AudioCandidates
	}
	if c.VideoCandidates == nil {
		c.VideoCandidates = d.VideoCandidates
	}
	return c
}

// Option customizes a Transcoder.
type Option func(*Transcoder)

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(t *Transcoder) { t.scheduler = s }
}

// WithSurfaceHost replaces the surface host.
func WithSurfaceHost(h *SurfaceHost) Option {
	return func(t *Transcoder) { t.surfaces = h }
}

// Transcoder runs audio and video conversions against a Platform.
type Transcoder struct {
	platform   Platform
	negotiator codec.Negotiator
	config     Config
	scheduler  Scheduler
	surfaces   *SurfaceHost
	log        *logging.Logger
}

// New creates a Transcoder. Zero-valued Config fields take their defaults.
func New(platform Platform, config Config, opts ...Option) *Transcoder {
	t := &Transcoder{
		platform:   platform,
		negotiator: codec.NewNegotiator(platform),
		config:     config.withDefaults(),
		scheduler:  RealScheduler{},
		log:        logging.With("transcoder"),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.surfaces == nil {
		t.surfaces = NewSurfaceHost()
	}
	return t
}

// Config returns the effective configuration.
func (t *Transcoder) Config() Config {
	return t.config
}

// Surfaces returns the host that owns rendering surfaces.
func (t *Transcoder) Surfaces() *SurfaceHost {
	return t.surfaces
}

// Convert dispatches to the audio or video pipeline based on target.
func (t *Transcoder) Convert(ctx context.Context, src Source, target formats.Format, cb Callbacks) (*Blob, error) {
	switch target.Category() {
	case formats.CategoryAudio:
		return t.ConvertAudio(ctx, src, target, cb)
	case formats.CategoryVideo:
		return t.ConvertVideo(ctx, src, target, cb)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, target)
	}
}

// outputMIME is the declared MIME of target, or the capture type when the
// format has none.
func outputMIME(target formats.Format, sig codec.Signature) string {
	if m, ok := target.MIME(); ok {
		return m
	}
	return sig.MIME
}

func (t *Transcoder) packWAV(buf *pcm.Buffer, tracker *progress.Tracker) (*Blob, error) {
	data, err := pcm.EncodeWAV(buf)
	if err != nil {
		return nil, newError(ErrDecode, "the decoded audio could not be packed as WAV", err)
	}
	tracker.Complete()
	return &Blob{MIME: pcm.MIMEType, Data: data}, nil
}

func finish(kind codec.Kind, target formats.Format, start time.Time, err error) {
	if o := observe(); o != nil {
		outcome := "success"
		if err != nil {
			outcome = ClassName(err)
		}
		o.ObserveConversion(kind, string(target), outcome, time.Since(start).Seconds())
	}
}

func (t *Transcoder) negotiate(kind codec.Kind, candidates []codec.Signature) (codec.Signature, bool) {
	sig, ok := t.negotiator.Negotiate(kind, candidates)
	if o := observe(); o != nil {
		o.ObserveNegotiation(kind, ok)
	}
	return sig, ok
}

// trackSession registers the session gauge with the releaser.
func trackSession(rel *releaser, kind codec.Kind) {
	if o := observe(); o != nil {
		o.ObserveSessionStarted(kind)
	}
	rel.add("session gauge", func() error {
		if o := observe(); o != nil {
			o.ObserveSessionClosed(kind)
		}
		return nil
	})
}

// contextErr prefers a cancellation error over a platform error caused by it.
func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
