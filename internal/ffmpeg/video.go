package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"media-converter/internal/transcoder"
)

// ErrNoVideoStream is returned when a source has no video to play.
var ErrNoVideoStream = errors.New("no video stream found")

// Playback geometry used when the source does not report its own.
const (
	fallbackWidth     = 640
	fallbackHeight    = 360
	fallbackFrameRate = 30.0
)

// OpenVideo stages and probes src. Decoding starts on Play.
func (p *Platform) OpenVideo(ctx context.Context, src transcoder.Source) (transcoder.VideoSource, error) {
	path, unstage, err := p.stage(src.Name, src.Data)
	if err != nil {
		return nil, err
	}
	info, err := p.Probe(ctx, path)
	if err != nil {
		_ = unstage()
		return nil, err
	}
	if !info.HasVideo() {
		_ = unstage()
		return nil, ErrNoVideoStream
	}

	v := &videoSource{
		p:       p,
		name:    src.Name,
		path:    path,
		unstage: unstage,
		meta: transcoder.VideoMetadata{
			Width:     info.Width,
			Height:    info.Height,
			Duration:  info.Duration,
			FrameRate: info.FrameRate,
		},
		ended: make(chan struct{}),
		errs:  make(chan error, 1),
		done:  make(chan struct{}),
	}
	v.width, v.height = info.Width, info.Height
	if v.width <= 0 || v.height <= 0 {
		v.width, v.height = fallbackWidth, fallbackHeight
	}
	v.fps = info.FrameRate
	if v.fps <= 0 {
		v.fps = fallbackFrameRate
	}
	return v, nil
}

// videoSource decodes a staged file to RGBA frames and presents them at
// the source frame rate.
type videoSource struct {
	p       *Platform
	name    string
	path    string
	unstage func() error
	meta    transcoder.VideoMetadata
	width   int
	height  int
	fps     float64

	mu       sync.Mutex
	frame    *image.RGBA
	position time.Duration
	playing  bool
	cancel   context.CancelFunc

	ended     chan struct{}
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func (v *videoSource) Metadata() transcoder.VideoMetadata { return v.meta }

func (v *videoSource) Play(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.playing {
		return errors.New("video is already playing")
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, v.p.cfg.FFmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", v.path,
		"-an",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", v.width, v.height),
		"-r", strconv.FormatFloat(v.fps, 'f', 3, 64),
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	untrack := v.p.track("play:"+v.name, cmd)

	v.playing = true
	v.cancel = cancel
	go v.run(ctx, cmd, stdout, &stderr, untrack)
	return nil
}

func (v *videoSource) run(ctx context.Context, cmd *exec.Cmd, stdout io.Reader, stderr *bytes.Buffer, untrack func()) {
	defer close(v.done)
	defer untrack()

	interval := time.Duration(float64(time.Second) / v.fps)
	start := time.Now()
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	var readErr error
	for i := 0; ; i++ {
		img := image.NewRGBA(image.Rect(0, 0, v.width, v.height))
		if _, err := io.ReadFull(stdout, img.Pix); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				readErr = err
			}
			break
		}

		pts := time.Duration(i) * interval
		if wait := time.Until(start.Add(pts)); wait > 0 {
			timer.Reset(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				_ = cmd.Wait()
				return
			}
		}

		v.mu.Lock()
		v.frame = img
		v.position = pts
		v.mu.Unlock()
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return
	}
	if readErr == nil && waitErr != nil {
		readErr = fmt.Errorf("ffmpeg playback error: %w - %s", waitErr, strings.TrimSpace(stderr.String()))
	}
	if readErr != nil {
		v.errs <- readErr
		return
	}

	v.mu.Lock()
	if v.meta.Duration > 0 {
		v.position = v.meta.Duration
	}
	v.mu.Unlock()
	close(v.ended)
}

func (v *videoSource) Frame() (image.Image, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.frame == nil {
		return nil, false
	}
	return v.frame, true
}

func (v *videoSource) Position() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position
}

func (v *videoSource) Ended() <-chan struct{} { return v.ended }

func (v *videoSource) Errors() <-chan error { return v.errs }

// Close stops decoding and removes the staged file. Only the first call
// has an effect.
func (v *videoSource) Close() error {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		cancel, playing := v.cancel, v.playing
		v.mu.Unlock()
		if playing {
			cancel()
			<-v.done
		}
		v.closeErr = v.unstage()
	})
	return v.closeErr
}
