package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"media-converter/internal/capture"
	"media-converter/internal/codec"
)

// errRecorderClosed ends the chunk loop when the recorder is closed.
var errRecorderClosed = errors.New("recorder closed")

// NewRecorder prepares an ffmpeg encoder for raw input of the given format.
// The process is spawned by Start.
func (p *Platform) NewRecorder(ctx context.Context, format capture.StreamFormat, sig codec.Signature) (capture.Recorder, error) {
	caps, err := p.Capabilities(ctx)
	if err != nil {
		return nil, err
	}
	args, err := recorderArgs(caps, format, sig, p.cfg.Threads)
	if err != nil {
		return nil, err
	}
	return &recorder{
		p:      p,
		ctx:    ctx,
		label:  fmt.Sprintf("record:%s", format.Kind),
		args:   args,
		events: make(chan capture.Event, 16),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// recorderArgs builds the ffmpeg command line that reads format on stdin
// and writes sig's container to stdout.
func recorderArgs(caps *Capabilities, format capture.StreamFormat, sig codec.Signature, threads int) ([]string, error) {
	muxer := containerMuxers[sig.Container]
	if muxer == "" || !caps.Muxers[muxer] {
		return nil, fmt.Errorf("no muxer for %s", sig.MIME)
	}
	name := selectCodec(format.Kind, sig)
	encoder := caps.encoderFor(name)
	if encoder == "" {
		return nil, fmt.Errorf("no %s encoder for %s", format.Kind, sig.MIME)
	}

	args := []string{"-hide_banner", "-loglevel", "error"}
	switch format.Kind {
	case codec.KindAudio:
		if format.SampleRate <= 0 || format.Channels <= 0 {
			return nil, fmt.Errorf("invalid audio input %dHz %dch", format.SampleRate, format.Channels)
		}
		args = append(args,
			"-f", "f32le",
			"-ar", strconv.Itoa(format.SampleRate),
			"-ac", strconv.Itoa(format.Channels),
			"-i", "pipe:0",
			"-vn",
			"-c:a", encoder,
		)
		if sig.BitsPerSecond > 0 {
			args = append(args, "-b:a", strconv.Itoa(sig.BitsPerSecond))
		}
	case codec.KindVideo:
		if format.Width <= 0 || format.Height <= 0 {
			return nil, fmt.Errorf("invalid video input %dx%d", format.Width, format.Height)
		}
		fps := format.FrameRate
		if fps <= 0 {
			fps = 30
		}
		args = append(args,
			"-f", "rawvideo",
			"-pix_fmt", "rgba",
			"-s", fmt.Sprintf("%dx%d", format.Width, format.Height),
			"-r", strconv.Itoa(fps),
			"-i", "pipe:0",
			"-an",
			"-c:v", encoder,
			"-pix_fmt", "yuv420p",
		)
		if sig.BitsPerSecond > 0 {
			args = append(args, "-b:v", strconv.Itoa(sig.BitsPerSecond))
		}
		if name == "vp8" || name == "vp9" {
			args = append(args, "-deadline", "realtime", "-cpu-used", "8")
		}
		if muxer == "mp4" || muxer == "mov" {
			args = append(args, "-movflags", "frag_keyframe+empty_moov")
		}
	default:
		return nil, fmt.Errorf("unknown capture kind %q", format.Kind)
	}
	if threads > 0 {
		args = append(args, "-threads", strconv.Itoa(threads))
	}
	return append(args, "-f", muxer, "pipe:1"), nil
}

// recorder encodes raw input written to ffmpeg's stdin and emits the
// encoded stdout in timeslice chunks.
type recorder struct {
	p      *Platform
	ctx    context.Context
	label  string
	args   []string
	events chan capture.Event

	mu       sync.Mutex
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	started  bool
	stopping bool
	stderr   bytes.Buffer

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (r *recorder) Start(timeslice time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return errors.New("recorder already started")
	}

	cmd := exec.CommandContext(r.ctx, r.p.cfg.FFmpegPath, r.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	cmd.Stderr = &lockedWriter{mu: &r.mu, buf: &r.stderr}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	untrack := r.p.track(r.label, cmd)
	r.p.log.Debug("recorder started: ffmpeg %s", strings.Join(r.args, " "))

	r.cmd = cmd
	r.stdin = stdin
	r.started = true
	go r.run(cmd, stdout, timeslice, untrack)
	return nil
}

func (r *recorder) run(cmd *exec.Cmd, stdout io.Reader, timeslice time.Duration, untrack func()) {
	defer close(r.done)
	defer untrack()

	chunkErr := chunk(stdout, timeslice, r.quit, func(b []byte) bool {
		return r.emit(capture.Event{Type: capture.EventData, Data: b})
	})
	waitErr := cmd.Wait()

	if errors.Is(chunkErr, errRecorderClosed) {
		return
	}
	err := chunkErr
	if err == nil && waitErr != nil {
		r.mu.Lock()
		msg := strings.TrimSpace(r.stderr.String())
		r.mu.Unlock()
		err = fmt.Errorf("ffmpeg encode error: %w - %s", waitErr, msg)
	}
	if err != nil {
		r.emit(capture.Event{Type: capture.EventError, Err: err})
		return
	}
	r.emit(capture.Event{Type: capture.EventStopped})
}

// emit delivers ev unless the recorder is closed.
func (r *recorder) emit(ev capture.Event) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.quit:
		return false
	}
}

func (r *recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	stdin, writable := r.stdin, r.started && !r.stopping
	r.mu.Unlock()
	if !writable {
		return 0, errors.New("recorder is not accepting input")
	}
	return stdin.Write(p)
}

// Stop closes stdin so ffmpeg flushes and exits.
func (r *recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started || r.stopping {
		return nil
	}
	r.stopping = true
	return r.stdin.Close()
}

func (r *recorder) Events() <-chan capture.Event { return r.events }

// Close kills ffmpeg if it is still running and waits for it to exit.
func (r *recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.quit)
		r.mu.Lock()
		started, cmd := r.started, r.cmd
		r.mu.Unlock()
		if !started {
			return
		}
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-r.done
	})
	return nil
}

// chunk reads src and calls emit with everything read during each
// timeslice, then once more with the remainder at EOF. It stops early
// when quit is closed or emit returns false.
func chunk(src io.Reader, timeslice time.Duration, quit <-chan struct{}, emit func([]byte) bool) error {
	reads := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(reads)
		buf := make([]byte, 64*1024)
		for {
			n, err := src.Read(buf)
			if n > 0 {
				select {
				case reads <- append([]byte(nil), buf[:n]...):
				case <-quit:
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(timeslice)
	defer ticker.Stop()

	var pending []byte
	for {
		select {
		case b, ok := <-reads:
			if !ok {
				if len(pending) > 0 && !emit(pending) {
					return errRecorderClosed
				}
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			pending = append(pending, b...)
		case <-ticker.C:
			if len(pending) == 0 {
				continue
			}
			if !emit(pending) {
				return errRecorderClosed
			}
			pending = nil
		case <-quit:
			return errRecorderClosed
		}
	}
}

// lockedWriter serializes stderr writes with the recorder state.
type lockedWriter struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}
