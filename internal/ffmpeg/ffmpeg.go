package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/workers"
)

// capabilitiesTimeout bounds one encoder and muxer listing.
const capabilitiesTimeout = 15 * time.Second

// Config locates the binaries and the staging directory.
type Config struct {
	FFmpegPath  string
	FFprobePath string
	// WorkDir holds staged sources; empty means os.TempDir().
	WorkDir string
	// Threads is the encoder thread count; 0 derives it from the CPU quota.
	Threads int
}

// Platform runs decode, playback and capture through ffmpeg processes.
type Platform struct {
	cfg Config
	log *logging.Logger

	capsMu sync.Mutex
	caps   *Capabilities

	processes map[string]*exec.Cmd
	processMu sync.Mutex
	nextID    int
}

// New creates a Platform. Empty binary paths resolve through PATH.
func New(cfg Config) *Platform {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if cfg.Threads <= 0 {
		cfg.Threads = workers.ForEncoder()
	}
	return &Platform{
		cfg:       cfg,
		log:       logging.With("ffmpeg"),
		processes: make(map[string]*exec.Cmd),
	}
}

// Threads returns the encoder thread count.
func (p *Platform) Threads() int {
	return p.cfg.Threads
}

// Capabilities lists the encoders and muxers of the ffmpeg binary. A
// successful listing is kept for the life of the Platform; a failed one is
// retried on the next call. The listing runs under its own timeout and is
// not cut short by ctx cancellation.
func (p *Platform) Capabilities(ctx context.Context) (*Capabilities, error) {
	p.capsMu.Lock()
	defer p.capsMu.Unlock()
	if p.caps != nil {
		return p.caps, nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), capabilitiesTimeout)
	defer cancel()

	encoders, err := p.output(ctx, "-hide_banner", "-encoders")
	if err != nil {
		return nil, fmt.Errorf("failed to list encoders: %w", err)
	}
	muxers, err := p.output(ctx, "-hide_banner", "-muxers")
	if err != nil {
		return nil, fmt.Errorf("failed to list muxers: %w", err)
	}
	p.caps = &Capabilities{
		Encoders: ParseEncoders(string(encoders)),
		Muxers:   ParseMuxers(string(muxers)),
	}
	p.log.Info("ffmpeg offers %d encoders and %d muxers", len(p.caps.Encoders), len(p.caps.Muxers))
	return p.caps, nil
}

// IsTypeSupported reports whether a capture MIME type can be encoded.
func (p *Platform) IsTypeSupported(mime string) bool {
	caps, err := p.Capabilities(context.Background())
	if err != nil {
		p.log.Warn("capability check failed: %v", err)
		return false
	}
	return caps.Supports(mime)
}

// Version returns the first line of `ffmpeg -version`.
func (p *Platform) Version(ctx context.Context) (string, error) {
	out, err := p.output(ctx, "-version")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

// output runs ffmpeg to completion and returns stdout.
func (p *Platform) output(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, p.cfg.FFmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w - %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// track registers a started process for Cleanup and returns its
// deregistration.
func (p *Platform) track(label string, cmd *exec.Cmd) func() {
	p.processMu.Lock()
	p.nextID++
	key := fmt.Sprintf("%s#%d", label, p.nextID)
	p.processes[key] = cmd
	p.processMu.Unlock()

	return func() {
		p.processMu.Lock()
		delete(p.processes, key)
		p.processMu.Unlock()
	}
}

// Active returns the number of running ffmpeg processes.
func (p *Platform) Active() int {
	p.processMu.Lock()
	defer p.processMu.Unlock()
	return len(p.processes)
}

// Cleanup kills all running ffmpeg processes.
func (p *Platform) Cleanup() {
	p.processMu.Lock()
	defer p.processMu.Unlock()

	for key, cmd := range p.processes {
		if cmd.Process != nil {
			p.log.Info("Killing ffmpeg process %s", key)
			if err := cmd.Process.Kill(); err != nil {
				p.log.Warn("failed to kill ffmpeg process %s: %v", key, err)
			}
		}
	}
}

// stage writes data to a temporary file named after name's extension and
// returns its path and a release that removes it exactly once.
func (p *Platform) stage(name string, data []byte) (string, func() error, error) {
	f, err := os.CreateTemp(p.cfg.WorkDir, "convert-*"+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return "", nil, fmt.Errorf("failed to stage source: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", nil, fmt.Errorf("failed to stage source: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, fmt.Errorf("failed to stage source: %w", err)
	}

	var once sync.Once
	var removeErr error
	release := func() error {
		once.Do(func() {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				removeErr = err
			}
		})
		return removeErr
	}
	return path, release, nil
}
