package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strconv"
	"time"

	"media-converter/internal/filesystem"
	"media-converter/internal/logging"
)

var (
	// ErrWriteTimeout means a single chunk could not be written within
	// WriteTimeout.
	ErrWriteTimeout = errors.New("write timeout exceeded")
	// ErrClientGone means the request context ended before the copy did.
	ErrClientGone = errors.New("client disconnected")
)

// Config controls chunking and deadlines.
type Config struct {
	// WriteTimeout bounds each chunk write (0 disables deadlines).
	WriteTimeout time.Duration
	// ChunkSize is the largest single write to the connection.
	ChunkSize int
	// OnProgress is called after each chunk with the running total.
	OnProgress func(written int64)
}

// DefaultConfig returns a 30s per-chunk deadline and 64KB chunks.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		ChunkSize:    64 * 1024,
	}
}

// Writer writes to an http.ResponseWriter in chunks under a rolling write
// deadline. It is not safe for concurrent use.
type Writer struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	ctx     context.Context
	cfg     Config
	start   time.Time
	written int64
}

// NewWriter wraps w. ctx is normally the request context.
func NewWriter(ctx context.Context, w http.ResponseWriter, cfg Config) *Writer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	return &Writer{
		w:     w,
		rc:    http.NewResponseController(w),
		ctx:   ctx,
		cfg:   cfg,
		start: time.Now(),
	}
}

// Write implements io.Writer.
func (sw *Writer) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		if sw.ctx.Err() != nil {
			return total, ErrClientGone
		}

		n := min(len(p), sw.cfg.ChunkSize)
		if sw.cfg.WriteTimeout > 0 {
			err := sw.rc.SetWriteDeadline(time.Now().Add(sw.cfg.WriteTimeout))
			if err != nil && !errors.Is(err, http.ErrNotSupported) {
				return total, err
			}
		}

		m, err := sw.w.Write(p[:n])
		total += m
		sw.written += int64(m)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return total, ErrWriteTimeout
			}
			return total, err
		}
		if err := sw.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return total, err
		}
		if sw.cfg.OnProgress != nil {
			sw.cfg.OnProgress(sw.written)
		}
		p = p[n:]
	}
	return total, nil
}

// Stats returns the bytes written and the time since the writer was created.
func (sw *Writer) Stats() (int64, time.Duration) {
	return sw.written, time.Since(sw.start)
}

// SetAttachment sets the download headers for a response body of size bytes
// (negative for unknown).
func SetAttachment(w http.ResponseWriter, name, contentType string, size int64) {
	h := w.Header()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	h.Set("X-Content-Type-Options", "nosniff")
	if size >= 0 {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if name != "" {
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}
}

// Copy streams r to w through a Writer.
func Copy(ctx context.Context, w http.ResponseWriter, r io.Reader, cfg Config) error {
	sw := NewWriter(ctx, w, cfg)
	_, err := io.Copy(sw, r)

	written, elapsed := sw.Stats()
	logging.Debug("Stream completed: %d bytes in %v", written, elapsed)
	return err
}

// ServeFile sends the file at path as an attachment named name.
func ServeFile(ctx context.Context, w http.ResponseWriter, path, name, contentType string, cfg Config) error {
	f, err := filesystem.Open(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logging.Warn("Failed to close %s: %v", path, cerr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	SetAttachment(w, name, contentType, info.Size())
	w.WriteHeader(http.StatusOK)
	return Copy(ctx, w, f, cfg)
}
