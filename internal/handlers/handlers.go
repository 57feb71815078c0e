package handlers

import (
	"context"
	"time"

	"media-converter/internal/database"
	"media-converter/internal/formats"
)

// JobQueue is the part of jobs.Queue the API uses.
type JobQueue interface {
	Submit(ctx context.Context, name, mime string, data []byte, target formats.Format) (*database.Job, error)
	Retry(ctx context.Context, id string) (*database.Job, error)
	Remove(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*database.Job, error)
	List(ctx context.Context, limit int) ([]*database.Job, error)
	Queued() int
}

// Pinger checks that the job store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds handler limits.
type Config struct {
	// MaxUploadBytes bounds the multipart request body.
	MaxUploadBytes int64
	// EncoderReady reports whether ffmpeg was found at startup. Optional.
	EncoderReady func() bool
}

// Handlers serves the HTTP API.
type Handlers struct {
	queue   JobQueue
	db      Pinger
	config  Config
	started time.Time
}

// New creates the API handlers.
func New(queue JobQueue, db Pinger, config Config) *Handlers {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 512 << 20
	}
	return &Handlers{
		queue:   queue,
		db:      db,
		config:  config,
		started: time.Now(),
	}
}
