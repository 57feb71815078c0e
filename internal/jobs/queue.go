package jobs

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"media-converter/internal/database"
	"media-converter/internal/filesystem"
	"media-converter/internal/formats"
	"media-converter/internal/logging"
	"media-converter/internal/metrics"
	"media-converter/internal/transcoder"
)

var (
	// ErrEmptySource is returned by Submit for a zero-length upload.
	ErrEmptySource = errors.New("source file is empty")
	// ErrNotRetryable is returned by Retry for jobs that have not failed.
	ErrNotRetryable = errors.New("only failed jobs can be retried")
	// ErrSourceUnavailable is returned by Retry when the source bytes are
	// no longer held, e.g. after a restart.
	ErrSourceUnavailable = errors.New("source is no longer available, upload the file again")
	// ErrQueueStopped is returned by Submit and Retry after Stop.
	ErrQueueStopped = errors.New("queue is stopped")
)

// Message recorded on jobs that a restart interrupted.
const interruptedMessage = "Interrupted by a restart"

// Store persists jobs. *database.Database implements it.
type Store interface {
	UpsertJob(ctx context.Context, job *database.Job) error
	GetJob(ctx context.Context, id string) (*database.Job, error)
	ListJobs(ctx context.Context, limit int) ([]*database.Job, error)
	DeleteJob(ctx context.Context, id string) error
	Stats(ctx context.Context) (database.JobStats, error)
}

// Converter performs one conversion. *transcoder.Transcoder implements it.
type Converter interface {
	Convert(ctx context.Context, src transcoder.Source, target formats.Format, cb transcoder.Callbacks) (*transcoder.Blob, error)
}

// Config configures a Queue.
type Config struct {
	// OutputDir receives converted files and posters. Created if missing.
	OutputDir string
	// Processes reports the number of running encoder processes for
	// GetStats. Optional.
	Processes func() int
	// Admit is asked before an upload is held in memory. A non-nil error
	// refuses the submission. Optional.
	Admit func(size int64) error
}

// Queue is a FIFO of conversion jobs served by a single worker.
type Queue struct {
	store     Store
	converter Converter
	outputDir string
	processes func() int
	admit     func(size int64) error
	log       *logging.Logger

	mu        sync.Mutex
	pending   []string
	sources   map[string]transcoder.Source
	held      int64
	current   string
	cancel    context.CancelFunc
	discarded bool
	stopped   bool

	wake     chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
	running  sync.WaitGroup
}

// New creates a Queue. Call Run to start the worker.
func New(store Store, converter Converter, cfg Config) (*Queue, error) {
	if cfg.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Queue{
		store:     store,
		converter: converter,
		outputDir: cfg.OutputDir,
		processes: cfg.Processes,
		admit:     cfg.Admit,
		log:       logging.With("jobs"),
		sources:   make(map[string]transcoder.Source),
		wake:      make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
	}, nil
}

// Recover marks jobs left pending or processing by a previous run as
// failed and returns how many were changed.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	jobs, err := q.store.ListJobs(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to load job history: %w", err)
	}
	n := 0
	for _, job := range jobs {
		if job.Status != database.StatusPending && job.Status != database.StatusProcessing {
			continue
		}
		job.Status = database.StatusError
		job.Message = interruptedMessage
		job.ErrorClass = "interrupted"
		if err := q.store.UpsertJob(ctx, job); err != nil {
			return n, fmt.Errorf("failed to update job %s: %w", job.ID, err)
		}
		n++
	}
	if n > 0 {
		q.log.Info("Marked %d interrupted jobs as failed", n)
	}
	return n, nil
}

// Fingerprint returns the hex BLAKE2b-256 digest of data.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Submit records a new job for data and queues it. An empty or generic
// mime is replaced by the sniffed content type.
func (q *Queue) Submit(ctx context.Context, name, mime string, data []byte, target formats.Format) (*database.Job, error) {
	if target.Category() == formats.CategoryOther {
		return nil, fmt.Errorf("%w: %q", transcoder.ErrUnsupportedFormat, target)
	}
	if len(data) == 0 {
		return nil, ErrEmptySource
	}
	if mime == "" || mime == "application/octet-stream" {
		mime = formats.Sniff(data)
	}
	if q.admit != nil {
		if err := q.admit(int64(len(data))); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	job := &database.Job{
		ID:          uuid.NewString(),
		Name:        filepath.Base(name),
		SourceMIME:  mime,
		SourceSize:  int64(len(data)),
		Fingerprint: Fingerprint(data),
		Format:      string(target),
		Status:      database.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return nil, ErrQueueStopped
	}
	if err := q.store.UpsertJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to record job: %w", err)
	}
	q.holdLocked(job.ID, transcoder.Source{Name: job.Name, MIME: mime, Data: data})
	q.enqueueLocked(job.ID)
	metrics.JobsSubmittedTotal.Inc()

	q.log.Info("Queued %s (%s, %d bytes) as %s, job %s", job.Name, mime, len(data), target, job.ID)
	decorate(job)
	return job, nil
}

// Retry resets a failed job to pending with zero progress and queues it
// again.
func (q *Queue) Retry(ctx context.Context, id string) (*database.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return nil, ErrQueueStopped
	}

	job, err := q.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != database.StatusError {
		return nil, ErrNotRetryable
	}
	if _, ok := q.sources[id]; !ok {
		return nil, ErrSourceUnavailable
	}

	job.Status = database.StatusPending
	job.Progress = 0
	job.Message = ""
	job.ErrorClass = ""
	if err := q.store.UpsertJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to reset job: %w", err)
	}
	q.enqueueLocked(id)
	metrics.JobsRetriedTotal.Inc()

	q.log.Info("Retrying job %s (%s)", id, job.Name)
	decorate(job)
	return job, nil
}

// Remove deletes a job, its output files and its held source. A job that
// is being converted is canceled first.
func (q *Queue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	if q.current == id {
		q.discarded = true
		if q.cancel != nil {
			q.cancel()
		}
	}
	for i, pid := range q.pending {
		if pid == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			break
		}
	}
	q.releaseLocked(id)
	q.mu.Unlock()

	job, err := q.store.GetJob(ctx, id)
	if err != nil {
		return err
	}
	removeFiles(job.OutputPath, job.PosterPath)
	if err := q.store.DeleteJob(ctx, id); err != nil {
		return err
	}
	q.log.Info("Removed job %s (%s)", id, job.Name)
	return nil
}

// Get returns one job.
func (q *Queue) Get(ctx context.Context, id string) (*database.Job, error) {
	job, err := q.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	decorate(job)
	return job, nil
}

// List returns the newest jobs first. A non-positive limit returns all.
func (q *Queue) List(ctx context.Context, limit int) ([]*database.Job, error) {
	jobs, err := q.store.ListJobs(ctx, limit)
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		decorate(job)
	}
	return jobs, nil
}

// Queued returns the number of jobs waiting behind the current one.
func (q *Queue) Queued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// GetStats implements metrics.StatsProvider.
func (q *Queue) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats := metrics.Stats{Queued: q.Queued()}
	if q.processes != nil {
		stats.Processes = q.processes()
	}
	js, err := q.store.Stats(ctx)
	if err != nil {
		q.log.Warn("Failed to read job stats: %v", err)
		return stats
	}
	stats.Pending = js.Pending
	stats.Processing = js.Processing
	stats.Completed = js.Completed
	stats.Failed = js.Failed
	stats.OutputBytes = js.OutputBytes
	return stats
}

// Run serves the queue until ctx is done or Stop is called.
func (q *Queue) Run(ctx context.Context) error {
	q.running.Add(1)
	defer q.running.Done()

	q.log.Info("Worker started")
	for {
		id, ok := q.next()
		if !ok {
			select {
			case <-q.wake:
				continue
			case <-q.stopChan:
				q.log.Info("Worker stopped")
				return nil
			case <-ctx.Done():
				q.log.Info("Worker stopped")
				return nil
			}
		}
		q.process(ctx, id)
	}
}

// Stop cancels the running conversion, refuses new work and waits for the
// worker to return. Jobs still pending are left for Recover.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.stopped = true
		if q.cancel != nil {
			q.cancel()
		}
		q.mu.Unlock()
		close(q.stopChan)
	})
	q.running.Wait()
}

func (q *Queue) enqueueLocked(id string) {
	q.pending = append(q.pending, id)
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) next() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped || len(q.pending) == 0 {
		return "", false
	}
	id := q.pending[0]
	q.pending = q.pending[1:]
	q.current = id
	q.discarded = false
	return id, true
}

func (q *Queue) process(ctx context.Context, id string) {
	// Store writes outlive cancellation so the final state is recorded.
	storeCtx := context.WithoutCancel(ctx)

	job, err := q.store.GetJob(storeCtx, id)
	if err != nil {
		q.log.Error("Failed to load job %s: %v", id, err)
		q.mu.Lock()
		q.current = ""
		q.mu.Unlock()
		return
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	q.mu.Lock()
	src, ok := q.sources[id]
	q.cancel = cancel
	if q.discarded {
		cancel()
	}
	q.mu.Unlock()

	if !ok {
		job.Status = database.StatusError
		job.Message = ErrSourceUnavailable.Error()
		job.ErrorClass = "other"
		q.finish(storeCtx, job)
		return
	}

	var jobMu sync.Mutex
	update := func(fn func()) {
		jobMu.Lock()
		defer jobMu.Unlock()
		fn()
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.discarded {
			return
		}
		if err := q.store.UpsertJob(storeCtx, job); err != nil {
			q.log.Warn("Failed to record job %s: %v", id, err)
		}
	}
	update(func() {
		job.Status = database.StatusProcessing
		job.Progress = 0
		job.Message = ""
		job.ErrorClass = ""
	})
	cb := transcoder.Callbacks{
		OnProgress: func(p int) { update(func() { job.Progress = p }) },
		OnStatus:   func(msg string) { update(func() { job.Message = msg }) },
	}

	target := formats.Format(job.Format)
	start := time.Now()
	q.log.Info("Converting job %s: %s to %s", id, job.Name, target)
	blob, convErr := q.converter.Convert(jobCtx, src, target, cb)

	jobMu.Lock()
	defer jobMu.Unlock()

	if convErr != nil {
		job.Status = database.StatusError
		job.Message = userMessage(convErr)
		job.ErrorClass = transcoder.ClassName(convErr)
		q.log.Warn("Job %s failed after %v: %v", id, time.Since(start), convErr)
		q.finish(storeCtx, job)
		return
	}

	if err := q.writeOutput(job, blob); err != nil {
		job.Status = database.StatusError
		job.Message = "Failed to save the converted file"
		job.ErrorClass = "other"
		q.log.Error("Job %s: %v", id, err)
		q.finish(storeCtx, job)
		return
	}

	job.Status = database.StatusCompleted
	job.Progress = 100
	job.Message = ""
	job.ErrorClass = ""
	q.log.Info("Job %s completed in %v: %s, %d bytes", id, time.Since(start), job.OutputMIME, job.OutputSize)
	if q.finish(storeCtx, job) {
		q.mu.Lock()
		q.releaseLocked(id)
		q.mu.Unlock()
	}
}

// finish records the final state of the current job unless it was removed
// while converting, in which case its files are deleted. It reports whether
// the state was recorded.
func (q *Queue) finish(ctx context.Context, job *database.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	discarded := q.discarded
	q.current = ""
	q.cancel = nil
	q.discarded = false

	if discarded {
		removeFiles(job.OutputPath, job.PosterPath)
		q.log.Debug("Discarded output of removed job %s", job.ID)
		return false
	}
	if err := q.store.UpsertJob(ctx, job); err != nil {
		q.log.Error("Failed to record job %s: %v", job.ID, err)
		return false
	}
	return true
}

func (q *Queue) writeOutput(job *database.Job, blob *transcoder.Blob) error {
	out, ok := formats.ForMIME(blob.MIME)
	if !ok {
		out = formats.Format(job.Format)
	}
	path := filepath.Join(q.outputDir, job.ID+out.Extension())
	if err := os.WriteFile(path, blob.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	job.OutputPath = path
	job.OutputMIME = blob.MIME
	job.OutputSize = int64(len(blob.Data))

	if len(blob.Poster) > 0 {
		poster := filepath.Join(q.outputDir, job.ID+".jpg")
		if err := os.WriteFile(poster, blob.Poster, 0o644); err != nil {
			q.log.Warn("Failed to write poster for job %s: %v", job.ID, err)
		} else {
			job.PosterPath = poster
			job.HasPoster = true
		}
	}
	return nil
}

// decorate fills the download name. A WAV fallback keeps the .wav
// extension even when another format was requested.
func decorate(job *database.Job) {
	target := formats.Format(job.Format)
	if f, ok := formats.ForMIME(job.OutputMIME); ok {
		target = f
	}
	job.OutputName = formats.OutputName(job.Name, target)
}

func userMessage(err error) string {
	var te *transcoder.Error
	switch {
	case errors.As(err, &te):
		return te.Message
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Conversion was canceled"
	default:
		return err.Error()
	}
}

// holdLocked keeps src in memory until the job completes or is removed.
func (q *Queue) holdLocked(id string, src transcoder.Source) {
	q.sources[id] = src
	q.held += int64(len(src.Data))
	metrics.MemoryHeldSourceBytes.Set(float64(q.held))
}

func (q *Queue) releaseLocked(id string) {
	src, ok := q.sources[id]
	if !ok {
		return
	}
	delete(q.sources, id)
	q.held -= int64(len(src.Data))
	metrics.MemoryHeldSourceBytes.Set(float64(q.held))
}

// HeldBytes returns the size of the sources held in memory.
func (q *Queue) HeldBytes() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.held
}

func removeFiles(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := filesystem.Remove(p, filesystem.DefaultRetryConfig()); err != nil {
			logging.Warn("Failed to remove %s: %v", p, err)
		}
	}
}
