package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrJobNotFound is returned when no job has the requested ID.
var ErrJobNotFound = errors.New("job not found")

// JobStatus is the lifecycle position of a job.
type JobStatus string

// Job statuses.
const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusError      JobStatus = "error"
)

// Job is a persisted conversion job.
type Job struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SourceMIME  string    `json:"sourceMime"`
	SourceSize  int64     `json:"sourceSize"`
	Fingerprint string    `json:"fingerprint"`
	Format      string    `json:"format"`
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"`
	Message     string    `json:"message,omitempty"`
	ErrorClass  string    `json:"errorClass,omitempty"`
	OutputPath  string    `json:"-"`
	OutputName  string    `json:"outputName,omitempty"`
	OutputMIME  string    `json:"outputMime,omitempty"`
	OutputSize  int64     `json:"outputSize,omitempty"`
	PosterPath  string    `json:"-"`
	HasPoster   bool      `json:"hasPoster"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// JobStats summarizes the job table.
type JobStats struct {
	Pending     int   `json:"pending"`
	Processing  int   `json:"processing"`
	Completed   int   `json:"completed"`
	Failed      int   `json:"failed"`
	OutputBytes int64 `json:"outputBytes"`
}

const jobColumns = `id, name, source_mime, source_size, fingerprint, format, status, progress,
	message, error_class, output_path, output_mime, output_size, poster_path, created_at, updated_at`

// UpsertJob inserts job or replaces the mutable fields of an existing row.
func (d *Database) UpsertJob(ctx context.Context, job *Job) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_job", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	created := job.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err = d.db.ExecContext(ctx, `
	INSERT INTO jobs (`+jobColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%s', 'now'))
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		progress = excluded.progress,
		message = excluded.message,
		error_class = excluded.error_class,
		output_path = excluded.output_path,
		output_mime = excluded.output_mime,
		output_size = excluded.output_size,
		poster_path = excluded.poster_path,
		updated_at = strftime('%s', 'now')
	`,
		job.ID, job.Name, job.SourceMIME, job.SourceSize, job.Fingerprint, job.Format,
		string(job.Status), job.Progress, job.Message, job.ErrorClass,
		job.OutputPath, job.OutputMIME, job.OutputSize, job.PosterPath,
		created.Unix(),
	)
	return err
}

// GetJob returns the job with the given ID.
func (d *Database) GetJob(ctx context.Context, id string) (*Job, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_job", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	return job, err
}

// ListJobs returns the most recent jobs first. A non-positive limit returns
// all jobs.
func (d *Database) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_jobs", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if limit <= 0 {
		limit = -1
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []*Job{}
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		jobs = append(jobs, job)
	}
	err = rows.Err()
	return jobs, err
}

// DeleteJob removes the job with the given ID.
func (d *Database) DeleteJob(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_job", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Stats counts jobs by status and sums the output sizes.
func (d *Database) Stats(ctx context.Context) (JobStats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("stats", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var stats JobStats
	rows, err := d.db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(output_size), 0) FROM jobs GROUP BY status`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		var size int64
		if err = rows.Scan(&status, &count, &size); err != nil {
			return stats, err
		}
		switch JobStatus(status) {
		case StatusPending:
			stats.Pending = count
		case StatusProcessing:
			stats.Processing = count
		case StatusCompleted:
			stats.Completed = count
		case StatusError:
			stats.Failed = count
		}
		stats.OutputBytes += size
	}
	err = rows.Err()
	return stats, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*Job, error) {
	var job Job
	var status string
	var created, updated int64
	err := s.Scan(
		&job.ID, &job.Name, &job.SourceMIME, &job.SourceSize, &job.Fingerprint, &job.Format,
		&status, &job.Progress, &job.Message, &job.ErrorClass,
		&job.OutputPath, &job.OutputMIME, &job.OutputSize, &job.PosterPath,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}
	job.Status = JobStatus(status)
	job.HasPoster = job.PosterPath != ""
	job.CreatedAt = time.Unix(created, 0)
	job.UpdatedAt = time.Unix(updated, 0)
	return &job, nil
}
