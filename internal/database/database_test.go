package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(context.Background(), filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return db
}

func TestRecordQuery(t *testing.T) {
	recordQuery("test_operation", time.Now(), nil)
	recordQuery("test_operation", time.Now(), errors.New("test error"))
}

func TestNewCreatesSchema(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
	if err := db.initialize(context.Background()); err != nil {
		t.Errorf("Expected schema creation to be idempotent, got %v", err)
	}
	db.UpdateDBMetrics()
}

func TestReadsDuringWrite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if got := db.db.Stats().MaxOpenConnections; got != 4 {
		t.Errorf("Expected a pool of 4 connections, got %d", got)
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, "UPDATE jobs SET progress = progress"); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := db.ListJobs(ctx, 10); err != nil {
		t.Errorf("Expected reads beside an open write, got %v", err)
	}
}

func TestNewInvalidDirectory(t *testing.T) {
	if _, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "jobs.db")); err == nil {
		t.Error("Expected error for a missing parent directory")
	}
}

func TestJobLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	job := &Job{
		ID:          "job-1",
		Name:        "song.wav",
		SourceMIME:  "audio/wav",
		SourceSize:  1024,
		Fingerprint: "abc",
		Format:      "MP3",
		Status:      StatusPending,
		CreatedAt:   time.Unix(1700000000, 0),
	}
	if err := db.UpsertJob(ctx, job); err != nil {
		t.Fatalf("UpsertJob failed: %v", err)
	}

	got, err := db.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Name != "song.wav" || got.Status != StatusPending || got.Format != "MP3" {
		t.Errorf("Expected stored job, got %+v", got)
	}
	if !got.CreatedAt.Equal(job.CreatedAt) {
		t.Errorf("Expected CreatedAt=%v, got %v", job.CreatedAt, got.CreatedAt)
	}

	job.Status = StatusCompleted
	job.Progress = 100
	job.OutputPath = "/out/job-1.mp3"
	job.OutputMIME = "audio/mpeg"
	job.OutputSize = 512
	job.PosterPath = "/out/job-1.jpg"
	if err := db.UpsertJob(ctx, job); err != nil {
		t.Fatalf("UpsertJob update failed: %v", err)
	}

	got, err = db.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != StatusCompleted || got.Progress != 100 || got.OutputSize != 512 || !got.HasPoster {
		t.Errorf("Expected updated job, got %+v", got)
	}

	if err := db.DeleteJob(ctx, "job-1"); err != nil {
		t.Fatalf("DeleteJob failed: %v", err)
	}
	if _, err := db.GetJob(ctx, "job-1"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound after delete, got %v", err)
	}
	if err := db.DeleteJob(ctx, "job-1"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound for second delete, got %v", err)
	}
}

func TestListJobsAndStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	jobs := []*Job{
		{ID: "a", Name: "a.wav", Format: "OGG", Status: StatusCompleted, OutputSize: 100, CreatedAt: time.Unix(100, 0)},
		{ID: "b", Name: "b.mov", Format: "WEBM", Status: StatusError, ErrorClass: "capability", CreatedAt: time.Unix(200, 0)},
		{ID: "c", Name: "c.mp3", Format: "WAV", Status: StatusCompleted, OutputSize: 50, CreatedAt: time.Unix(300, 0)},
		{ID: "d", Name: "d.mp4", Format: "MKV", Status: StatusPending, CreatedAt: time.Unix(400, 0)},
	}
	for _, j := range jobs {
		if err := db.UpsertJob(ctx, j); err != nil {
			t.Fatalf("UpsertJob(%s) failed: %v", j.ID, err)
		}
	}

	all, err := db.ListJobs(ctx, 0)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(all) != 4 || all[0].ID != "d" || all[3].ID != "a" {
		t.Errorf("Expected newest first, got %d jobs starting with %s", len(all), all[0].ID)
	}

	limited, err := db.ListJobs(ctx, 2)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(limited))
	}

	stats, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	want := JobStats{Pending: 1, Completed: 2, Failed: 1, OutputBytes: 150}
	if stats != want {
		t.Errorf("Expected %+v, got %+v", want, stats)
	}
}
