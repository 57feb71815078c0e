package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"

	"media-converter/internal/database"
	"media-converter/internal/formats"
	"media-converter/internal/jobs"
	"media-converter/internal/memory"
	"media-converter/internal/transcoder"
)

type submitCall struct {
	name   string
	mime   string
	data   []byte
	target formats.Format
}

type fakeQueue struct {
	jobs      map[string]*database.Job
	submits   []submitCall
	submitErr error
	retryErr  error
	removed   []string
	queued    int
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{jobs: make(map[string]*database.Job)}
}

func (f *fakeQueue) Submit(_ context.Context, name, mime string, data []byte, target formats.Format) (*database.Job, error) {
	f.submits = append(f.submits, submitCall{name, mime, data, target})
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	job := &database.Job{ID: fmt.Sprintf("job-%d", len(f.submits)), Name: name, Format: string(target), Status: database.StatusPending}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeQueue) Retry(_ context.Context, id string) (*database.Job, error) {
	if f.retryErr != nil {
		return nil, f.retryErr
	}
	job, ok := f.jobs[id]
	if !ok {
		return nil, database.ErrJobNotFound
	}
	job.Status = database.StatusPending
	return job, nil
}

func (f *fakeQueue) Remove(_ context.Context, id string) error {
	if _, ok := f.jobs[id]; !ok {
		return database.ErrJobNotFound
	}
	delete(f.jobs, id)
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeQueue) Get(_ context.Context, id string) (*database.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, database.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeQueue) List(_ context.Context, _ int) ([]*database.Job, error) {
	list := make([]*database.Job, 0, len(f.jobs))
	for _, j := range f.jobs {
		list = append(list, j)
	}
	return list, nil
}

func (f *fakeQueue) Queued() int { return f.queued }

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func setupRouter(q *fakeQueue, cfg Config) *mux.Router {
	router := mux.NewRouter()
	New(q, fakePinger{}, cfg).Routes(router)
	return router
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename)}
	header["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("Failed to create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("Failed to write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func TestConvertAccepted(t *testing.T) {
	q := newFakeQueue()
	router := setupRouter(q, Config{})

	body, ct := multipartBody(t, "file", "song.flac", "audio/flac", []byte("flac bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/convert?format=mp3", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != "/api/jobs/job-1" {
		t.Errorf("Expected Location /api/jobs/job-1, got %q", got)
	}
	if len(q.submits) != 1 {
		t.Fatalf("Expected 1 submit, got %d", len(q.submits))
	}
	call := q.submits[0]
	if call.name != "song.flac" || call.mime != "audio/flac" || call.target != formats.MP3 {
		t.Errorf("Unexpected submit call: %+v", call)
	}
	if string(call.data) != "flac bytes" {
		t.Errorf("Expected uploaded bytes, got %q", call.data)
	}

	var job database.Job
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if job.Status != database.StatusPending {
		t.Errorf("Expected pending job, got %s", job.Status)
	}
}

func TestConvertRejects(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		field     string
		data      []byte
		maxUpload int64
		submitErr error
		want      int
	}{
		{"unknown format", "?format=pdf", "file", []byte("x"), 0, nil, http.StatusBadRequest},
		{"missing format", "", "file", []byte("x"), 0, nil, http.StatusBadRequest},
		{"missing file field", "?format=mp3", "upload", []byte("x"), 0, nil, http.StatusBadRequest},
		{"too large", "?format=mp3", "file", bytes.Repeat([]byte("x"), 4096), 1024, nil, http.StatusRequestEntityTooLarge},
		{"empty source", "?format=mp3", "file", []byte("x"), 0, jobs.ErrEmptySource, http.StatusBadRequest},
		{"queue stopped", "?format=mp3", "file", []byte("x"), 0, jobs.ErrQueueStopped, http.StatusServiceUnavailable},
		{"memory pressure", "?format=mp3", "file", []byte("x"), 0, memory.ErrPressure, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newFakeQueue()
			q.submitErr = tt.submitErr
			router := setupRouter(q, Config{MaxUploadBytes: tt.maxUpload})

			body, ct := multipartBody(t, tt.field, "a.wav", "audio/wav", tt.data)
			req := httptest.NewRequest(http.MethodPost, "/api/convert"+tt.query, body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestGetJob(t *testing.T) {
	q := newFakeQueue()
	q.jobs["abc"] = &database.Job{ID: "abc", Status: database.StatusProcessing, Progress: 42}
	router := setupRouter(q, Config{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/abc", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var job database.Job
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if job.Progress != 42 {
		t.Errorf("Expected progress 42, got %d", job.Progress)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/missing", http.NoBody))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestListJobs(t *testing.T) {
	q := newFakeQueue()
	q.jobs["a"] = &database.Job{ID: "a"}
	q.jobs["b"] = &database.Job{ID: "b"}
	router := setupRouter(q, Config{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs?limit=10", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var list []database.Job
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(list))
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs?limit=-1", http.NoBody))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a negative limit, got %d", w.Code)
	}
}

func TestRetryAndDelete(t *testing.T) {
	q := newFakeQueue()
	q.jobs["a"] = &database.Job{ID: "a", Status: database.StatusError}
	router := setupRouter(q, Config{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/jobs/a/retry", http.NoBody))
	if w.Code != http.StatusAccepted {
		t.Errorf("Expected status 202, got %d", w.Code)
	}

	q.retryErr = jobs.ErrNotRetryable
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/jobs/a/retry", http.NoBody))
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/jobs/a", http.NoBody))
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if len(q.removed) != 1 || q.removed[0] != "a" {
		t.Errorf("Expected job a to be removed, got %v", q.removed)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/jobs/a", http.NoBody))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 on second delete, got %d", w.Code)
	}
}

func TestDownload(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "a.mp3")
	if err := os.WriteFile(out, []byte("mp3 data"), 0o644); err != nil {
		t.Fatalf("Failed to write output: %v", err)
	}

	q := newFakeQueue()
	q.jobs["done"] = &database.Job{ID: "done", Status: database.StatusCompleted, OutputPath: out, OutputName: "song.mp3", OutputMIME: "audio/mpeg"}
	q.jobs["gone"] = &database.Job{ID: "gone", Status: database.StatusCompleted, OutputPath: filepath.Join(dir, "nope"), OutputName: "x.mp3"}
	q.jobs["decode"] = &database.Job{ID: "decode", Status: database.StatusError, ErrorClass: "decode", Message: "Could not decode audio"}
	q.jobs["capability"] = &database.Job{ID: "capability", Status: database.StatusError, ErrorClass: "capability"}
	q.jobs["capture"] = &database.Job{ID: "capture", Status: database.StatusError, ErrorClass: "capture"}
	q.jobs["running"] = &database.Job{ID: "running", Status: database.StatusProcessing, Progress: 50}
	router := setupRouter(q, Config{})

	tests := []struct {
		id   string
		want int
	}{
		{"done", http.StatusOK},
		{"gone", http.StatusGone},
		{"decode", http.StatusUnprocessableEntity},
		{"capability", http.StatusUnsupportedMediaType},
		{"capture", http.StatusInternalServerError},
		{"running", http.StatusConflict},
		{"missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/"+tt.id+"/download", http.NoBody))
			if w.Code != tt.want {
				t.Fatalf("Expected status %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if tt.id != "done" {
				return
			}
			if w.Body.String() != "mp3 data" {
				t.Errorf("Expected file body, got %q", w.Body.String())
			}
			if got := w.Header().Get("Content-Disposition"); got != "attachment; filename=song.mp3" {
				t.Errorf("Unexpected Content-Disposition %q", got)
			}
			if got := w.Header().Get("Content-Type"); got != "audio/mpeg" {
				t.Errorf("Expected audio/mpeg, got %q", got)
			}
		})
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/decode/download", http.NoBody))
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error: %v", err)
	}
	if resp.Error != "Could not decode audio" || resp.Class != "decode" {
		t.Errorf("Unexpected error body %+v", resp)
	}
}

func TestPoster(t *testing.T) {
	dir := t.TempDir()
	poster := filepath.Join(dir, "p.jpg")
	if err := os.WriteFile(poster, []byte{0xFF, 0xD8, 0xFF}, 0o644); err != nil {
		t.Fatalf("Failed to write poster: %v", err)
	}

	q := newFakeQueue()
	q.jobs["video"] = &database.Job{ID: "video", Name: "clip.mov", Status: database.StatusCompleted, PosterPath: poster, HasPoster: true}
	q.jobs["audio"] = &database.Job{ID: "audio", Status: database.StatusCompleted}
	router := setupRouter(q, Config{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/video/poster", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %q", got)
	}
	if got := w.Header().Get("Content-Disposition"); got != "attachment; filename=clip.jpg" {
		t.Errorf("Unexpected Content-Disposition %q", got)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/audio/poster", http.NoBody))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 without a poster, got %d", w.Code)
	}
}

func TestListFormats(t *testing.T) {
	router := setupRouter(newFakeQueue(), Config{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/formats", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var out map[string][]FormatInfo
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(out["audio"]) != len(formats.AudioFormats) {
		t.Errorf("Expected %d audio formats, got %d", len(formats.AudioFormats), len(out["audio"]))
	}
	if len(out["video"]) != len(formats.VideoFormats) {
		t.Errorf("Expected %d video formats, got %d", len(formats.VideoFormats), len(out["video"]))
	}
	if first := out["audio"][0]; first.Format != formats.MP3 || first.MIME != "audio/mpeg" || first.Extension != ".mp3" {
		t.Errorf("Unexpected first audio format %+v", first)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		encoder    bool
		wantCode   int
		wantStatus string
	}{
		{"healthy", nil, true, http.StatusOK, statusHealthy},
		{"no encoder", nil, false, http.StatusOK, statusDegraded},
		{"database down", errors.New("closed"), true, http.StatusServiceUnavailable, statusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newFakeQueue()
			q.queued = 3
			encoder := tt.encoder
			h := New(q, fakePinger{err: tt.pingErr}, Config{EncoderReady: func() bool { return encoder }})

			w := httptest.NewRecorder()
			h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
			if w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, w.Code)
			}

			var resp HealthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("Expected status %q, got %q", tt.wantStatus, resp.Status)
			}
			if resp.QueuedJobs != 3 {
				t.Errorf("Expected 3 queued jobs, got %d", resp.QueuedJobs)
			}
		})
	}
}

func TestReadinessAndLiveness(t *testing.T) {
	h := New(newFakeQueue(), fakePinger{err: errors.New("down")}, Config{})

	w := httptest.NewRecorder()
	h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.LivenessCheck(w, httptest.NewRequest(http.MethodHead, "/livez", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected empty body for HEAD, got %q", w.Body.String())
	}
}

func TestGetVersion(t *testing.T) {
	router := setupRouter(newFakeQueue(), Config{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var info map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if info["version"] == "" {
		t.Error("Expected a version field")
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{database.ErrJobNotFound, http.StatusNotFound},
		{jobs.ErrEmptySource, http.StatusBadRequest},
		{fmt.Errorf("%w: %q", transcoder.ErrUnsupportedFormat, "PDF"), http.StatusBadRequest},
		{jobs.ErrNotRetryable, http.StatusConflict},
		{jobs.ErrSourceUnavailable, http.StatusGone},
		{jobs.ErrQueueStopped, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: 1 GiB", memory.ErrPressure), http.StatusServiceUnavailable},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusForError(tt.err); got != tt.want {
			t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestStatusForClass(t *testing.T) {
	tests := []struct {
		class string
		want  int
	}{
		{"decode", http.StatusUnprocessableEntity},
		{"capability", http.StatusUnsupportedMediaType},
		{"playback", http.StatusInternalServerError},
		{"capture", http.StatusInternalServerError},
		{"interrupted", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusForClass(tt.class); got != tt.want {
			t.Errorf("statusForClass(%q) = %d, want %d", tt.class, got, tt.want)
		}
	}
}
