package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"

	"media-converter/internal/database"
	"media-converter/internal/formats"
	"media-converter/internal/logging"
	"media-converter/internal/metrics"
	"media-converter/internal/streaming"
)

// multipartMemory is how much of an upload is held in memory before
// spilling to a temp file.
const multipartMemory = 32 << 20

// Convert accepts an upload and queues a conversion.
// POST /api/convert?format=MP3
func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	target, err := formats.Parse(r.URL.Query().Get("format"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, fmt.Sprintf("File exceeds the %d MB upload limit", h.config.MaxUploadBytes>>20), http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "Expected a multipart form with a file field", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Warn("Failed to remove multipart temp files: %v", err)
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("Failed to close upload: %v", err)
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, "read upload", err)
		return
	}

	job, err := h.queue.Submit(r.Context(), header.Filename, header.Header.Get("Content-Type"), data, target)
	if err != nil {
		writeError(w, "submit job", err)
		return
	}
	metrics.UploadBytesTotal.Add(float64(len(data)))

	w.Header().Set("Location", "/api/jobs/"+job.ID)
	writeJSONStatus(w, http.StatusAccepted, job)
}

// ListJobs returns the job history, newest first.
// GET /api/jobs?limit=N
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := h.queue.List(r.Context(), limit)
	if err != nil {
		writeError(w, "list jobs", err)
		return
	}
	writeJSONStatus(w, http.StatusOK, list)
}

// GetJob returns one job.
// GET /api/jobs/{id}
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "get job", err)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatus(w, http.StatusOK, job)
}

// RetryJob re-queues a failed job.
// POST /api/jobs/{id}/retry
func (h *Handlers) RetryJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.Retry(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "retry job", err)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, job)
}

// DeleteJob removes a job and its files, canceling it if it is running.
// DELETE /api/jobs/{id}
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := h.queue.Remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, "delete job", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadJob streams the converted file.
// GET /api/jobs/{id}/download
func (h *Handlers) DownloadJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.completedJob(w, r)
	if !ok {
		return
	}
	h.serveFile(w, r, job.OutputPath, job.OutputName, job.OutputMIME)
}

// GetPoster returns the JPEG poster frame of a converted video.
// GET /api/jobs/{id}/poster
func (h *Handlers) GetPoster(w http.ResponseWriter, r *http.Request) {
	job, ok := h.completedJob(w, r)
	if !ok {
		return
	}
	if !job.HasPoster {
		writeJSONError(w, "Job has no poster", http.StatusNotFound)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=86400")
	h.serveFile(w, r, job.PosterPath, formats.OutputName(job.Name, "JPG"), "image/jpeg")
}

// completedJob loads the job and writes the error response unless it has
// completed.
func (h *Handlers) completedJob(w http.ResponseWriter, r *http.Request) (*database.Job, bool) {
	job, err := h.queue.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "get job", err)
		return nil, false
	}

	switch job.Status {
	case database.StatusCompleted:
		return job, true
	case database.StatusError:
		writeJSONStatus(w, statusForClass(job.ErrorClass), ErrorResponse{Error: job.Message, Class: job.ErrorClass})
	default:
		w.Header().Set("Retry-After", "1")
		writeJSONError(w, fmt.Sprintf("Job is %s (%d%%)", job.Status, job.Progress), http.StatusConflict)
	}
	return nil, false
}

func (h *Handlers) serveFile(w http.ResponseWriter, r *http.Request, path, name, contentType string) {
	err := streaming.ServeFile(r.Context(), w, path, name, contentType, streaming.DefaultConfig())
	switch {
	case err == nil, errors.Is(err, streaming.ErrClientGone):
	case errors.Is(err, os.ErrNotExist):
		writeJSONError(w, "Output file is missing", http.StatusGone)
	default:
		logging.Warn("Download of %s failed: %v", name, err)
	}
}

// FormatInfo describes one output format.
type FormatInfo struct {
	Format    formats.Format `json:"format"`
	MIME      string         `json:"mime"`
	Extension string         `json:"extension"`
}

// ListFormats returns the output formats per category.
// GET /api/formats
func (h *Handlers) ListFormats(w http.ResponseWriter, _ *http.Request) {
	out := make(map[formats.Category][]FormatInfo)
	for category, list := range formats.Targets() {
		for _, f := range list {
			mime, _ := f.MIME()
			out[category] = append(out[category], FormatInfo{Format: f, MIME: mime, Extension: f.Extension()})
		}
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSONStatus(w, http.StatusOK, out)
}
