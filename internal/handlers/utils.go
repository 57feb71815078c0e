package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"media-converter/internal/database"
	"media-converter/internal/jobs"
	"media-converter/internal/logging"
	"media-converter/internal/memory"
	"media-converter/internal/transcoder"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Encoding errors are only logged; the status line is already sent.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatus writes v with the given status code.
func writeJSONStatus(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Class string `json:"class,omitempty"`
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatus(w, statusCode, ErrorResponse{Error: message})
}

// statusForError maps queue and store errors to HTTP status codes.
func statusForError(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, database.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrEmptySource), errors.Is(err, transcoder.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrNotRetryable):
		return http.StatusConflict
	case errors.Is(err, jobs.ErrSourceUnavailable):
		return http.StatusGone
	case errors.Is(err, jobs.ErrQueueStopped), errors.Is(err, memory.ErrPressure):
		return http.StatusServiceUnavailable
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// statusForClass maps a failed job's error class to the status returned
// when its output is requested.
func statusForClass(class string) int {
	switch class {
	case "decode":
		return http.StatusUnprocessableEntity
	case "capability":
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server-side failures and writes the mapped status.
func writeError(w http.ResponseWriter, op string, err error) {
	status := statusForError(err)
	if errors.Is(err, memory.ErrPressure) {
		w.Header().Set("Retry-After", "30")
		writeJSONError(w, err.Error(), status)
		return
	}
	if status >= http.StatusInternalServerError {
		logging.Error("%s: %v", op, err)
		writeJSONError(w, "Internal server error", status)
		return
	}
	writeJSONError(w, err.Error(), status)
}
