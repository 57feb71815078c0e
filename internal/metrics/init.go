package metrics

import "media-converter/internal/formats"

// Job statuses exported by JobsByStatus.
var jobStatuses = []string{"pending", "processing", "completed", "error"}

// Conversion outcomes: success plus every error class.
var outcomes = []string{"success", "decode", "capability", "playback", "capture", "unsupported", "canceled", "other"}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	for _, op := range []string{"initialize_schema", "upsert_job", "get_job", "list_jobs", "delete_job", "stats"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, kind := range []string{"audio", "video"} {
		ConversionDuration.WithLabelValues(kind)
		NegotiationsTotal.WithLabelValues(kind, "selected")
		NegotiationsTotal.WithLabelValues(kind, "none")
		CaptureSessionsActive.WithLabelValues(kind)
		CapturedBytesTotal.WithLabelValues(kind)
	}

	for _, f := range formats.AudioFormats {
		FallbacksTotal.WithLabelValues(string(f))
		for _, o := range outcomes {
			ConversionsTotal.WithLabelValues("audio", string(f), o)
		}
	}
	for _, f := range formats.VideoFormats {
		for _, o := range outcomes {
			ConversionsTotal.WithLabelValues("video", string(f), o)
		}
	}

	for _, op := range []string{"open", "stat", "remove"} {
		FilesystemStaleErrors.WithLabelValues(op)
		FilesystemRetries.WithLabelValues(op, "success")
		FilesystemRetries.WithLabelValues(op, "failure")
		FilesystemRetryDuration.WithLabelValues(op)
	}

	for _, s := range jobStatuses {
		JobsByStatus.WithLabelValues(s)
	}
}
