package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_upload_bytes_total",
			Help: "Total bytes of source files accepted for conversion",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_converter_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Conversion metrics
var (
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_conversions_total",
			Help: "Total number of conversions by kind, target format and outcome",
		},
		[]string{"kind", "format", "outcome"},
	)

	ConversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_conversion_duration_seconds",
			Help:    "Wall-clock duration of a conversion in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"kind"},
	)

	NegotiationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_codec_negotiations_total",
			Help: "Total number of capture codec negotiations by result",
		},
		[]string{"kind", "result"},
	)

	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_wav_fallbacks_total",
			Help: "Total number of audio conversions that fell back to WAV",
		},
		[]string{"format"},
	)

	CaptureSessionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_converter_capture_sessions_active",
			Help: "Number of capture sessions currently open",
		},
		[]string{"kind"},
	)

	CapturedBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_captured_bytes_total",
			Help: "Total encoded bytes received from capture sinks",
		},
		[]string{"kind"},
	)

	SurfacesAttached = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_surfaces_attached",
			Help: "Number of rendering surfaces currently attached",
		},
	)
)

// Queue metrics
var (
	JobsSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_jobs_submitted_total",
			Help: "Total number of conversion jobs submitted",
		},
	)

	JobsRetriedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_jobs_retried_total",
			Help: "Total number of failed jobs re-queued by a retry",
		},
	)

	JobsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_converter_jobs",
			Help: "Number of known jobs by status",
		},
		[]string{"status"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_queue_depth",
			Help: "Number of jobs waiting to be processed",
		},
	)

	FFmpegProcessesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_ffmpeg_processes_active",
			Help: "Number of running ffmpeg processes",
		},
	)

	OutputBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_output_bytes",
			Help: "Total size of converted outputs kept on disk",
		},
	)
)

// Filesystem metrics
var (
	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_stale_errors_total",
			Help: "Total NFS stale file handle errors on output files",
		},
		[]string{"operation"},
	)

	FilesystemRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_retries_total",
			Help: "Total retried output file operations by result",
		},
		[]string{"operation", "result"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_filesystem_retry_duration_seconds",
			Help:    "Time spent on retried output file operations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_memory_usage_ratio",
			Help: "Heap in use as a fraction of the memory limit",
		},
	)

	MemoryHeldSourceBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_memory_held_source_bytes",
			Help: "Bytes of uploaded sources held in memory for pending and failed jobs",
		},
	)

	UploadsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_uploads_rejected_total",
			Help: "Total uploads refused because of memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_converter_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
