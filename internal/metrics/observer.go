package metrics

import (
	"media-converter/internal/codec"
	"media-converter/internal/filesystem"
	"media-converter/internal/transcoder"
)

// conversionObserver implements transcoder.Observer using the Prometheus
// metrics declared in this package.
type conversionObserver struct{}

// NewConversionObserver creates an observer that records conversion metrics
// into the Prometheus counters and gauges declared in metrics.go.
func NewConversionObserver() transcoder.Observer {
	return &conversionObserver{}
}

func (o *conversionObserver) ObserveConversion(kind codec.Kind, format, outcome string, durationSeconds float64) {
	ConversionsTotal.WithLabelValues(string(kind), format, outcome).Inc()
	ConversionDuration.WithLabelValues(string(kind)).Observe(durationSeconds)
}

func (o *conversionObserver) ObserveNegotiation(kind codec.Kind, selected bool) {
	result := "none"
	if selected {
		result = "selected"
	}
	NegotiationsTotal.WithLabelValues(string(kind), result).Inc()
}

func (o *conversionObserver) ObserveFallback(format string) {
	FallbacksTotal.WithLabelValues(format).Inc()
}

func (o *conversionObserver) ObserveSessionStarted(kind codec.Kind) {
	CaptureSessionsActive.WithLabelValues(string(kind)).Inc()
}

func (o *conversionObserver) ObserveSessionClosed(kind codec.Kind) {
	CaptureSessionsActive.WithLabelValues(string(kind)).Dec()
}

func (o *conversionObserver) ObserveCapturedBytes(kind codec.Kind, n int) {
	CapturedBytesTotal.WithLabelValues(string(kind)).Add(float64(n))
}

func (o *conversionObserver) ObserveSurfaces(attached int) {
	SurfacesAttached.Set(float64(attached))
}

// filesystemObserver implements filesystem.Observer.
type filesystemObserver struct{}

// NewFilesystemObserver creates an observer that records output file
// retry metrics.
func NewFilesystemObserver() filesystem.Observer {
	return &filesystemObserver{}
}

func (o *filesystemObserver) ObserveStaleError(op string) {
	FilesystemStaleErrors.WithLabelValues(op).Inc()
}

func (o *filesystemObserver) ObserveRetryOutcome(op string, success bool, durationSeconds float64) {
	result := "failure"
	if success {
		result = "success"
	}
	FilesystemRetries.WithLabelValues(op, result).Inc()
	FilesystemRetryDuration.WithLabelValues(op).Observe(durationSeconds)
}
