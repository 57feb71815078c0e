package transcoder

import "media-converter/internal/codec"

// Observer records conversion metrics. The metrics package provides the
// implementation; a nil observer disables recording.
type Observer interface {
	ObserveConversion(kind codec.Kind, format, outcome string, durationSeconds float64)
	ObserveNegotiation(kind codec.Kind, selected bool)
	ObserveFallback(format string)
	ObserveSessionStarted(kind codec.Kind)
	ObserveSessionClosed(kind codec.Kind)
	ObserveCapturedBytes(kind codec.Kind, n int)
	ObserveSurfaces(attached int)
}

var defaultObserver Observer

// SetObserver sets the package-level metrics observer. Call once at startup.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	return defaultObserver
}
