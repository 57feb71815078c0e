package filesystem

// Observer records retry metrics. The metrics package implements it.
type Observer interface {
	// ObserveStaleError counts one ESTALE result of op ("open", "stat", "remove").
	ObserveStaleError(op string)
	// ObserveRetryOutcome records whether op eventually succeeded after at
	// least one ESTALE, and how long all attempts took.
	ObserveRetryOutcome(op string, success bool, durationSeconds float64)
}

var defaultObserver Observer

// SetObserver sets the package-level observer. Call once at startup.
func SetObserver(o Observer) {
	defaultObserver = o
}
