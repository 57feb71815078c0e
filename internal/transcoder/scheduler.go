package transcoder

import "time"

// Ticker is a stoppable tick source.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Scheduler creates the tick sources that drive the frame pump, the
// surface feed, the progress timer and the grace delays.
type Scheduler interface {
	NewTicker(d time.Duration) Ticker
}

// RealScheduler ticks on wall-clock time.
type RealScheduler struct{}

// NewTicker implements Scheduler.
func (RealScheduler) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }

func (r *realTicker) Stop() { r.t.Stop() }
