package progress

import (
	"math"
	"sync"
	"time"
)

const (
	// Ceiling is the highest value reported before capture has closed.
	Ceiling = 99
	// Done is reported once, after a successful close.
	Done = 100

	// AudioBase is where capture-driven audio progress starts; decoding
	// accounts for the range below it.
	AudioBase = 60
	audioSpan = 39
)

// Audio estimates capture progress from elapsed wall-clock time against
// the sample buffer duration.
func Audio(elapsed, duration time.Duration) int {
	if duration <= 0 {
		return AudioBase
	}
	ratio := float64(elapsed) / float64(duration)
	return clamp(int(math.Round(AudioBase + ratio*audioSpan)))
}

// Video estimates progress from the playback position.
func Video(position, duration time.Duration) int {
	if duration <= 0 {
		return 0
	}
	return clamp(int(math.Round(float64(position) / float64(duration) * 100)))
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > Ceiling {
		return Ceiling
	}
	return p
}

// Tracker forwards progress to an observer. Values are clamped to
// [0, Ceiling], duplicates and regressions are dropped, and Done is only
// emitted by Complete. The observer runs under the tracker's lock so
// deliveries are ordered; it must not call back into the Tracker.
type Tracker struct {
	mu       sync.Mutex
	fn       func(int)
	last     int
	reported bool
	done     bool
}

// NewTracker wraps fn; fn may be nil.
func NewTracker(fn func(int)) *Tracker {
	return &Tracker{fn: fn, last: -1}
}

// Report forwards p if it advances the last reported value.
func (t *Tracker) Report(p int) {
	p = clamp(p)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done || p <= t.last {
		return
	}
	t.last = p
	t.reported = true
	if t.fn != nil {
		t.fn(p)
	}
}

// Complete reports Done exactly once.
func (t *Tracker) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	t.last = Done
	t.reported = true
	if t.fn != nil {
		t.fn(Done)
	}
}

// Last returns the last reported value, or -1 if nothing was reported.
func (t *Tracker) Last() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.reported {
		return -1
	}
	return t.last
}

// Status forwards status messages, skipping consecutive repeats.
type Status struct {
	mu   sync.Mutex
	fn   func(string)
	last string
}

// NewStatus wraps fn; fn may be nil.
func NewStatus(fn func(string)) *Status {
	return &Status{fn: fn}
}

// Set delivers msg unless it equals the previous message.
func (s *Status) Set(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg == s.last {
		return
	}
	s.last = msg
	if s.fn != nil {
		s.fn(msg)
	}
}
