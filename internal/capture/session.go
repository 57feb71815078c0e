package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the lifecycle position of a Session.
type State int

const (
	// StateIdle is a session that has not started.
	StateIdle State = iota
	// StateRecording is a started session.
	StateRecording
	// StateStopping is a session whose stop has been requested.
	StateStopping
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrSessionReused is returned when a session is started twice.
	ErrSessionReused = errors.New("capture session cannot be reused")
	// ErrNotRecording is returned by Stop outside the recording state.
	ErrNotRecording = errors.New("capture session is not recording")
	// ErrNoData is returned when the sink stopped without producing data.
	ErrNoData = errors.New("capture produced no data")
	// ErrNotStopped is returned by Bytes before the sink reported stop.
	ErrNotStopped = errors.New("capture session has not stopped")
)

// Session drives one Recorder through a single capture.
type Session struct {
	rec Recorder

	mu      sync.Mutex
	state   State
	stopped bool
	chunks  [][]byte
	size    int

	closeOnce sync.Once
	closeErr  error
}

// NewSession binds rec to a new idle session.
func NewSession(rec Recorder) *Session {
	return &Session{rec: rec}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins recording with the given chunk timeslice.
func (s *Session) Start(timeslice time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrSessionReused
	}
	if err := s.rec.Start(timeslice); err != nil {
		return err
	}
	s.state = StateRecording
	return nil
}

// Stop asks the recorder to flush and stop. The stop is confirmed by an
// EventStopped passed to Handle.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return ErrNotRecording
	}
	s.state = StateStopping
	return s.rec.Stop()
}

// Events returns the recorder's event channel.
func (s *Session) Events() <-chan Event {
	return s.rec.Events()
}

// Write forwards raw input to the recorder while the session is recording.
func (s *Session) Write(p []byte) (int, error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != StateRecording {
		return 0, ErrNotRecording
	}
	return s.rec.Write(p)
}

// Handle applies one recorder event. It returns stopped=true once the
// recorder confirmed the stop, and a non-nil error for sink failures.
func (s *Session) Handle(ev Event) (stopped bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case EventData:
		if len(ev.Data) > 0 {
			s.chunks = append(s.chunks, ev.Data)
			s.size += len(ev.Data)
		}
		return false, nil
	case EventError:
		if ev.Err == nil {
			return false, errors.New("capture sink reported an unknown error")
		}
		return false, ev.Err
	case EventStopped:
		s.stopped = true
		return true, nil
	default:
		return false, fmt.Errorf("unexpected capture event %v", ev.Type)
	}
}

// Size returns the number of captured bytes so far.
func (s *Session) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Chunks returns the number of captured chunks so far.
func (s *Session) Chunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// Bytes joins the captured chunks after a confirmed stop. A stop with no
// data returns ErrNoData.
func (s *Session) Bytes() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		return nil, ErrNotStopped
	}
	if s.size == 0 {
		return nil, ErrNoData
	}
	out := make([]byte, 0, s.size)
	for _, c := range s.chunks {
		out = append(out, c...)
	}
	return out, nil
}

// Close moves the session to Closed and closes the recorder. Only the
// first call has an effect.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		s.closeErr = s.rec.Close()
	})
	return s.closeErr
}
