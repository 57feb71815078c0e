package capture

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

type fakeRecorder struct {
	events    chan Event
	started   int
	stopped   int
	closed    int
	written   bytes.Buffer
	startErr  error
	timeslice time.Duration
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{events: make(chan Event, 16)}
}

func (f *fakeRecorder) Write(p []byte) (int, error) { return f.written.Write(p) }

func (f *fakeRecorder) Start(timeslice time.Duration) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	f.timeslice = timeslice
	return nil
}

func (f *fakeRecorder) Stop() error {
	f.stopped++
	return nil
}

func (f *fakeRecorder) Events() <-chan Event { return f.events }

func (f *fakeRecorder) Close() error {
	f.closed++
	return nil
}

func TestSessionLifecycle(t *testing.T) {
	rec := newFakeRecorder()
	s := NewSession(rec)

	if s.State() != StateIdle {
		t.Fatalf("Expected idle, got %s", s.State())
	}

	if err := s.Start(250 * time.Millisecond); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.State() != StateRecording || rec.timeslice != 250*time.Millisecond {
		t.Fatalf("Expected recording with 250ms timeslice, got %s / %s", s.State(), rec.timeslice)
	}

	if _, err := s.Write([]byte("raw")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if rec.written.String() != "raw" {
		t.Errorf("Expected raw input to reach recorder")
	}

	for _, chunk := range [][]byte{[]byte("abc"), nil, []byte("def")} {
		if stopped, err := s.Handle(Event{Type: EventData, Data: chunk}); stopped || err != nil {
			t.Fatalf("Unexpected Handle result: %v %v", stopped, err)
		}
	}
	if s.Chunks() != 2 || s.Size() != 6 {
		t.Errorf("Expected 2 chunks / 6 bytes, got %d / %d", s.Chunks(), s.Size())
	}

	if _, err := s.Bytes(); !errors.Is(err, ErrNotStopped) {
		t.Errorf("Expected ErrNotStopped before stop, got %v", err)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if s.State() != StateStopping {
		t.Errorf("Expected stopping, got %s", s.State())
	}
	if _, err := s.Write([]byte("late")); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Expected writes to be refused after stop, got %v", err)
	}

	if stopped, _ := s.Handle(Event{Type: EventStopped}); !stopped {
		t.Fatal("Expected stopped=true")
	}

	data, err := s.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if string(data) != "abcdef" {
		t.Errorf("Expected abcdef, got %q", data)
	}

	_ = s.Close()
	_ = s.Close()
	if rec.closed != 1 {
		t.Errorf("Expected recorder closed once, got %d", rec.closed)
	}
	if s.State() != StateClosed {
		t.Errorf("Expected closed, got %s", s.State())
	}
}

func TestSessionNeverReused(t *testing.T) {
	rec := newFakeRecorder()
	s := NewSession(rec)

	if err := s.Start(time.Millisecond); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(time.Millisecond); !errors.Is(err, ErrSessionReused) {
		t.Errorf("Expected ErrSessionReused, got %v", err)
	}

	_ = s.Close()
	if err := s.Start(time.Millisecond); !errors.Is(err, ErrSessionReused) {
		t.Errorf("Expected ErrSessionReused after close, got %v", err)
	}
	if rec.started != 1 {
		t.Errorf("Expected one recorder start, got %d", rec.started)
	}
}

func TestSessionStopOutsideRecording(t *testing.T) {
	s := NewSession(newFakeRecorder())
	if err := s.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Expected ErrNotRecording, got %v", err)
	}
}

func TestSessionStartFailureStaysIdle(t *testing.T) {
	rec := newFakeRecorder()
	rec.startErr = errors.New("no encoder")
	s := NewSession(rec)

	if err := s.Start(time.Millisecond); err == nil {
		t.Fatal("Expected start error")
	}
	if s.State() != StateIdle {
		t.Errorf("Expected idle after failed start, got %s", s.State())
	}
}

func TestSessionZeroDataIsFailure(t *testing.T) {
	s := NewSession(newFakeRecorder())
	_ = s.Start(time.Millisecond)
	_ = s.Stop()
	s.Handle(Event{Type: EventStopped})

	if _, err := s.Bytes(); !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData, got %v", err)
	}
}

func TestSessionErrorEvents(t *testing.T) {
	s := NewSession(newFakeRecorder())
	sinkErr := errors.New("encoder crashed")

	if _, err := s.Handle(Event{Type: EventError, Err: sinkErr}); !errors.Is(err, sinkErr) {
		t.Errorf("Expected sink error, got %v", err)
	}
	if _, err := s.Handle(Event{Type: EventError}); err == nil {
		t.Error("Expected error for error event without cause")
	}
	if _, err := s.Handle(Event{Type: EventType(9)}); err == nil {
		t.Error("Expected error for unknown event")
	}
}

func TestStateAndEventStrings(t *testing.T) {
	if StateStopping.String() != "stopping" || State(7).String() != "state(7)" {
		t.Error("Unexpected State strings")
	}
	if EventStopped.String() != "stopped" || EventType(7).String() != "unknown" {
		t.Error("Unexpected EventType strings")
	}
	f := StreamFormat{Width: 640, Height: 360}
	if f.FrameSize() != 640*360*4 {
		t.Errorf("Unexpected frame size %d", f.FrameSize())
	}
}
