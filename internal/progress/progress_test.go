package progress

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestAudio(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  time.Duration
		duration time.Duration
		expected int
	}{
		{"start", 0, 10 * time.Second, 60},
		{"half", 5 * time.Second, 10 * time.Second, 80},
		{"end", 10 * time.Second, 10 * time.Second, 99},
		{"overrun", 30 * time.Second, 10 * time.Second, 99},
		{"unknown duration", time.Second, 0, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Audio(tt.elapsed, tt.duration); got != tt.expected {
				t.Errorf("Audio(%s, %s) = %d, expected %d", tt.elapsed, tt.duration, got, tt.expected)
			}
		})
	}
}

func TestVideo(t *testing.T) {
	tests := []struct {
		name     string
		position time.Duration
		duration time.Duration
		expected int
	}{
		{"start", 0, time.Minute, 0},
		{"quarter", 15 * time.Second, time.Minute, 25},
		{"end", time.Minute, time.Minute, 99},
		{"past end", 2 * time.Minute, time.Minute, 99},
		{"negative", -time.Second, time.Minute, 0},
		{"unknown duration", time.Second, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Video(tt.position, tt.duration); got != tt.expected {
				t.Errorf("Video(%s, %s) = %d, expected %d", tt.position, tt.duration, got, tt.expected)
			}
		})
	}
}

func TestTrackerMonotonic(t *testing.T) {
	var got []int
	tr := NewTracker(func(p int) { got = append(got, p) })

	for _, p := range []int{10, 30, 30, 20, 60, 150, 99, 50} {
		tr.Report(p)
	}
	tr.Complete()
	tr.Complete()
	tr.Report(99)

	expected := []int{10, 30, 60, 99, 100}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
	if tr.Last() != 100 {
		t.Errorf("Expected Last()=100, got %d", tr.Last())
	}
}

func TestTrackerNeverReportsHundredWithoutComplete(t *testing.T) {
	var max int
	tr := NewTracker(func(p int) {
		if p > max {
			max = p
		}
	})

	tr.Report(100)
	tr.Report(1000)
	if max != Ceiling {
		t.Errorf("Expected ceiling %d, got %d", Ceiling, max)
	}
}

func TestTrackerNilObserver(t *testing.T) {
	tr := NewTracker(nil)
	if tr.Last() != -1 {
		t.Errorf("Expected -1 before any report, got %d", tr.Last())
	}
	tr.Report(5)
	tr.Complete()
	if tr.Last() != 100 {
		t.Errorf("Expected 100, got %d", tr.Last())
	}
}

func TestTrackerConcurrent(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []int
	)
	tr := NewTracker(func(p int) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := 0; p < 100; p++ {
				tr.Report(p)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Fatalf("Progress regressed at %d: %v", i, seen)
		}
	}
}

func TestStatusDedup(t *testing.T) {
	var got []string
	s := NewStatus(func(m string) { got = append(got, m) })

	s.Set("Decoding")
	s.Set("Decoding")
	s.Set("Encoding")
	s.Set("Decoding")

	expected := []string{"Decoding", "Encoding", "Decoding"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}

	NewStatus(nil).Set("no observer")
}
