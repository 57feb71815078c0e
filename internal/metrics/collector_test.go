package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockStatsProvider struct {
	mu    sync.Mutex
	calls int
	stats Stats
}

func (m *mockStatsProvider) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockStatsProvider) getCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestCollectorCollect(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{
		Pending:     2,
		Processing:  1,
		Completed:   7,
		Failed:      3,
		Queued:      2,
		Processes:   1,
		OutputBytes: 4096,
	}}
	c := NewCollector(provider, time.Hour)
	c.collect()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"pending", testutil.ToFloat64(JobsByStatus.WithLabelValues("pending")), 2},
		{"processing", testutil.ToFloat64(JobsByStatus.WithLabelValues("processing")), 1},
		{"completed", testutil.ToFloat64(JobsByStatus.WithLabelValues("completed")), 7},
		{"error", testutil.ToFloat64(JobsByStatus.WithLabelValues("error")), 3},
		{"queue depth", testutil.ToFloat64(QueueDepth), 2},
		{"processes", testutil.ToFloat64(FFmpegProcessesActive), 1},
		{"output bytes", testutil.ToFloat64(OutputBytes), 4096},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("Expected %s=%v, got %v", tt.name, tt.want, tt.got)
		}
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Hour)
	c.collect()
}

func TestCollectorStartStop(t *testing.T) {
	provider := &mockStatsProvider{}
	c := NewCollector(provider, 5*time.Millisecond)
	c.Start()

	deadline := time.Now().Add(2 * time.Second)
	for provider.getCalls() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	c.Stop()

	if provider.getCalls() < 2 {
		t.Errorf("Expected at least 2 collections, got %d", provider.getCalls())
	}
}
