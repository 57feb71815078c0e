package memory

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

// ErrPressure is returned by Admit when an upload would not fit.
var ErrPressure = errors.New("server is low on memory, try again later")

// Config holds the watermarks of a Monitor.
type Config struct {
	// LimitBytes is the heap budget; 0 uses GOMEMLIMIT, if any.
	LimitBytes int64
	// HighWaterMark is the usage ratio above which the monitor reclaims
	// memory after each sample.
	HighWaterMark float64
	// CriticalWaterMark is the usage ratio an admitted upload may reach.
	CriticalWaterMark float64
	// CheckInterval is the sampling period.
	CheckInterval time.Duration
}

// DefaultConfig returns the standard watermarks.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.9,
		CheckInterval:     5 * time.Second,
	}
}

// Monitor samples heap usage against a limit.
type Monitor struct {
	config   Config
	limit    int64
	readHeap func() uint64

	mu      sync.RWMutex
	current uint64

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a Monitor. Call Start to begin periodic sampling;
// Admit also samples on demand.
func NewMonitor(config Config) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < math.MaxInt64 {
			limit = goMemLimit
		}
	}
	if limit == 0 {
		logging.Warn("Memory monitor: no memory limit configured, uploads are not bounded by memory")
	} else {
		logging.Info("Memory monitor: limit %s, uploads refused above %.0f%%", FormatBytes(limit), config.CriticalWaterMark*100)
	}

	return &Monitor{
		config:   config,
		limit:    limit,
		readHeap: heapInUse,
		stopChan: make(chan struct{}),
	}
}

func heapInUse() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapInuse
}

// Start begins periodic sampling.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go m.monitorLoop()
}

// Stop ends periodic sampling. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

// Limit returns the heap budget in bytes, 0 if none.
func (m *Monitor) Limit() int64 {
	return m.limit
}

func (m *Monitor) monitorLoop() {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if m.sample() >= m.config.HighWaterMark {
				m.reclaim()
			}
		case <-m.stopChan:
			return
		}
	}
}

// sample reads the heap and returns the usage ratio.
func (m *Monitor) sample() float64 {
	current := m.readHeap()
	m.mu.Lock()
	m.current = current
	m.mu.Unlock()

	usage := float64(current) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)
	return usage
}

func (m *Monitor) reclaim() {
	before := m.Usage()
	debug.FreeOSMemory()
	after := m.sample()
	logging.Debug("Memory above high watermark (%.1f%%), reclaimed to %.1f%%", before*100, after*100)
}

// Usage returns the last sampled usage ratio, 0 with no limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}

// Admit reports whether an upload of size bytes can be held. It returns
// an error wrapping ErrPressure when the heap plus size would exceed the
// critical watermark even after a collection.
func (m *Monitor) Admit(size int64) error {
	if m.limit == 0 {
		return nil
	}
	budget := float64(m.limit) * m.config.CriticalWaterMark
	if float64(size) > budget {
		metrics.UploadsRejectedTotal.Inc()
		return fmt.Errorf("%w: %s exceeds the %s budget", ErrPressure, FormatBytes(size), FormatBytes(int64(budget)))
	}

	fits := func() bool {
		m.sample()
		m.mu.RLock()
		defer m.mu.RUnlock()
		return float64(m.current)+float64(size) <= budget
	}
	if fits() {
		return nil
	}
	// Garbage may be hiding the room
	runtime.GC()
	if fits() {
		return nil
	}

	metrics.UploadsRejectedTotal.Inc()
	logging.Warn("Refusing %s upload at %.1f%% memory usage", FormatBytes(size), m.Usage()*100)
	return ErrPressure
}
