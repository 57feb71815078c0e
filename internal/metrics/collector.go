package metrics

import (
	"time"

	"media-converter/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current queue statistics
type Stats struct {
	Pending     int
	Processing  int
	Completed   int
	Failed      int
	Queued      int
	Processes   int
	OutputBytes int64
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	JobsByStatus.WithLabelValues("pending").Set(float64(stats.Pending))
	JobsByStatus.WithLabelValues("processing").Set(float64(stats.Processing))
	JobsByStatus.WithLabelValues("completed").Set(float64(stats.Completed))
	JobsByStatus.WithLabelValues("error").Set(float64(stats.Failed))
	QueueDepth.Set(float64(stats.Queued))
	FFmpegProcessesActive.Set(float64(stats.Processes))
	OutputBytes.Set(float64(stats.OutputBytes))

	logging.Debug("Metrics collected: pending=%d, processing=%d, completed=%d, failed=%d",
		stats.Pending, stats.Processing, stats.Completed, stats.Failed)
}
