// Package metrics provides Prometheus instrumentation for the media-converter application.
//
// All metrics are prefixed with "media_converter_" and registered through
// promauto. Call InitializeMetrics once at startup so every label
// combination is exported from the first scrape.
//
// # Metric Categories
//
// HTTP metrics track request rate, latency and in-flight requests. They are
// recorded by the middleware package.
//
// Conversion metrics count conversions by kind, target format and outcome,
// negotiation results, WAV fallbacks, open capture sessions, captured bytes
// and attached rendering surfaces. The transcoder records them through the
// observer returned by NewConversionObserver, which keeps the transcoder
// free of a Prometheus dependency.
//
// Queue metrics describe the job queue. A Collector polls a StatsProvider
// on an interval and sets the job, queue depth, ffmpeg process and output
// size gauges.
//
// Database metrics record query counts, query latency and the size of the
// SQLite files.
//
// # Usage
//
//	metrics.InitializeMetrics()
//	transcoder.SetObserver(metrics.NewConversionObserver())
//	collector := metrics.NewCollector(queue, 15*time.Second)
//	collector.Start()
//	defer collector.Stop()
//
// Expose the registry with promhttp.Handler() on the metrics port.
package metrics
