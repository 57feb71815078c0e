package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-converter/internal/database"
	"media-converter/internal/ffmpeg"
	"media-converter/internal/filesystem"
	"media-converter/internal/handlers"
	"media-converter/internal/jobs"
	"media-converter/internal/logging"
	"media-converter/internal/memory"
	"media-converter/internal/metrics"
	"media-converter/internal/middleware"
	"media-converter/internal/startup"
	"media-converter/internal/transcoder"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout     = 30 * time.Second
	collectorInterval   = 15 * time.Second
	dbMetricsInterval   = time.Minute
	capabilitiesTimeout = 10 * time.Second
)

func main() {
	startTime := time.Now()

	// Size the heap before uploads start arriving
	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	// Initialize encoder platform
	platform := ffmpeg.New(ffmpeg.Config{
		FFmpegPath:  config.FFmpegPath,
		FFprobePath: config.FFprobePath,
		WorkDir:     config.DataDir,
	})
	pipeline := config.Transcoder()
	info := probePlatform(ctx, platform, pipeline)
	startup.LogPlatformInit(info)

	transcoder.SetObserver(metrics.NewConversionObserver())
	trans := transcoder.New(platform, pipeline)

	// Uploads are held in memory until converted
	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()

	// Initialize job queue
	queue, err := jobs.New(db, trans, jobs.Config{
		OutputDir: config.OutputDir,
		Processes: platform.Active,
		Admit:     memMonitor.Admit,
	})
	if err != nil {
		startup.LogFatal("Failed to initialize job queue: %v", err)
	}
	recovered, err := queue.Recover(ctx)
	if err != nil {
		startup.LogFatal("Failed to recover jobs: %v", err)
	}
	startup.LogQueueInit(recovered)

	// Initialize handlers
	h := handlers.New(queue, db, handlers.Config{
		MaxUploadBytes: config.MaxUploadBytes,
		EncoderReady:   func() bool { return info.Err == nil && len(info.Video)+len(info.Audio) > 0 },
	})

	router := mux.NewRouter()
	h.Routes(router)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	var handler http.Handler = router
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	handler = middleware.Logger(loggingConfig)(handler)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		// Uploads and downloads can be large; streaming sets per-chunk deadlines.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	collector := metrics.NewCollector(queue, collectorInterval)
	collector.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return queue.Run(gctx)
	})

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})

	if metricsSrv != nil {
		g.Go(func() error {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(dbMetricsInterval)
		defer ticker.Stop()
		db.UpdateDBMetrics()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				db.UpdateDBMetrics()
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		reason := "signal received"
		if ctx.Err() == nil {
			reason = "component failure"
		}
		err := shutdown(reason, srv, metricsSrv, queue, platform, collector)
		memMonitor.Stop()
		return err
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	err = g.Wait()

	startup.LogShutdownStep("Closing database")
	if cerr := db.Close(); cerr != nil {
		logging.Warn("Database close error: %v", cerr)
	} else {
		startup.LogShutdownStepComplete("Database closed")
	}
	startup.LogShutdownComplete()

	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error("Server error: %v", err)
		os.Exit(1)
	}
}

// probePlatform checks the ffmpeg install and lists the capture
// signatures it can produce.
func probePlatform(ctx context.Context, platform *ffmpeg.Platform, cfg transcoder.Config) startup.PlatformInfo {
	ctx, cancel := context.WithTimeout(ctx, capabilitiesTimeout)
	defer cancel()

	info := startup.PlatformInfo{Threads: platform.Threads()}
	version, err := platform.Version(ctx)
	if err != nil {
		info.Err = err
		return info
	}
	info.Version = version

	if _, err := platform.Capabilities(ctx); err != nil {
		info.Err = err
		return info
	}
	for _, sig := range cfg.AudioCandidates {
		if platform.IsTypeSupported(sig.MIME) {
			info.Audio = append(info.Audio, sig.MIME)
		}
	}
	for _, sig := range cfg.VideoCandidates {
		if platform.IsTypeSupported(sig.MIME) {
			info.Video = append(info.Video, sig.MIME)
		}
	}
	return info
}

func shutdown(reason string, srv, metricsSrv *http.Server, queue *jobs.Queue, platform *ffmpeg.Platform, collector *metrics.Collector) error {
	startup.LogShutdownInitiated(reason)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Stopping job queue")
	queue.Stop()
	startup.LogShutdownStepComplete("Job queue stopped")

	startup.LogShutdownStep("Cleaning up encoder processes")
	platform.Cleanup()
	startup.LogShutdownStepComplete("Encoder cleanup complete")

	startup.LogShutdownStep("Shutting down HTTP server")
	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
		errs = append(errs, err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
			errs = append(errs, err)
		}
	}

	collector.Stop()
	return errors.Join(errs...)
}
