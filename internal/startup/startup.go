package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"media-converter/internal/logging"
	"media-converter/internal/transcoder"
	"media-converter/internal/workers"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogHealthChecks bool

	DataDir     string
	OutputDir   string
	FFmpegPath  string
	FFprobePath string

	// MaxUploadBytes bounds a single multipart upload.
	MaxUploadBytes int64

	AudioGraceDelay time.Duration
	VideoGraceDelay time.Duration
	VideoFrameRate  int
	VideoBitrate    int

	// Derived paths
	DatabasePath string
}

// Transcoder returns the pipeline configuration with the env overrides
// applied on top of the defaults.
func (c *Config) Transcoder() transcoder.Config {
	tc := transcoder.DefaultConfig()
	tc.AudioGraceDelay = c.AudioGraceDelay
	tc.VideoGraceDelay = c.VideoGraceDelay
	if c.VideoFrameRate > 0 {
		tc.VideoFrameRate = c.VideoFrameRate
	}
	if c.VideoBitrate > 0 {
		tc.VideoBitrate = c.VideoBitrate
	}
	return tc
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	defaults := transcoder.DefaultConfig()

	dataDir := getEnv("DATA_DIR", "/data")
	outputDir := getEnv("OUTPUT_DIR", "")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)
	ffmpegPath := getEnv("FFMPEG_PATH", "ffmpeg")
	ffprobePath := getEnv("FFPROBE_PATH", "ffprobe")
	maxUploadMB := getEnvInt("MAX_UPLOAD_MB", 512)
	audioGrace := getEnvDuration("AUDIO_GRACE_DELAY", defaults.AudioGraceDelay)
	videoGrace := getEnvDuration("VIDEO_GRACE_DELAY", defaults.VideoGraceDelay)
	frameRate := getEnvInt("VIDEO_FRAME_RATE", defaults.VideoFrameRate)
	bitrate := getEnvInt("VIDEO_BITRATE", defaults.VideoBitrate)

	if maxUploadMB <= 0 {
		logging.Warn("  Invalid MAX_UPLOAD_MB %d, using default: 512", maxUploadMB)
		maxUploadMB = 512
	}
	if frameRate <= 0 || frameRate > 120 {
		logging.Warn("  Invalid VIDEO_FRAME_RATE %d, using default: %d", frameRate, defaults.VideoFrameRate)
		frameRate = defaults.VideoFrameRate
	}
	if bitrate <= 0 {
		logging.Warn("  Invalid VIDEO_BITRATE %d, using default: %d", bitrate, defaults.VideoBitrate)
		bitrate = defaults.VideoBitrate
	}

	logging.Info("  DATA_DIR:            %s", dataDir)
	logging.Info("  OUTPUT_DIR:          %s", orDefault(outputDir, "<DATA_DIR>/output"))
	logging.Info("  PORT:                %s", port)
	logging.Info("  METRICS_PORT:        %s", metricsPort)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  FFMPEG_PATH:         %s", ffmpegPath)
	logging.Info("  FFPROBE_PATH:        %s", ffprobePath)
	logging.Info("  MAX_UPLOAD_MB:       %d", maxUploadMB)
	logging.Info("  AUDIO_GRACE_DELAY:   %v", audioGrace)
	logging.Info("  VIDEO_GRACE_DELAY:   %v", videoGrace)
	logging.Info("  VIDEO_FRAME_RATE:    %d", frameRate)
	logging.Info("  VIDEO_BITRATE:       %d", bitrate)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	dataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if outputDir == "" {
		outputDir = filepath.Join(dataDir, "output")
	}
	outputDir, err = filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory path: %w", err)
	}
	logging.Info("  Data directory (absolute):   %s", dataDir)
	logging.Info("  Output directory (absolute): %s", outputDir)

	for _, dir := range []struct{ path, name string }{{dataDir, "data"}, {outputDir, "output"}} {
		if err := ensureDirectory(dir.path, dir.name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		if err := testWriteAccess(dir.path); err != nil {
			return nil, fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
		logging.Info("  [OK] %s directory is writable", dir.name)
	}

	return &Config{
		Port:            port,
		MetricsPort:     metricsPort,
		MetricsEnabled:  metricsEnabled,
		LogHealthChecks: logHealthChecks,
		DataDir:         dataDir,
		OutputDir:       outputDir,
		FFmpegPath:      ffmpegPath,
		FFprobePath:     ffprobePath,
		MaxUploadBytes:  int64(maxUploadMB) << 20,
		AudioGraceDelay: audioGrace,
		VideoGraceDelay: videoGrace,
		VideoFrameRate:  frameRate,
		VideoBitrate:    bitrate,
		DatabasePath:    filepath.Join(dataDir, "jobs.db"),
	}, nil
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// PlatformInfo describes the detected encoder host.
type PlatformInfo struct {
	Version string
	Threads int
	Audio   []string
	Video   []string
	Err     error
}

// LogPlatformInit logs the ffmpeg version and the capture signatures it
// can produce.
func LogPlatformInit(info PlatformInfo) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("ENCODER INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if info.Err != nil {
		logging.Warn("  FFmpeg check failed: %v", info.Err)
		logging.Warn("  Conversions will fail until ffmpeg is installed")
		return
	}

	logging.Info("  [OK] %s", info.Version)
	logging.Info("  Encoder threads:  %d", info.Threads)
	logging.Info("  Audio capture:    %s", listOrNone(info.Audio))
	logging.Info("  Video capture:    %s", listOrNone(info.Video))
	if len(info.Audio) == 0 {
		logging.Warn("  No compressed audio encoder found, audio outputs will fall back to WAV")
	}
	if len(info.Video) == 0 {
		logging.Warn("  No video encoder found, video conversions will fail")
	}
}

// LogQueueInit logs the job queue startup.
func LogQueueInit(recovered int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("JOB QUEUE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	if recovered > 0 {
		logging.Info("  Marked %d interrupted jobs as failed", recovered)
	}
	logging.Info("  [OK] Queue ready (one conversion at a time)")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes at debug level
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			g := getRouteGroup(route.Path)
			groups[g] = append(groups[g], route)
		}
		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, g := range keys {
			logging.Debug("  [%s]", orDefault(g, "root"))
			for _, route := range groups[g] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	if logHealthChecks {
		logging.Info("  Health check logging: ON")
	} else {
		logging.Info("  Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup returns "api/<resource>" for API routes and the first
// segment otherwise.
func getRouteGroup(path string) string {
	first, rest, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if first == "api" && rest != "" {
		resource, _, _ := strings.Cut(rest, "/")
		return "api/" + resource
	}
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://0.0.0.0:%s/api", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(reason string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (%s)", reason)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___          ______                           __
   /  |/  /__  ____/ (_)___ _   / ____/___  ____ _   _____  _____/ /____  _____
  / /|_/ / _ \/ __  / / __ '/  / /   / __ \/ __ \ | / / _ \/ ___/ __/ _ \/ ___/
 / /  / /  __/ /_/ / / /_/ /  / /___/ /_/ / / / / |/ /  __/ /  / /_/  __/ /
/_/  /_/\___/\__,_/_/\__,_/   \____/\____/_/ /_/|___/\___/_/   \__/\___/_/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))
	logging.Info("  Encoder threads: %d", workers.ForEncoder())

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvDuration accepts Go durations ("400ms") and bare milliseconds ("400").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		logging.Warn("Invalid duration value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return d
}
