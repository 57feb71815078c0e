// Package startup loads the converter's configuration and writes the
// startup and shutdown log.
//
// # Configuration
//
// All configuration is read from environment variables by [LoadConfig]:
//
//   - DATA_DIR: directory for the job database (default: /data)
//   - OUTPUT_DIR: directory for converted files (default: DATA_DIR/output)
//   - PORT: HTTP API port (default: 8080)
//   - METRICS_PORT: Prometheus metrics port (default: 9090)
//   - METRICS_ENABLED: serve /metrics (default: true)
//   - FFMPEG_PATH, FFPROBE_PATH: encoder binaries (default: from PATH)
//   - MAX_UPLOAD_MB: largest accepted upload (default: 512)
//   - AUDIO_GRACE_DELAY, VIDEO_GRACE_DELAY: delay between the end of
//     playback and the stop request, as a Go duration or milliseconds
//     (defaults: 150ms, 400ms)
//   - VIDEO_FRAME_RATE: surface capture rate (default: 30)
//   - VIDEO_BITRATE: video bitrate hint in bits per second (default: 4000000)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//   - LOG_HEALTH_CHECKS: log probe requests (default: true)
//   - CONVERT_THREADS: encoder thread override (see package workers)
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: heap sizing and upload
//     admission (see package memory)
//
// Both directories are created if missing and must be writable.
//
// # Build Information
//
// Version, Commit and BuildTime are injected with -ldflags and exposed by
// [GetBuildInfo] for the /version endpoint.
package startup
