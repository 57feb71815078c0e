package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the environment variable that pins the thread count.
const EnvOverride = "CONVERT_THREADS"

// MaxEncoderThreads caps ForEncoder; encoders gain little beyond it.
const MaxEncoderThreads = 16

// Count returns multiplier threads per available CPU, at least 1 and at
// most limit (0 means no limit). A valid CONVERT_THREADS value replaces
// the computed count but is still capped by limit.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	// GOMAXPROCS follows the container CPU limit
	n := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

// ForCPU returns one thread per CPU, capped by limit.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForEncoder returns the ffmpeg -threads value for one conversion.
func ForEncoder() int {
	return ForCPU(MaxEncoderThreads)
}
