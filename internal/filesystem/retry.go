package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"media-converter/internal/logging"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the defaults used for output files.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isStale checks if an error is an NFS stale file handle error
func isStale(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.ESTALE
}

// retry runs fn until it returns something other than ESTALE or the
// attempts run out.
func retry(op, path string, config RetryConfig, fn func() error) error {
	start := time.Now()
	backoff := config.InitialBackoff
	stale := false

	var err error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err = fn()
		if !isStale(err) {
			if stale {
				if err == nil {
					logging.Info("NFS %s succeeded on retry %d for %s", op, attempt, path)
				}
				report(op, err == nil, start)
			}
			return err
		}

		stale = true
		if o := defaultObserver; o != nil {
			o.ObserveStaleError(op)
		}

		// Don't sleep after the last attempt
		if attempt < config.MaxRetries {
			logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				op, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)
			backoff = min(backoff*2, config.MaxBackoff)
		}
	}

	logging.Warn("NFS %s failed after %d retries for %s: %v", op, config.MaxRetries, path, err)
	report(op, false, start)
	return err
}

func report(op string, success bool, start time.Time) {
	if o := defaultObserver; o != nil {
		o.ObserveRetryOutcome(op, success, time.Since(start).Seconds())
	}
}

// Open opens path for reading.
func Open(path string, config RetryConfig) (*os.File, error) {
	var f *os.File
	err := retry("open", path, config, func() error {
		var err error
		f, err = os.Open(path) //nolint:gosec // G304 - paths are built by the job queue
		return err
	})
	return f, err
}

// Stat returns the file info of path.
func Stat(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo
	err := retry("stat", path, config, func() error {
		var err error
		info, err = os.Stat(path)
		return err
	})
	return info, err
}

// Remove deletes path. A file that does not exist is not an error.
func Remove(path string, config RetryConfig) error {
	return retry("remove", path, config, func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	})
}
