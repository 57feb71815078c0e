package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv(EnvOverride, "")
	cpus := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		min        int
		max        int
	}{
		{name: "one per CPU", multiplier: 1.0, limit: 0, min: 1, max: cpus},
		{name: "two per CPU", multiplier: 2.0, limit: 0, min: 1, max: cpus * 2},
		{name: "limited", multiplier: 2.0, limit: 2, min: 1, max: 2},
		{name: "limit of one", multiplier: 4.0, limit: 1, min: 1, max: 1},
		{name: "tiny multiplier", multiplier: 0.01, limit: 0, min: 1, max: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < tt.min || got > tt.max {
				t.Errorf("Count(%v, %d) = %d, expected within [%d, %d]", tt.multiplier, tt.limit, got, tt.min, tt.max)
			}
		})
	}
}

func TestCountOverride(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		limit    int
		expected int // 0 means "computed"
	}{
		{name: "valid", env: "8", limit: 0, expected: 8},
		{name: "capped", env: "20", limit: 10, expected: 10},
		{name: "below limit", env: "5", limit: 10, expected: 5},
		{name: "non-numeric", env: "many", limit: 0},
		{name: "zero", env: "0", limit: 0},
		{name: "negative", env: "-3", limit: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvOverride, tt.env)
			got := Count(1.0, tt.limit)
			if tt.expected == 0 {
				if got != runtime.GOMAXPROCS(0) {
					t.Errorf("Expected invalid override %q to be ignored, got %d", tt.env, got)
				}
				return
			}
			if got != tt.expected {
				t.Errorf("Expected %d with %s=%s, got %d", tt.expected, EnvOverride, tt.env, got)
			}
		})
	}
}

func TestForEncoder(t *testing.T) {
	t.Setenv(EnvOverride, "")
	got := ForEncoder()
	if got < 1 || got > MaxEncoderThreads {
		t.Errorf("ForEncoder() = %d, expected within [1, %d]", got, MaxEncoderThreads)
	}

	t.Setenv(EnvOverride, "64")
	if got := ForEncoder(); got != MaxEncoderThreads {
		t.Errorf("Expected override capped at %d, got %d", MaxEncoderThreads, got)
	}
}
