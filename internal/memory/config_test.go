package memory

import (
	"math"
	"runtime/debug"
	"testing"
)

// restoreLimit resets the process memory limit after a test changes it.
func restoreLimit(t *testing.T) {
	t.Helper()
	previous := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(previous) })
}

func TestConfigureFromEnvNothingSet(t *testing.T) {
	restoreLimit(t)
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "")

	result := ConfigureFromEnv()
	if result.Configured || result.Source != "none" {
		t.Errorf("Expected no configuration, got %+v", result)
	}
}

func TestConfigureFromEnvMemoryLimit(t *testing.T) {
	restoreLimit(t)
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "1073741824")
	t.Setenv("MEMORY_RATIO", "0.5")

	result := ConfigureFromEnv()
	if !result.Configured || result.Source != "MEMORY_LIMIT" {
		t.Fatalf("Expected MEMORY_LIMIT configuration, got %+v", result)
	}
	if result.GoMemLimit != 512<<20 {
		t.Errorf("Expected GoMemLimit %d, got %d", 512<<20, result.GoMemLimit)
	}
	if got := debug.SetMemoryLimit(-1); got != 512<<20 {
		t.Errorf("Expected runtime limit %d, got %d", 512<<20, got)
	}
}

func TestConfigureFromEnvInvalidValues(t *testing.T) {
	tests := []struct {
		name      string
		limit     string
		ratio     string
		wantRatio float64
		wantSet   bool
	}{
		{"non-numeric limit", "lots", "", 0, false},
		{"negative limit", "-5", "", 0, false},
		{"ratio out of range", "1048576", "1.5", DefaultMemoryRatio, true},
		{"ratio zero", "1048576", "0", DefaultMemoryRatio, true},
		{"ratio not a number", "1048576", "half", DefaultMemoryRatio, true},
		{"ratio of one", "1048576", "1", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreLimit(t)
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", tt.limit)
			t.Setenv("MEMORY_RATIO", tt.ratio)

			result := ConfigureFromEnv()
			if result.Configured != tt.wantSet {
				t.Fatalf("Expected Configured=%v, got %+v", tt.wantSet, result)
			}
			if tt.wantSet && math.Abs(result.Ratio-tt.wantRatio) > 1e-9 {
				t.Errorf("Expected ratio %.2f, got %.2f", tt.wantRatio, result.Ratio)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{512 << 20, "512.0 MiB"},
		{3 << 30, "3.0 GiB"},
		{1 << 40, "1.0 TiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.input); got != tt.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
