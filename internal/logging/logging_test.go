package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
		{"  error ", LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(42), "unknown(42)"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Expected %q, got %q", tt.expected, got)
		}
	}
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)
	fn()
	return buf.String()
}

func TestLevelFiltering(t *testing.T) {
	orig := GetLevel()
	defer SetLevel(orig)

	SetLevel(LevelWarn)
	out := captureOutput(t, func() {
		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")
	})

	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("Expected debug and info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] warn message") {
		t.Errorf("Expected warn message, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] error message") {
		t.Errorf("Expected error message, got %q", out)
	}
}

func TestLoggerPrefix(t *testing.T) {
	orig := GetLevel()
	defer SetLevel(orig)
	SetLevel(LevelDebug)

	l := With("video").With("job-1")
	if l.Prefix() != "[video] [job-1] " {
		t.Errorf("Unexpected prefix %q", l.Prefix())
	}

	out := captureOutput(t, func() {
		l.Debug("session %s", "started")
	})
	if !strings.Contains(out, "[DEBUG] [video] [job-1] session started") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestNilLogger(t *testing.T) {
	var l *Logger
	if l.Prefix() != "" {
		t.Errorf("Expected empty prefix for nil logger")
	}
	if got := l.With("audio").Prefix(); got != "[audio] " {
		t.Errorf("Expected [audio] prefix, got %q", got)
	}
}
