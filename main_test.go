package main

import (
	"context"
	"testing"

	"media-converter/internal/ffmpeg"
	"media-converter/internal/transcoder"
)

func TestProbePlatformWithoutFFmpeg(t *testing.T) {
	platform := ffmpeg.New(ffmpeg.Config{
		FFmpegPath:  "/nonexistent/ffmpeg",
		FFprobePath: "/nonexistent/ffprobe",
		Threads:     3,
	})

	info := probePlatform(context.Background(), platform, transcoder.DefaultConfig())
	if info.Err == nil {
		t.Fatal("Expected an error when ffmpeg is missing")
	}
	if info.Threads != 3 {
		t.Errorf("Expected 3 threads, got %d", info.Threads)
	}
	if len(info.Audio) != 0 || len(info.Video) != 0 {
		t.Errorf("Expected no capture signatures, got audio=%v video=%v", info.Audio, info.Video)
	}
}

func TestProbePlatformCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	platform := ffmpeg.New(ffmpeg.Config{})
	info := probePlatform(ctx, platform, transcoder.DefaultConfig())
	if info.Err == nil {
		t.Error("Expected an error with a canceled context")
	}
}
