package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"media-converter/internal/formats"
	"media-converter/internal/pcm"
	"media-converter/internal/transcoder"
)

// ErrNoAudioStream is returned when a source has no audio to decode.
var ErrNoAudioStream = errors.New("no audio stream found")

// DecodeAudio decodes src into a float sample buffer at its native rate
// and channel count.
func (p *Platform) DecodeAudio(ctx context.Context, src transcoder.Source) (*pcm.Buffer, error) {
	if formats.Sniff(src.Data) == pcm.MIMEType {
		buf, err := pcm.DecodeWAV(src.Data)
		if err == nil {
			return buf, nil
		}
		if errors.Is(err, pcm.ErrUnsupportedShape) {
			return nil, err
		}
		p.log.Debug("native WAV decode of %s failed, using ffmpeg: %v", src.Name, err)
	}

	path, unstage, err := p.stage(src.Name, src.Data)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unstage(); err != nil {
			p.log.Warn("failed to remove staged source %s: %v", path, err)
		}
	}()

	info, err := p.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	if !info.HasAudio() || info.Channels <= 0 || info.SampleRate <= 0 {
		return nil, ErrNoAudioStream
	}
	if err := pcm.CheckShape(info.Channels, info.SampleRate); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, p.cfg.FFmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-vn",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", strconv.Itoa(info.Channels),
		"-ar", strconv.Itoa(info.SampleRate),
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	untrack := p.track("decode:"+src.Name, cmd)
	defer untrack()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg decode error: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	samples := bytesToFloat32(stdout.Bytes())
	buf, err := pcm.Deinterleave(samples, info.Channels, info.SampleRate)
	if err != nil {
		return nil, err
	}
	p.log.Debug("decoded %s: %s %dch %dHz %v", src.Name, info.AudioCodec, info.Channels, info.SampleRate, buf.Duration())
	return buf, nil
}

// bytesToFloat32 reads little-endian float32 samples. A trailing partial
// sample is dropped.
func bytesToFloat32(raw []byte) []float32 {
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}
