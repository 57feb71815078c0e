package pcm

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyBuffer is returned for a buffer without channels.
var ErrEmptyBuffer = errors.New("sample buffer has no channels")

// ErrUnsupportedShape is returned for channel counts or sample rates
// outside what the pipeline plays.
var ErrUnsupportedShape = errors.New("unsupported audio shape")

// Limits on decoded audio. Headers declaring more are rejected before
// any sample storage is allocated.
const (
	MaxChannels   = 32
	MinSampleRate = 8000
	MaxSampleRate = 384000
)

// CheckShape reports whether channels and sampleRate are within limits.
func CheckShape(channels, sampleRate int) error {
	if channels <= 0 || channels > MaxChannels {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedShape, channels)
	}
	if sampleRate < MinSampleRate || sampleRate > MaxSampleRate {
		return fmt.Errorf("%w: %d Hz", ErrUnsupportedShape, sampleRate)
	}
	return nil
}

// Buffer is fully decoded audio: one slice of normalized samples per
// channel plus the sample rate. It is not modified after decoding.
type Buffer struct {
	Channels   [][]float32
	SampleRate int
}

// NewBuffer allocates a silent buffer of the given shape.
func NewBuffer(channels, frames, sampleRate int) *Buffer {
	b := &Buffer{
		Channels:   make([][]float32, channels),
		SampleRate: sampleRate,
	}
	for i := range b.Channels {
		b.Channels[i] = make([]float32, frames)
	}
	return b
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	return len(b.Channels)
}

// Len returns the number of sample frames (samples per channel).
func (b *Buffer) Len() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(b.Len()) * int64(time.Second) / int64(b.SampleRate))
}

// Validate checks the buffer is packable: a shape within limits and
// equal-length channels.
func (b *Buffer) Validate() error {
	if b == nil || len(b.Channels) == 0 {
		return ErrEmptyBuffer
	}
	if err := CheckShape(len(b.Channels), b.SampleRate); err != nil {
		return err
	}
	n := len(b.Channels[0])
	for i, ch := range b.Channels {
		if len(ch) != n {
			return fmt.Errorf("channel %d has %d samples, expected %d", i, len(ch), n)
		}
	}
	return nil
}

// Interleave writes frames [from, to) as interleaved float32 samples into
// dst and returns the filled slice. dst is reused when large enough.
func (b *Buffer) Interleave(dst []float32, from, to int) []float32 {
	if to > b.Len() {
		to = b.Len()
	}
	if from >= to {
		return dst[:0]
	}
	nch := b.NumChannels()
	need := (to - from) * nch
	if cap(dst) < need {
		dst = make([]float32, need)
	}
	dst = dst[:need]
	k := 0
	for i := from; i < to; i++ {
		for ch := 0; ch < nch; ch++ {
			dst[k] = b.Channels[ch][i]
			k++
		}
	}
	return dst
}

// Deinterleave builds a Buffer from interleaved samples. Trailing samples
// that do not form a whole frame are dropped.
func Deinterleave(samples []float32, channels, sampleRate int) (*Buffer, error) {
	if channels <= 0 {
		return nil, ErrEmptyBuffer
	}
	if err := CheckShape(channels, sampleRate); err != nil {
		return nil, err
	}
	frames := len(samples) / channels
	b := NewBuffer(channels, frames, sampleRate)
	k := 0
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			b.Channels[ch][i] = samples[k]
			k++
		}
	}
	return b, b.Validate()
}
