package transcoder

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"time"

	"media-converter/internal/pcm"
)

const (
	// graphQuantum is the playback span written to the sink per step.
	graphQuantum = 20 * time.Millisecond
	// graphMaxStep caps the frames per step whatever the sample rate.
	graphMaxStep = 8192
)

// playbackGraph plays a Sample Buffer into a capture sink as interleaved
// little-endian float32, paced against wall-clock time. It is started once
// and signals its natural end by closing Done.
type playbackGraph struct {
	buf  *pcm.Buffer
	sink io.Writer

	done    chan struct{}
	errc    chan error
	stop    chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
	started time.Time
}

func newPlaybackGraph(buf *pcm.Buffer, sink io.Writer) *playbackGraph {
	return &playbackGraph{
		buf:  buf,
		sink: sink,
		done: make(chan struct{}),
		errc: make(chan error, 1),
		stop: make(chan struct{}),
	}
}

// Start begins playback and returns the start instant.
func (g *playbackGraph) Start(ctx context.Context) time.Time {
	g.started = time.Now()
	g.wg.Add(1)
	go g.run(ctx)
	return g.started
}

// Done is closed when the whole buffer has been played.
func (g *playbackGraph) Done() <-chan struct{} {
	return g.done
}

// Err delivers a failed write to the sink.
func (g *playbackGraph) Err() <-chan error {
	return g.errc
}

// Close stops playback and waits for the producer to exit.
func (g *playbackGraph) Close() error {
	g.stopped.Do(func() { close(g.stop) })
	g.wg.Wait()
	return nil
}

func (g *playbackGraph) run(ctx context.Context) {
	defer g.wg.Done()

	step := min(max(int(float64(g.buf.SampleRate)*graphQuantum.Seconds()), 1), graphMaxStep)
	total := g.buf.Len()
	channels := g.buf.NumChannels()

	samples := make([]float32, 0, step*channels)
	raw := make([]byte, 0, step*channels*4)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for pos := 0; pos < total; {
		end := pos + step
		if end > total {
			end = total
		}
		samples = g.buf.Interleave(samples[:0], pos, end)
		raw = raw[:0]
		for _, s := range samples {
			raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(s))
		}
		if _, err := g.sink.Write(raw); err != nil {
			select {
			case g.errc <- err:
			default:
			}
			return
		}
		pos = end

		// Sleep until the wall clock catches up with what was played.
		played := time.Duration(float64(pos) / float64(g.buf.SampleRate) * float64(time.Second))
		if wait := time.Until(g.started.Add(played)); wait > 0 {
			timer.Reset(wait)
			select {
			case <-timer.C:
			case <-g.stop:
				return
			case <-ctx.Done():
				return
			}
		} else {
			select {
			case <-g.stop:
				return
			case <-ctx.Done():
				return
			default:
			}
		}
	}
	close(g.done)
}
