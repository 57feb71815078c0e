package transcoder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"media-converter/internal/capture"
	"media-converter/internal/codec"
	"media-converter/internal/formats"
	"media-converter/internal/logging"
	"media-converter/internal/pcm"
	"media-converter/internal/progress"
)

// Progress checkpoints of the audio pipeline before capture starts.
const (
	audioProgressStarted = 10
	audioProgressRead    = 30
)

// ConvertAudio decodes src into a sample buffer and either packs it as WAV
// or re-records it through a playback graph with the negotiated codec. When
// no audio codec can be negotiated the result falls back to WAV.
func (t *Transcoder) ConvertAudio(ctx context.Context, src Source, target formats.Format, cb Callbacks) (blob *Blob, err error) {
	start := time.Now()
	defer func() { finish(codec.KindAudio, target, start, err) }()

	if !target.IsAudio() {
		return nil, fmt.Errorf("%w: %q is not an audio format", ErrUnsupportedFormat, target)
	}

	log := t.log.With("audio").With(src.Name)
	tracker := progress.NewTracker(cb.OnProgress)
	status := progress.NewStatus(cb.OnStatus)
	rel := newReleaser(log)
	defer rel.releaseAll()

	status.Set(StatusDecodingAudio)
	tracker.Report(audioProgressStarted)
	if len(src.Data) == 0 {
		return nil, newError(ErrDecode, "the file is empty", nil)
	}
	tracker.Report(audioProgressRead)

	buf, err := t.platform.DecodeAudio(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newError(ErrDecode, "this file could not be decoded, try a different format", err)
	}
	if err := buf.Validate(); err != nil {
		return nil, newError(ErrDecode, "the decoder returned no usable audio", err)
	}
	log.Debug("decoded %d channel(s) at %d Hz, %v", buf.NumChannels(), buf.SampleRate, buf.Duration())
	tracker.Report(progress.AudioBase)
	status.Set(StatusEncoding)

	if target == formats.WAV {
		return t.packWAV(buf, tracker)
	}

	sig, ok := t.negotiate(codec.KindAudio, t.config.AudioCandidates)
	if !ok {
		log.Info("no audio capture codec available, falling back to WAV")
		if o := observe(); o != nil {
			o.ObserveFallback(string(target))
		}
		status.Set(fmt.Sprintf("Encoding as WAV (%s is not supported here)…", target))
		return t.packWAV(buf, tracker)
	}
	log.Debug("negotiated %s", sig)

	data, err := t.recordAudio(ctx, buf, sig, tracker, rel, log)
	if err != nil {
		return nil, err
	}
	tracker.Complete()
	return &Blob{MIME: outputMIME(target, sig), Data: data}, nil
}

// recordAudio plays buf into a fresh capture session and returns the
// captured bytes once the session stopped after natural end of playback.
func (t *Transcoder) recordAudio(ctx context.Context, buf *pcm.Buffer, sig codec.Signature, tracker *progress.Tracker, rel *releaser, log *logging.Logger) ([]byte, error) {
	format := capture.StreamFormat{
		Kind:       codec.KindAudio,
		SampleRate: buf.SampleRate,
		Channels:   buf.NumChannels(),
	}
	rec, err := t.platform.NewRecorder(ctx, format, sig)
	if err != nil {
		return nil, contextErr(ctx, newError(ErrCapture, "the audio recorder could not be created", err))
	}
	session := capture.NewSession(rec)

	graph := newPlaybackGraph(buf, session)
	// The session is released first so a blocked graph write returns.
	rel.add("playback graph", graph.Close)
	rel.add("capture session", session.Close)
	trackSession(rel, codec.KindAudio)

	if err := session.Start(t.config.AudioTimeslice); err != nil {
		return nil, contextErr(ctx, newError(ErrCapture, "the audio recorder could not start", err))
	}
	started := graph.Start(ctx)
	log.Debug("capture started, playing %v", buf.Duration())

	ticker := t.scheduler.NewTicker(t.config.AudioProgressInterval)
	rel.add("progress timer", stopper(ticker))
	ended := graph.Done()
	var grace <-chan time.Time
	duration := buf.Duration()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-ticker.C():
			tracker.Report(progress.Audio(time.Since(started), duration))

		case <-ended:
			ended = nil
			ticker.Stop()
			tracker.Report(progress.Ceiling)
			grace = t.after(t.config.AudioGraceDelay, rel)

		case <-grace:
			grace = nil
			log.Debug("playback ended, stopping capture")
			if err := session.Stop(); err != nil {
				return nil, newError(ErrCapture, "the audio recorder could not stop", err)
			}

		case err := <-graph.Err():
			return nil, contextErr(ctx, newError(ErrCapture, "the audio recorder rejected input", err))

		case ev, ok := <-session.Events():
			if !ok {
				return nil, contextErr(ctx, newError(ErrCapture, "the audio recorder went away", nil))
			}
			data, done, err := t.handleEvent(session, ev, codec.KindAudio, "audio")
			if err != nil {
				return nil, contextErr(ctx, err)
			}
			if done {
				log.Debug("captured %d bytes in %d chunk(s)", len(data), session.Chunks())
				if err := session.Close(); err != nil {
					return nil, newError(ErrCapture, "the audio recorder could not be closed", err)
				}
				return data, nil
			}
		}
	}
}

// handleEvent applies a recorder event and, on a confirmed stop, returns
// the captured bytes.
func (t *Transcoder) handleEvent(session *capture.Session, ev capture.Event, kind codec.Kind, noun string) ([]byte, bool, error) {
	requested := session.State() == capture.StateStopping
	stopped, err := session.Handle(ev)
	if err != nil {
		return nil, false, newError(ErrCapture, "the "+noun+" recorder reported an error", err)
	}
	if ev.Type == capture.EventData {
		if o := observe(); o != nil {
			o.ObserveCapturedBytes(kind, len(ev.Data))
		}
	}
	if !stopped {
		return nil, false, nil
	}
	if !requested {
		return nil, false, newError(ErrCapture, "the "+noun+" recorder stopped unexpectedly", nil)
	}
	data, err := session.Bytes()
	if errors.Is(err, capture.ErrNoData) {
		return nil, false, newError(ErrCapture, "no "+noun+" data was captured, recording is likely unsupported on this platform", err)
	}
	if err != nil {
		return nil, false, newError(ErrCapture, "the captured "+noun+" could not be read", err)
	}
	return data, true, nil
}

// after returns a channel that fires once after d. A non-positive d fires
// immediately.
func (t *Transcoder) after(d time.Duration, rel *releaser) <-chan time.Time {
	if d <= 0 {
		c := make(chan time.Time, 1)
		c <- time.Now()
		return c
	}
	ticker := t.scheduler.NewTicker(d)
	rel.add("grace timer", stopper(ticker))
	return ticker.C()
}

func stopper(tk Ticker) func() error {
	return func() error {
		tk.Stop()
		return nil
	}
}
