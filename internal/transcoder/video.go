package transcoder

import (
	"context"
	"fmt"
	"time"

	"media-converter/internal/capture"
	"media-converter/internal/codec"
	"media-converter/internal/formats"
	"media-converter/internal/progress"
)

// ConvertVideo plays src onto a rendering surface that is captured live
// with the negotiated video codec. There is no fallback container: a
// negotiation miss fails before any surface or session exists.
func (t *Transcoder) ConvertVideo(ctx context.Context, src Source, target formats.Format, cb Callbacks) (blob *Blob, err error) {
	start := time.Now()
	defer func() { finish(codec.KindVideo, target, start, err) }()

	if !target.IsVideo() {
		return nil, fmt.Errorf("%w: %q is not a video format", ErrUnsupportedFormat, target)
	}

	log := t.log.With("video").With(src.Name)
	sig, ok := t.negotiate(codec.KindVideo, t.config.VideoCandidates)
	if !ok {
		return nil, newError(ErrCapability, "video recording is not supported on this platform", nil)
	}
	sig = sig.WithBitrate(t.config.VideoBitrate)
	log.Debug("negotiated %s", sig)

	tracker := progress.NewTracker(cb.OnProgress)
	status := progress.NewStatus(cb.OnStatus)
	rel := newReleaser(log)
	defer rel.releaseAll()

	status.Set(StatusConvertingVideo)

	video, err := t.platform.OpenVideo(ctx, src)
	if err != nil {
		return nil, contextErr(ctx, newError(ErrDecode, "the video file could not be loaded", err))
	}
	rel.add("video source", video.Close)

	meta := video.Metadata()
	width, height := meta.Width, meta.Height
	if width <= 0 || height <= 0 {
		width, height = t.config.DefaultWidth, t.config.DefaultHeight
	}
	surface := t.surfaces.NewSurface(width, height)
	rel.add("rendering surface", surface.Remove)

	format := capture.StreamFormat{
		Kind:      codec.KindVideo,
		Width:     width,
		Height:    height,
		FrameRate: t.config.VideoFrameRate,
	}
	rec, err := t.platform.NewRecorder(ctx, format, sig)
	if err != nil {
		return nil, contextErr(ctx, newError(ErrCapture, "the video recorder could not be created", err))
	}
	session := capture.NewSession(rec)
	feed := surface.Feed(session, t.config.VideoFrameRate, t.scheduler)
	// The session is released first so a blocked feed write returns.
	rel.add("surface feed", feed.Stop)
	rel.add("capture session", session.Close)
	trackSession(rel, codec.KindVideo)

	if err := session.Start(t.config.VideoTimeslice); err != nil {
		return nil, contextErr(ctx, newError(ErrCapture, "the video recorder could not start", err))
	}
	feed.Start()

	if err := video.Play(ctx); err != nil {
		return nil, contextErr(ctx, newError(ErrPlayback, "the video could not be played", err))
	}
	log.Debug("capture started at %dx%d, %d fps", width, height, t.config.VideoFrameRate)

	pump := t.scheduler.NewTicker(t.config.PumpInterval)
	rel.add("frame pump", stopper(pump))
	ended := video.Ended()
	var grace <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-pump.C():
			if frame, ok := video.Frame(); ok {
				surface.Draw(frame)
			}
			tracker.Report(progress.Video(video.Position(), meta.Duration))

		case <-ended:
			ended = nil
			pump.Stop()
			if frame, ok := video.Frame(); ok {
				surface.Draw(frame)
			}
			status.Set(StatusFinalizing)
			tracker.Report(progress.Ceiling)
			grace = t.after(t.config.VideoGraceDelay, rel)

		case <-grace:
			grace = nil
			log.Debug("playback ended after %d frame(s), stopping capture", surface.Frames())
			feed.Stop()
			if err := session.Stop(); err != nil {
				return nil, newError(ErrCapture, "the video recorder could not stop", err)
			}

		case err := <-video.Errors():
			return nil, contextErr(ctx, newError(ErrPlayback, "video playback failed", err))

		case err := <-feed.Err():
			return nil, contextErr(ctx, newError(ErrCapture, "the video recorder rejected a frame", err))

		case ev, ok := <-session.Events():
			if !ok {
				return nil, contextErr(ctx, newError(ErrCapture, "the video recorder went away", nil))
			}
			data, done, err := t.handleEvent(session, ev, codec.KindVideo, "video")
			if err != nil {
				return nil, contextErr(ctx, err)
			}
			if !done {
				continue
			}
			log.Debug("captured %d bytes in %d chunk(s)", len(data), session.Chunks())
			blob := &Blob{MIME: outputMIME(target, sig), Data: data}
			if t.config.PosterSize > 0 {
				if poster, err := surface.Poster(t.config.PosterSize); err == nil {
					blob.Poster = poster
				} else {
					log.Debug("no poster: %v", err)
				}
			}
			if err := session.Close(); err != nil {
				return nil, newError(ErrCapture, "the video recorder could not be closed", err)
			}
			tracker.Complete()
			return blob, nil
		}
	}
}
