// Package transcoder converts decoded audio and video into another
// container by replaying it through a live capture sink.
//
// There is no codec in this package. Each conversion orchestrates host
// primitives supplied through [Platform]:
//
//   - Audio: decode to a sample buffer, then either pack it straight into
//     WAV or play it through a paced playback graph into a recorder bound
//     to the negotiated codec.
//   - Video: open the source, pump presentable frames onto a rendering
//     surface on every scheduler tick while the surface is fed to a
//     recorder at a fixed frame rate, and stop capture a short grace delay
//     after playback ends.
//
// Progress is reported through optional callbacks and never exceeds 99
// until capture has closed successfully. Every resource a conversion
// acquires is released exactly once on every exit path.
//
// Conversions are independent; callers that process a queue of files run
// them one at a time (see the jobs package).
package transcoder
