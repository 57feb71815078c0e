// Package ffmpeg implements the conversion platform on top of the ffmpeg
// and ffprobe binaries.
//
// It provides:
//   - Capture capability checks from the encoders and muxers ffmpeg was built with
//   - Audio decoding into float sample buffers (WAV is read natively)
//   - Paced RGBA playback of video sources
//   - Recorders that encode raw PCM or RGBA frames piped on stdin
//
// Source bytes are staged in temporary files so ffprobe and ffmpeg can
// seek. Every spawned process is tracked and killed by Cleanup.
package ffmpeg
