// Package formats provides the output format tokens accepted by the
// converter and the MIME tables that go with them.
//
// This package is a dependency-free foundation imported by the transcoder,
// the job queue and the HTTP handlers.
//
// # Format Tokens
//
// Output formats are upper-case tokens grouped by category:
//
//	formats.MP3, formats.WAV, formats.OGG, formats.AAC, formats.FLAC  // audio
//	formats.MP4, formats.WEBM, formats.GIF, formats.AVI, formats.MOV,
//	formats.MKV                                                         // video
//
// Parse accepts any casing and an optional leading dot:
//
//	f, err := formats.Parse(".webm") // formats.WEBM
//
// # MIME Types
//
// MIME returns the declared type of a requested output. The captured data
// may be in a different container (live capture usually yields WebM), so
// callers fall back to the negotiated capture type when no mapping exists.
//
// # Sniffing
//
// Sniff inspects leading bytes to identify the container of an upload when
// the client did not declare one.
package formats
