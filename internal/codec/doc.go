// Package codec negotiates which (container, codec) combination the host
// platform can capture into.
//
// A [Signature] is proposed output: a MIME type such as
// "video/webm;codecs=vp9,opus" plus an optional bitrate hint. The
// [Negotiator] walks an ordered candidate list and returns the first one
// the injected [Support] reports as capturable. It holds no state, so a
// pipeline under test can be given a mocked platform through
// [SupportFunc].
package codec
