package codec

import (
	"fmt"
	"strings"
)

// Kind is the media kind a capture produces.
type Kind string

const (
	// KindAudio is an audio-only capture.
	KindAudio Kind = "audio"
	// KindVideo is a video capture.
	KindVideo Kind = "video"
)

// Signature is a candidate capture format.
type Signature struct {
	// Container is the MIME subtype, e.g. "webm".
	Container string
	// Codecs lists the codecs parameter in order, e.g. ["vp9", "opus"].
	Codecs []string
	// MIME is the full type string as handed to the platform.
	MIME string
	// BitsPerSecond is a target bitrate hint (0 = platform default).
	BitsPerSecond int
}

// ParseSignature parses a MIME string of the form
// "type/container[;codecs=a,b]".
func ParseSignature(mime string) (Signature, error) {
	raw := strings.TrimSpace(mime)
	base, params, _ := strings.Cut(raw, ";")
	major, container, ok := strings.Cut(strings.TrimSpace(base), "/")
	if !ok || major == "" || container == "" {
		return Signature{}, fmt.Errorf("invalid capture type %q", mime)
	}

	sig := Signature{
		Container: strings.ToLower(container),
		MIME:      raw,
	}

	for _, p := range strings.Split(params, ";") {
		key, val, found := strings.Cut(strings.TrimSpace(p), "=")
		if !found || !strings.EqualFold(strings.TrimSpace(key), "codecs") {
			continue
		}
		val = strings.Trim(strings.TrimSpace(val), `"`)
		for _, c := range strings.Split(val, ",") {
			if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
				sig.Codecs = append(sig.Codecs, c)
			}
		}
	}

	return sig, nil
}

// MustParse is ParseSignature for static candidate tables.
func MustParse(mime string) Signature {
	sig, err := ParseSignature(mime)
	if err != nil {
		panic(err)
	}
	return sig
}

// Kind reports the media kind from the MIME major type.
func (s Signature) Kind() Kind {
	if strings.HasPrefix(strings.ToLower(s.MIME), "video/") {
		return KindVideo
	}
	return KindAudio
}

// BaseType returns the MIME type without parameters ("video/webm").
func (s Signature) BaseType() string {
	base, _, _ := strings.Cut(s.MIME, ";")
	return strings.TrimSpace(base)
}

// WithBitrate returns a copy carrying the given bitrate hint.
func (s Signature) WithBitrate(bps int) Signature {
	s.Codecs = append([]string(nil), s.Codecs...)
	s.BitsPerSecond = bps
	return s
}

// IsZero reports whether s is the zero Signature.
func (s Signature) IsZero() bool {
	return s.MIME == ""
}

func (s Signature) String() string {
	if s.BitsPerSecond > 0 {
		return fmt.Sprintf("%s@%dbps", s.MIME, s.BitsPerSecond)
	}
	return s.MIME
}
