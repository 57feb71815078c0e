package codec

// Support answers whether the host platform can capture a MIME type.
type Support interface {
	IsTypeSupported(mime string) bool
}

// SupportFunc adapts a plain function to Support.
type SupportFunc func(mime string) bool

// IsTypeSupported implements Support.
func (f SupportFunc) IsTypeSupported(mime string) bool {
	if f == nil {
		return false
	}
	return f(mime)
}

// Default candidate lists, best first.
var (
	VideoCandidates = []Signature{
		MustParse("video/webm;codecs=vp9,opus"),
		MustParse("video/webm;codecs=vp8,opus"),
		MustParse("video/webm"),
	}

	AudioCandidates = []Signature{
		MustParse("audio/webm;codecs=opus"),
		MustParse("audio/ogg;codecs=opus"),
		MustParse("audio/webm"),
	}
)

// Candidates returns the default candidate list for kind.
func Candidates(kind Kind) []Signature {
	if kind == KindVideo {
		return VideoCandidates
	}
	return AudioCandidates
}

// Negotiator picks the first capturable signature from a candidate list.
type Negotiator struct {
	support Support
}

// NewNegotiator returns a Negotiator backed by the given platform support.
func NewNegotiator(support Support) Negotiator {
	return Negotiator{support: support}
}

// Negotiate returns the first candidate of the requested kind that the
// platform reports as supported. The boolean is false when none is.
func (n Negotiator) Negotiate(kind Kind, candidates []Signature) (Signature, bool) {
	if n.support == nil {
		return Signature{}, false
	}
	for _, c := range candidates {
		if c.IsZero() || c.Kind() != kind {
			continue
		}
		if n.support.IsTypeSupported(c.MIME) {
			return c, true
		}
	}
	return Signature{}, false
}
