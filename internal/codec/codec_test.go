package codec

import (
	"reflect"
	"testing"
)

func TestParseSignature(t *testing.T) {
	tests := []struct {
		name      string
		mime      string
		container string
		codecs    []string
		kind      Kind
		wantErr   bool
	}{
		{"video with codecs", "video/webm;codecs=vp9,opus", "webm", []string{"vp9", "opus"}, KindVideo, false},
		{"quoted codecs", `audio/ogg; codecs="opus"`, "ogg", []string{"opus"}, KindAudio, false},
		{"no codecs", "video/webm", "webm", nil, KindVideo, false},
		{"upper case", "AUDIO/WEBM;CODECS=OPUS", "webm", []string{"opus"}, KindAudio, false},
		{"missing subtype", "audio", "", nil, "", true},
		{"empty", "", "", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := ParseSignature(tt.mime)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q", tt.mime)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSignature(%q) error: %v", tt.mime, err)
			}
			if sig.Container != tt.container {
				t.Errorf("Expected container=%s, got %s", tt.container, sig.Container)
			}
			if !reflect.DeepEqual(sig.Codecs, tt.codecs) {
				t.Errorf("Expected codecs=%v, got %v", tt.codecs, sig.Codecs)
			}
			if sig.Kind() != tt.kind {
				t.Errorf("Expected kind=%s, got %s", tt.kind, sig.Kind())
			}
		})
	}
}

func TestSignatureHelpers(t *testing.T) {
	sig := MustParse("video/webm;codecs=vp8,opus")

	if sig.BaseType() != "video/webm" {
		t.Errorf("Expected base type video/webm, got %s", sig.BaseType())
	}

	withRate := sig.WithBitrate(4_000_000)
	if withRate.BitsPerSecond != 4_000_000 {
		t.Errorf("Expected bitrate hint to be set")
	}
	if sig.BitsPerSecond != 0 {
		t.Errorf("WithBitrate must not mutate the receiver")
	}
	if withRate.String() != "video/webm;codecs=vp8,opus@4000000bps" {
		t.Errorf("Unexpected String(): %s", withRate.String())
	}
	if !(Signature{}).IsZero() {
		t.Error("Expected zero signature to report IsZero")
	}
}

func TestNegotiatePicksFirstSupported(t *testing.T) {
	var asked []string
	n := NewNegotiator(SupportFunc(func(mime string) bool {
		asked = append(asked, mime)
		return mime == "video/webm;codecs=vp8,opus" || mime == "video/webm"
	}))

	sig, ok := n.Negotiate(KindVideo, VideoCandidates)
	if !ok {
		t.Fatal("Expected a signature")
	}
	if sig.MIME != "video/webm;codecs=vp8,opus" {
		t.Errorf("Expected vp8 signature, got %s", sig.MIME)
	}

	expected := []string{"video/webm;codecs=vp9,opus", "video/webm;codecs=vp8,opus"}
	if !reflect.DeepEqual(asked, expected) {
		t.Errorf("Expected probes %v, got %v", expected, asked)
	}
}

func TestNegotiateNoneSupported(t *testing.T) {
	n := NewNegotiator(SupportFunc(func(string) bool { return false }))

	for _, kind := range []Kind{KindAudio, KindVideo} {
		if sig, ok := n.Negotiate(kind, Candidates(kind)); ok || !sig.IsZero() {
			t.Errorf("Expected no signature for %s, got %v", kind, sig)
		}
	}
}

func TestNegotiateSkipsOtherKind(t *testing.T) {
	n := NewNegotiator(SupportFunc(func(string) bool { return true }))

	sig, ok := n.Negotiate(KindAudio, append(append([]Signature{}, VideoCandidates...), AudioCandidates...))
	if !ok {
		t.Fatal("Expected an audio signature")
	}
	if sig.Kind() != KindAudio {
		t.Errorf("Expected audio signature, got %s", sig.MIME)
	}
}

func TestNegotiateNilSupport(t *testing.T) {
	var n Negotiator
	if _, ok := n.Negotiate(KindAudio, AudioCandidates); ok {
		t.Error("Expected nil support to negotiate nothing")
	}
	if SupportFunc(nil).IsTypeSupported("audio/webm") {
		t.Error("Expected nil SupportFunc to report unsupported")
	}
}

func TestNegotiateIsDeterministic(t *testing.T) {
	n := NewNegotiator(SupportFunc(func(mime string) bool { return mime == "audio/ogg;codecs=opus" }))
	first, _ := n.Negotiate(KindAudio, AudioCandidates)
	for i := 0; i < 5; i++ {
		again, _ := n.Negotiate(KindAudio, AudioCandidates)
		if again.MIME != first.MIME {
			t.Fatalf("Negotiation changed between calls: %s vs %s", first.MIME, again.MIME)
		}
	}
}
