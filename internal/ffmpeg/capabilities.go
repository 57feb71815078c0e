package ffmpeg

import (
	"bufio"
	"strings"

	"media-converter/internal/codec"
)

// Capabilities is what the ffmpeg binary can encode and mux.
type Capabilities struct {
	Encoders map[string]bool
	Muxers   map[string]bool
}

// codecEncoders maps capture codec names to ffmpeg encoders, best first.
var codecEncoders = map[string][]string{
	"opus":   {"libopus", "opus"},
	"vorbis": {"libvorbis", "vorbis"},
	"vp8":    {"libvpx"},
	"vp9":    {"libvpx-vp9"},
	"aac":    {"aac"},
	"mp3":    {"libmp3lame"},
	"flac":   {"flac"},
	"h264":   {"libx264"},
	"avc1":   {"libx264"},
}

// containerMuxers maps MIME subtypes to ffmpeg muxers.
var containerMuxers = map[string]string{
	"webm":       "webm",
	"ogg":        "ogg",
	"mp4":        "mp4",
	"x-matroska": "matroska",
	"matroska":   "matroska",
	"quicktime":  "mov",
	"mpeg":       "mp3",
	"wav":        "wav",
	"flac":       "flac",
	"aac":        "adts",
}

// defaultCodecs are used when a signature names no codecs.
var defaultCodecs = map[codec.Kind]map[string]string{
	codec.KindVideo: {"webm": "vp8", "mp4": "h264", "x-matroska": "vp8", "quicktime": "h264", "ogg": "vp8"},
	codec.KindAudio: {"webm": "opus", "ogg": "opus", "mp4": "aac", "mpeg": "mp3", "flac": "flac", "aac": "aac"},
}

// ParseEncoders reads the name column of `ffmpeg -encoders`.
func ParseEncoders(out string) map[string]bool {
	return parseTable(out)
}

// ParseMuxers reads the name column of `ffmpeg -muxers`. Comma separated
// aliases are split.
func ParseMuxers(out string) map[string]bool {
	return parseTable(out)
}

func isSeparator(line string) bool {
	line = strings.TrimSpace(line)
	return len(line) >= 2 && strings.Trim(line, "-") == ""
}

// parseTable collects the second field of every line after the dashed
// separator that ends the legend.
func parseTable(out string) map[string]bool {
	names := make(map[string]bool)
	body := false
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if !body {
			body = isSeparator(line)
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		for _, name := range strings.Split(fields[1], ",") {
			if name != "" {
				names[name] = true
			}
		}
	}
	return names
}

// Supports reports whether the container muxer and an encoder for every
// listed codec are available.
func (c *Capabilities) Supports(mime string) bool {
	if c == nil {
		return false
	}
	sig, err := codec.ParseSignature(mime)
	if err != nil {
		return false
	}
	if !c.Muxers[containerMuxers[sig.Container]] {
		return false
	}
	codecs := sig.Codecs
	if len(codecs) == 0 {
		def, ok := defaultCodecs[sig.Kind()][sig.Container]
		if !ok {
			return false
		}
		codecs = []string{def}
	}
	for _, name := range codecs {
		if c.encoderFor(name) == "" {
			return false
		}
	}
	return true
}

// encoderFor returns the first available encoder for a codec name.
func (c *Capabilities) encoderFor(name string) string {
	for _, enc := range codecEncoders[name] {
		if c.Encoders[enc] {
			return enc
		}
	}
	return ""
}

// isVideoCodec reports whether name is a video codec.
func isVideoCodec(name string) bool {
	switch name {
	case "vp8", "vp9", "h264", "avc1":
		return true
	}
	return false
}

// selectCodec returns the codec a recorder of kind should encode with.
func selectCodec(kind codec.Kind, sig codec.Signature) string {
	for _, name := range sig.Codecs {
		if isVideoCodec(name) == (kind == codec.KindVideo) {
			return name
		}
	}
	return defaultCodecs[kind][sig.Container]
}
