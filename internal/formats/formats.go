package formats

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is an output format token.
type Format string

// Audio formats.
const (
	MP3  Format = "MP3"
	WAV  Format = "WAV"
	OGG  Format = "OGG"
	AAC  Format = "AAC"
	FLAC Format = "FLAC"
)

// Video formats.
const (
	MP4  Format = "MP4"
	WEBM Format = "WEBM"
	GIF  Format = "GIF"
	AVI  Format = "AVI"
	MOV  Format = "MOV"
	MKV  Format = "MKV"
)

// Category groups formats by the pipeline that produces them.
type Category string

const (
	// CategoryAudio is handled by the audio re-encode pipeline.
	CategoryAudio Category = "audio"
	// CategoryVideo is handled by the video re-encode pipeline.
	CategoryVideo Category = "video"
	// CategoryOther is any token the converter does not handle.
	CategoryOther Category = "other"
)

// AudioFormats lists audio targets in display order.
var AudioFormats = []Format{MP3, WAV, OGG, AAC, FLAC}

// VideoFormats lists video targets in display order.
var VideoFormats = []Format{MP4, WEBM, GIF, AVI, MOV, MKV}

// MimeTypes maps each format to the MIME type declared on its output.
var MimeTypes = map[Format]string{
	MP3:  "audio/mpeg",
	WAV:  "audio/wav",
	OGG:  "audio/ogg",
	AAC:  "audio/aac",
	FLAC: "audio/flac",

	MP4:  "video/mp4",
	WEBM: "video/webm",
	GIF:  "image/gif",
	AVI:  "video/x-msvideo",
	MOV:  "video/quicktime",
	MKV:  "video/x-matroska",
}

var audioSet = map[Format]bool{MP3: true, WAV: true, OGG: true, AAC: true, FLAC: true}

var videoSet = map[Format]bool{MP4: true, WEBM: true, GIF: true, AVI: true, MOV: true, MKV: true}

// Parse converts a user-supplied token ("mp3", ".WebM") into a Format.
func Parse(s string) (Format, error) {
	f := Format(strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	if !audioSet[f] && !videoSet[f] {
		return "", fmt.Errorf("unsupported output format %q", s)
	}
	return f, nil
}

// IsAudio reports whether f is produced by the audio pipeline.
func (f Format) IsAudio() bool {
	return audioSet[f]
}

// IsVideo reports whether f is produced by the video pipeline.
func (f Format) IsVideo() bool {
	return videoSet[f]
}

// Category returns the pipeline category of f.
func (f Format) Category() Category {
	switch {
	case f.IsAudio():
		return CategoryAudio
	case f.IsVideo():
		return CategoryVideo
	default:
		return CategoryOther
	}
}

// MIME returns the declared MIME type of f.
func (f Format) MIME() (string, bool) {
	m, ok := MimeTypes[f]
	return m, ok
}

// Extension returns the lower-case file extension with a leading dot.
func (f Format) Extension() string {
	return "." + strings.ToLower(string(f))
}

// OutputName replaces the extension of name with the one for f.
func OutputName(name string, f Format) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		base = "output"
	}
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base + f.Extension()
}

// Targets returns the output formats offered per category.
func Targets() map[Category][]Format {
	return map[Category][]Format{
		CategoryAudio: append([]Format(nil), AudioFormats...),
		CategoryVideo: append([]Format(nil), VideoFormats...),
	}
}

// ForMIME returns the format whose declared MIME type matches mime,
// ignoring parameters.
func ForMIME(mime string) (Format, bool) {
	base, _, _ := strings.Cut(mime, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	for f, m := range MimeTypes {
		if m == base {
			return f, true
		}
	}
	return "", false
}
