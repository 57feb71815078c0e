package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// HeaderSize is the size of the canonical RIFF/WAVE header written by
// EncodeWAV.
const HeaderSize = 44

// MIMEType is the content type of EncodeWAV output.
const MIMEType = "audio/wav"

const (
	formatPCM        = 1
	formatFloat      = 3
	formatExtensible = 0xFFFE
)

// ErrNotWAV is returned by DecodeWAV for data that is not a RIFF/WAVE file.
var ErrNotWAV = errors.New("not a RIFF/WAVE file")

// Header is the decoded fmt/data description of a WAV file.
type Header struct {
	Format        int
	Channels      int
	SampleRate    int
	ByteRate      int
	BlockAlign    int
	BitsPerSample int
	DataOffset    int
	DataSize      int
}

// EncodeWAV packs b into a 16-bit PCM WAV file. Samples are clamped to
// [-1, 1] and scaled asymmetrically (0x8000 below zero, 0x7FFF above).
func EncodeWAV(b *Buffer) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	nch := b.NumChannels()
	frames := b.Len()
	blockAlign := nch * 2
	dataSize := frames * blockAlign
	if uint64(dataSize)+36 > math.MaxUint32 {
		return nil, fmt.Errorf("audio too long for WAV: %d bytes", dataSize)
	}

	out := make([]byte, HeaderSize+dataSize)
	le := binary.LittleEndian

	copy(out[0:], "RIFF")
	le.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	le.PutUint32(out[16:], 16)
	le.PutUint16(out[20:], formatPCM)
	le.PutUint16(out[22:], uint16(nch))
	le.PutUint32(out[24:], uint32(b.SampleRate))
	le.PutUint32(out[28:], uint32(b.SampleRate*blockAlign))
	le.PutUint16(out[32:], uint16(blockAlign))
	le.PutUint16(out[34:], 16)
	copy(out[36:], "data")
	le.PutUint32(out[40:], uint32(dataSize))

	off := HeaderSize
	for i := 0; i < frames; i++ {
		for ch := 0; ch < nch; ch++ {
			le.PutUint16(out[off:], uint16(quantize(b.Channels[ch][i])))
			off += 2
		}
	}

	return out, nil
}

func quantize(s float32) int16 {
	v := float64(s)
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(-1, math.Min(1, v))
	if v < 0 {
		return int16(v * 0x8000)
	}
	return int16(v * 0x7FFF)
}

// ReadHeader parses the fmt and data chunks of a WAV file.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Header{}, ErrNotWAV
	}

	le := binary.LittleEndian
	var (
		h      Header
		gotFmt bool
	)

	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(le.Uint32(data[off+4:]))
		body := off + 8
		if body+size > len(data) {
			if id != "data" || !gotFmt {
				return Header{}, fmt.Errorf("chunk %q overruns file", id)
			}
			// truncated data chunk: keep what is there
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Header{}, fmt.Errorf("fmt chunk too short: %d", size)
			}
			h.Format = int(le.Uint16(data[body:]))
			h.Channels = int(le.Uint16(data[body+2:]))
			h.SampleRate = int(le.Uint32(data[body+4:]))
			h.ByteRate = int(le.Uint32(data[body+8:]))
			h.BlockAlign = int(le.Uint16(data[body+12:]))
			h.BitsPerSample = int(le.Uint16(data[body+14:]))
			if h.Format == formatExtensible && size >= 40 {
				h.Format = int(le.Uint16(data[body+24:]))
			}
			gotFmt = true
		case "data":
			if !gotFmt {
				return Header{}, errors.New("data chunk before fmt chunk")
			}
			h.DataOffset = body
			h.DataSize = size
			return h, nil
		}

		off = body + size + size&1
	}

	return Header{}, errors.New("missing data chunk")
}

// DecodeWAV decodes 8/16/24/32-bit integer PCM and 32-bit float WAV data.
func DecodeWAV(data []byte) (*Buffer, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	if err := CheckShape(h.Channels, h.SampleRate); err != nil {
		return nil, fmt.Errorf("invalid WAV header: %w", err)
	}
	width := h.BitsPerSample / 8
	if width <= 0 {
		return nil, fmt.Errorf("unsupported bit depth %d", h.BitsPerSample)
	}

	raw := data[h.DataOffset : h.DataOffset+h.DataSize]
	frame := width * h.Channels
	frames := len(raw) / frame
	b := NewBuffer(h.Channels, frames, h.SampleRate)
	le := binary.LittleEndian

	for i := 0; i < frames; i++ {
		for ch := 0; ch < h.Channels; ch++ {
			p := raw[i*frame+ch*width:]
			var v float32
			switch {
			case h.Format == formatFloat && width == 4:
				v = math.Float32frombits(le.Uint32(p))
			case h.Format == formatPCM && width == 1:
				v = float32(int(p[0])-128) / 128
			case h.Format == formatPCM && width == 2:
				v = float32(int16(le.Uint16(p))) / 32768
			case h.Format == formatPCM && width == 3:
				s := int32(p[0]) | int32(p[1])<<8 | int32(int8(p[2]))<<16
				v = float32(s) / 8388608
			case h.Format == formatPCM && width == 4:
				v = float32(float64(int32(le.Uint32(p))) / 2147483648)
			default:
				return nil, fmt.Errorf("unsupported WAV encoding: format %d, %d bits", h.Format, h.BitsPerSample)
			}
			b.Channels[ch][i] = v
		}
	}

	return b, nil
}
