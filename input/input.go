// Package input decodes audio files into channel blobs the mixer's
// source segment can consume. WAV, FLAC, Ogg Vorbis and MP3 are
// recognised by sniffing the stream header.
package input

import (
	"errors"
	"fmt"
	"io"

	"github.com/mycophonic/mycelium"
)

// Format is a recognised input container.
type Format uint8

// Supported input formats.
const (
	Unknown Format = iota
	WAV
	FLAC
	Vorbis
	MP3
)

// String returns the human-readable name of the format.
func (f Format) String() string {
	switch f {
	case WAV:
		return "WAV"
	case FLAC:
		return "FLAC"
	case Vorbis:
		return "Vorbis"
	case MP3:
		return "MP3"
	case Unknown:
		return "unknown"
	}

	return "unknown"
}

var (
	// ErrUnsupportedFormat is returned when the stream header matches
	// no known container.
	ErrUnsupportedFormat = errors.New("input: unsupported audio format")
)

// Stream is a fully decoded audio stream: interleaved little-endian
// PCM plus the parameters a channel descriptor needs.
type Stream struct {
	Data       []byte
	Encoding   mycelium.Encoding
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames in the stream.
func (s *Stream) Frames() int {
	size, err := mycelium.SampleSize(s.Encoding)
	if err != nil || s.Channels == 0 {
		return 0
	}

	return len(s.Data) / (size * s.Channels)
}

// Channel builds a descriptor over a window of the stream's data. The
// window is caller-managed: refill it batch by batch during playback.
func (s *Stream) Channel(window []byte) *mycelium.Channel {
	return &mycelium.Channel{
		Data:       window,
		Encoding:   s.Encoding,
		Channels:   s.Channels,
		Layout:     mycelium.Alternating,
		SampleRate: s.SampleRate,
	}
}

// headerSize covers every magic this package recognises: "RIFF"+"WAVE"
// needs 12 bytes, the rest fit in the first four.
const headerSize = 12

// mpegSyncByte and mpegSyncMask match the 11-bit MPEG frame sync word.
const (
	mpegSyncByte = 0xFF
	mpegSyncMask = 0xE0
)

// Identify sniffs the stream header and reports the container format.
// The reader position is reset to the start before returning.
func Identify(rs io.ReadSeeker) (Format, error) {
	var header [headerSize]byte

	if _, err := io.ReadFull(rs, header[:]); err != nil {
		return Unknown, fmt.Errorf("input: reading header: %w", err)
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Unknown, fmt.Errorf("input: seeking to start: %w", err)
	}

	switch {
	case string(header[:4]) == "RIFF" && string(header[8:12]) == "WAVE":
		return WAV, nil
	case string(header[:4]) == "fLaC":
		return FLAC, nil
	case string(header[:4]) == "OggS":
		return Vorbis, nil
	case string(header[:3]) == "ID3":
		return MP3, nil
	case header[0] == mpegSyncByte && header[1]&mpegSyncMask == mpegSyncMask:
		return MP3, nil
	}

	return Unknown, nil
}

// Decode sniffs the stream and decodes it with the matching decoder.
func Decode(rs io.ReadSeeker) (*Stream, error) {
	format, err := Identify(rs)
	if err != nil {
		return nil, err
	}

	switch format {
	case WAV:
		return DecodeWAV(rs)
	case FLAC:
		return DecodeFLAC(rs)
	case Vorbis:
		return DecodeVorbis(rs)
	case MP3:
		return DecodeMP3(rs)
	case Unknown:
	}

	return nil, ErrUnsupportedFormat
}
