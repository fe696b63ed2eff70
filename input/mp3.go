package input

import (
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/mycophonic/mycelium"
)

// DecodeMP3 reads an MP3 stream and decodes it to interleaved
// little-endian signed 16-bit PCM. The decoder always produces stereo
// at the source sample rate.
func DecodeMP3(rs io.ReadSeeker) (*Stream, error) {
	decoder, err := gomp3.NewDecoder(rs)
	if err != nil {
		return nil, fmt.Errorf("input: opening mp3: %w", err)
	}

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("input: decoding mp3: %w", err)
	}

	return &Stream{
		Data:       data,
		Encoding:   mycelium.Int16,
		Channels:   2, // go-mp3 always decodes to stereo
		SampleRate: decoder.SampleRate(),
	}, nil
}
