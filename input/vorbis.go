package input

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/jfreymuth/oggvorbis"

	"github.com/mycophonic/mycelium"
)

// DecodeVorbis reads an Ogg Vorbis stream and converts it to
// interleaved little-endian signed 16-bit PCM.
func DecodeVorbis(rs io.ReadSeeker) (*Stream, error) {
	samples, format, err := oggvorbis.ReadAll(rs)
	if err != nil {
		return nil, fmt.Errorf("input: decoding vorbis: %w", err)
	}

	stream := &Stream{
		Encoding:   mycelium.Int16,
		Channels:   format.Channels,
		SampleRate: format.SampleRate,
		Data:       make([]byte, len(samples)*2),
	}

	for i, s := range samples {
		scaled := math.Round(float64(s) * math.MaxInt16)
		scaled = max(math.MinInt16, min(math.MaxInt16, scaled))

		binary.LittleEndian.PutUint16(stream.Data[i*2:], uint16(int16(scaled)))
	}

	return stream, nil
}
