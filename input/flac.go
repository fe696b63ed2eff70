package input

import (
	"errors"
	"fmt"
	"io"

	goflac "github.com/mewkiz/flac"

	"github.com/mycophonic/mycelium"
)

var errFLACBitDepth = errors.New("input: unsupported FLAC bit depth")

// DecodeFLAC reads a FLAC stream and interleaves it to little-endian
// signed PCM at the native bit depth (16 or 24 bits).
func DecodeFLAC(rs io.ReadSeeker) (*Stream, error) {
	flacStream, err := goflac.New(rs)
	if err != nil {
		return nil, fmt.Errorf("input: opening flac: %w", err)
	}
	defer flacStream.Close()

	info := flacStream.Info
	channels := int(info.NChannels)

	var (
		encoding       mycelium.Encoding
		bytesPerSample int
	)

	switch info.BitsPerSample {
	case 16:
		encoding = mycelium.Int16
		bytesPerSample = 2
	case 24:
		encoding = mycelium.Int24
		bytesPerSample = 3
	default:
		return nil, fmt.Errorf("%w: %d", errFLACBitDepth, info.BitsPerSample)
	}

	stream := &Stream{
		Encoding:   encoding,
		Channels:   channels,
		SampleRate: int(info.SampleRate),
	}

	if info.NSamples > 0 {
		stream.Data = make([]byte, 0, int(info.NSamples)*channels*bytesPerSample)
	}

	for {
		audioFrame, parseErr := flacStream.ParseNext()
		if errors.Is(parseErr, io.EOF) {
			break
		}

		if parseErr != nil {
			return nil, fmt.Errorf("input: decoding flac frame: %w", parseErr)
		}

		blockSize := int(audioFrame.BlockSize)

		for i := 0; i < blockSize; i++ {
			for ch := 0; ch < channels; ch++ {
				sample := audioFrame.Subframes[ch].Samples[i]

				stream.Data = append(stream.Data, byte(sample), byte(sample>>8))
				if bytesPerSample == 3 {
					stream.Data = append(stream.Data, byte(sample>>16))
				}
			}
		}
	}

	return stream, nil
}
