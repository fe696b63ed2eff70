package input

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/mycophonic/mycelium"
)

// WAV format tags.
const (
	wavFormatPCM       = 1
	wavFormatIEEEFloat = 3
)

var (
	errNotWAV         = errors.New("input: not a WAV file")
	errNoFmtChunk     = errors.New("input: missing fmt chunk")
	errNoDataChunk    = errors.New("input: missing data chunk")
	errUnsupportedWAV = errors.New("input: unsupported WAV variant")
)

// DecodeWAV reads a RIFF WAVE stream. PCM at 8, 16, 24 or 32 bits and
// 32-bit IEEE float are supported; the PCM bytes pass through
// untouched.
func DecodeWAV(rs io.ReadSeeker) (*Stream, error) {
	var riffHeader [12]byte
	if _, err := io.ReadFull(rs, riffHeader[:]); err != nil {
		return nil, fmt.Errorf("input: reading RIFF header: %w", err)
	}

	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		return nil, errNotWAV
	}

	stream := &Stream{}
	fmtFound := false

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(rs, chunkHeader[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}

			return nil, fmt.Errorf("input: reading chunk header: %w", err)
		}

		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		switch chunkID {
		case "fmt ":
			if err := parseWAVFmt(rs, chunkSize, stream); err != nil {
				return nil, err
			}

			fmtFound = true

		case "data":
			stream.Data = make([]byte, chunkSize)
			if _, err := io.ReadFull(rs, stream.Data); err != nil {
				return nil, fmt.Errorf("input: reading PCM data: %w", err)
			}

		default:
			if _, err := rs.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("input: skipping chunk %s: %w", chunkID, err)
			}
		}

		// Chunks are word-aligned.
		if chunkSize%2 == 1 {
			if _, err := rs.Seek(1, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("input: seeking past pad byte: %w", err)
			}
		}
	}

	if !fmtFound {
		return nil, errNoFmtChunk
	}

	if stream.Data == nil {
		return nil, errNoDataChunk
	}

	return stream, nil
}

func parseWAVFmt(rs io.ReadSeeker, size uint32, stream *Stream) error {
	if size < 16 {
		return errUnsupportedWAV
	}

	var buf [16]byte
	if _, err := io.ReadFull(rs, buf[:]); err != nil {
		return fmt.Errorf("input: reading fmt chunk: %w", err)
	}

	if size > 16 {
		if _, err := rs.Seek(int64(size-16), io.SeekCurrent); err != nil {
			return fmt.Errorf("input: skipping fmt chunk tail: %w", err)
		}
	}

	audioFormat := binary.LittleEndian.Uint16(buf[0:2])
	stream.Channels = int(binary.LittleEndian.Uint16(buf[2:4]))
	stream.SampleRate = int(binary.LittleEndian.Uint32(buf[4:8]))
	bitsPerSample := binary.LittleEndian.Uint16(buf[14:16])

	switch audioFormat {
	case wavFormatPCM:
		switch bitsPerSample {
		case 8:
			stream.Encoding = mycelium.Uint8
		case 16:
			stream.Encoding = mycelium.Int16
		case 24:
			stream.Encoding = mycelium.Int24
		case 32:
			stream.Encoding = mycelium.Int32
		default:
			return fmt.Errorf("%w: %d-bit PCM", errUnsupportedWAV, bitsPerSample)
		}
	case wavFormatIEEEFloat:
		if bitsPerSample != 32 {
			return fmt.Errorf("%w: %d-bit float", errUnsupportedWAV, bitsPerSample)
		}

		stream.Encoding = mycelium.Float32
	default:
		return fmt.Errorf("%w: format tag %d", errUnsupportedWAV, audioFormat)
	}

	return nil
}
