// Package codec converts externally supplied channel blobs to and from
// the internal float32 buffer representation. The conversion engine is
// shared by the Source segment (blob in, buffers out) and the Drain
// segment (buffers in, blob out).
package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mycophonic/mycelium"
)

// sampleReader decodes one sample from the start of b into a
// normalised float32 in [-1, 1).
type sampleReader func(b []byte) float32

// sampleWriter encodes one normalised sample into the start of b,
// clamping to the representable range.
type sampleWriter func(b []byte, v float32)

func readInt24(b []byte) int32 {
	v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if v&0x800000 != 0 {
		v -= 1 << 24
	}

	return v
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

// clampInt rounds v to the nearest integer and saturates it to
// [lo, hi].
func clampInt(v float64, lo, hi float64) float64 {
	v = math.Round(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}

//nolint:gocyclo // One arm per wire encoding.
func readerFor(e mycelium.Encoding) (sampleReader, error) {
	switch e {
	case mycelium.Int8:
		return func(b []byte) float32 {
			return float32(int8(b[0])) / 128
		}, nil
	case mycelium.Uint8:
		return func(b []byte) float32 {
			return float32(int(b[0])-128) / 128
		}, nil
	case mycelium.Int16:
		return func(b []byte) float32 {
			return float32(int16(binary.LittleEndian.Uint16(b))) / 32768
		}, nil
	case mycelium.Uint16:
		return func(b []byte) float32 {
			return float32(int(binary.LittleEndian.Uint16(b))-32768) / 32768
		}, nil
	case mycelium.Int24:
		return func(b []byte) float32 {
			return float32(readInt24(b)) / 8388608
		}, nil
	case mycelium.Uint24:
		return func(b []byte) float32 {
			v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16

			return float32(int32(v)-8388608) / 8388608
		}, nil
	case mycelium.Int32:
		return func(b []byte) float32 {
			return float32(float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648)
		}, nil
	case mycelium.Uint32:
		return func(b []byte) float32 {
			return float32((float64(binary.LittleEndian.Uint32(b)) - 2147483648) / 2147483648)
		}, nil
	case mycelium.Float32:
		return func(b []byte) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(b))
		}, nil
	case mycelium.Float64:
		return func(b []byte) float32 {
			return float32(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		}, nil
	}

	return nil, mycelium.Report(fmt.Errorf("%w: %d", mycelium.ErrUnknownEncoding, e))
}

//nolint:gocyclo // One arm per wire encoding.
func writerFor(e mycelium.Encoding) (sampleWriter, error) {
	switch e {
	case mycelium.Int8:
		return func(b []byte, v float32) {
			b[0] = byte(int8(clampInt(float64(v)*128, -128, 127)))
		}, nil
	case mycelium.Uint8:
		return func(b []byte, v float32) {
			b[0] = byte(clampInt(float64(v)*128+128, 0, 255))
		}, nil
	case mycelium.Int16:
		return func(b []byte, v float32) {
			binary.LittleEndian.PutUint16(b, uint16(int16(clampInt(float64(v)*32768, -32768, 32767))))
		}, nil
	case mycelium.Uint16:
		return func(b []byte, v float32) {
			binary.LittleEndian.PutUint16(b, uint16(clampInt(float64(v)*32768+32768, 0, 65535)))
		}, nil
	case mycelium.Int24:
		return func(b []byte, v float32) {
			putUint24(b, uint32(int32(clampInt(float64(v)*8388608, -8388608, 8388607))))
		}, nil
	case mycelium.Uint24:
		return func(b []byte, v float32) {
			putUint24(b, uint32(clampInt(float64(v)*8388608+8388608, 0, 16777215)))
		}, nil
	case mycelium.Int32:
		return func(b []byte, v float32) {
			binary.LittleEndian.PutUint32(b, uint32(int32(clampInt(float64(v)*2147483648, -2147483648, 2147483647))))
		}, nil
	case mycelium.Uint32:
		return func(b []byte, v float32) {
			binary.LittleEndian.PutUint32(b, uint32(clampInt(float64(v)*2147483648+2147483648, 0, 4294967295)))
		}, nil
	case mycelium.Float32:
		return func(b []byte, v float32) {
			binary.LittleEndian.PutUint32(b, math.Float32bits(clampFloat(v)))
		}, nil
	case mycelium.Float64:
		return func(b []byte, v float32) {
			binary.LittleEndian.PutUint64(b, math.Float64bits(float64(clampFloat(v))))
		}, nil
	}

	return nil, mycelium.Report(fmt.Errorf("%w: %d", mycelium.ErrUnknownEncoding, e))
}

func clampFloat(v float32) float32 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}

	return v
}

// offset computes the byte offset of sample i on channel c. For the
// sequential layout the plane stride is the frame count of the current
// call: the blob is expected to hold exactly that many frames per
// channel.
func offset(l mycelium.Layout, i, c, channels, frames, size int) (int, error) {
	switch l {
	case mycelium.Alternating:
		return (i*channels + c) * size, nil
	case mycelium.Sequential:
		return (c*frames + i) * size, nil
	}

	return 0, mycelium.Report(fmt.Errorf("%w: %d", mycelium.ErrUnknownLayout, l))
}

// Decode reads samples frames from the channel blob and writes one
// normalised float32 stream per channel into outs. Every output slot
// must carry a buffer large enough for the batch.
func Decode(ch *mycelium.Channel, outs []*mycelium.Buffer, samples int) error {
	read, err := readerFor(ch.Encoding)
	if err != nil {
		return err
	}

	size, err := mycelium.SampleSize(ch.Encoding)
	if err != nil {
		return err
	}

	if need := samples * ch.Channels * size; len(ch.Data) < need {
		return mycelium.Report(fmt.Errorf("codec: channel data holds %d bytes, need %d: %w",
			len(ch.Data), need, mycelium.ErrInvalidValue))
	}

	if len(outs) < ch.Channels {
		return mycelium.Report(fmt.Errorf("codec: %d buffers for %d channels: %w",
			len(outs), ch.Channels, mycelium.ErrInvalidValue))
	}

	for c := 0; c < ch.Channels; c++ {
		out := outs[c]
		if out == nil {
			return mycelium.Report(fmt.Errorf("codec: no buffer for channel %d: %w", c, mycelium.ErrNotInitialized))
		}

		for i := 0; i < samples; i++ {
			off, offErr := offset(ch.Layout, i, c, ch.Channels, samples, size)
			if offErr != nil {
				return offErr
			}

			out.Data[i] = read(ch.Data[off:])
		}
	}

	return nil
}

// Encode reads samples values from each input buffer and writes them
// frame-packed into the channel blob, saturating to the encoding's
// representable range.
func Encode(ins []*mycelium.Buffer, ch *mycelium.Channel, samples int) error {
	write, err := writerFor(ch.Encoding)
	if err != nil {
		return err
	}

	size, err := mycelium.SampleSize(ch.Encoding)
	if err != nil {
		return err
	}

	if need := samples * ch.Channels * size; len(ch.Data) < need {
		return mycelium.Report(fmt.Errorf("codec: channel data holds %d bytes, need %d: %w",
			len(ch.Data), need, mycelium.ErrInvalidValue))
	}

	if len(ins) < ch.Channels {
		return mycelium.Report(fmt.Errorf("codec: %d buffers for %d channels: %w",
			len(ins), ch.Channels, mycelium.ErrInvalidValue))
	}

	for c := 0; c < ch.Channels; c++ {
		in := ins[c]
		if in == nil {
			return mycelium.Report(fmt.Errorf("codec: no buffer for channel %d: %w", c, mycelium.ErrNotInitialized))
		}

		for i := 0; i < samples; i++ {
			off, offErr := offset(ch.Layout, i, c, ch.Channels, samples, size)
			if offErr != nil {
				return offErr
			}

			write(ch.Data[off:], in.Data[i])
		}
	}

	return nil
}
