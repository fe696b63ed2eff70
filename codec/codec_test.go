package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mycophonic/mycelium"
)

// scale returns the normalisation divisor for a signed encoding of the
// given bit width.
func scale(bits int) float32 {
	return float32(int64(1) << (bits - 1))
}

func TestEncodeDecodeIdentity(t *testing.T) {
	tests := []struct {
		encoding mycelium.Encoding
		bits     int
	}{
		{mycelium.Int8, 8},
		{mycelium.Uint8, 8},
		{mycelium.Int16, 16},
		{mycelium.Uint16, 16},
		{mycelium.Int24, 24},
		{mycelium.Uint24, 24},
	}

	for _, tt := range tests {
		t.Run(tt.encoding.String(), func(t *testing.T) {
			read, err := readerFor(tt.encoding)
			require.NoError(t, err)
			write, err := writerFor(tt.encoding)
			require.NoError(t, err)

			size, err := mycelium.SampleSize(tt.encoding)
			require.NoError(t, err)

			rapid.Check(t, func(t *rapid.T) {
				lo := -(int64(1) << (tt.bits - 1))
				hi := int64(1)<<(tt.bits-1) - 1
				k := rapid.Int64Range(lo, hi).Draw(t, "k")

				// Grid-aligned sample: exactly representable and exactly
				// encodable for widths up to 24 bits.
				x := float32(k) / scale(tt.bits)

				buf := make([]byte, size)
				write(buf, x)

				if got := read(buf); got != x {
					t.Fatalf("decode(encode(%v)) = %v", x, got)
				}
			})
		})
	}
}

func TestEncodeDecodeIdentityInt32(t *testing.T) {
	read, err := readerFor(mycelium.Int32)
	require.NoError(t, err)
	write, err := writerFor(mycelium.Int32)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		// Only every 256th grid point is exactly representable in a
		// float32 mantissa at 32-bit width.
		k := rapid.Int64Range(-(1 << 23), 1<<23-1).Draw(t, "k") * 256
		x := float32(float64(k) / float64(int64(1)<<31))

		buf := make([]byte, 4)
		write(buf, x)

		if got := read(buf); got != x {
			t.Fatalf("decode(encode(%v)) = %v", x, got)
		}
	})
}

func TestEncodeDecodeIdentityFloat(t *testing.T) {
	for _, enc := range []mycelium.Encoding{mycelium.Float32, mycelium.Float64} {
		t.Run(enc.String(), func(t *testing.T) {
			read, err := readerFor(enc)
			require.NoError(t, err)
			write, err := writerFor(enc)
			require.NoError(t, err)

			size, err := mycelium.SampleSize(enc)
			require.NoError(t, err)

			rapid.Check(t, func(t *rapid.T) {
				x := float32(rapid.Float64Range(-1, 1).Draw(t, "x"))

				buf := make([]byte, size)
				write(buf, x)

				if got := read(buf); got != x {
					t.Fatalf("decode(encode(%v)) = %v", x, got)
				}
			})
		})
	}
}

func TestEncodeSaturates(t *testing.T) {
	write, err := writerFor(mycelium.Int16)
	require.NoError(t, err)

	buf := make([]byte, 2)

	write(buf, 2.0)
	assert.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(buf)))

	write(buf, -2.0)
	assert.Equal(t, int16(-32768), int16(binary.LittleEndian.Uint16(buf)))
}

func TestUnknownEncoding(t *testing.T) {
	_, err := readerFor(mycelium.Encoding(99))
	require.ErrorIs(t, err, mycelium.ErrUnknownEncoding)

	_, err = writerFor(mycelium.Encoding(99))
	require.ErrorIs(t, err, mycelium.ErrUnknownEncoding)

	assert.Equal(t, mycelium.UnknownEncoding, mycelium.LastError())
}

func TestUnknownLayout(t *testing.T) {
	_, err := offset(mycelium.Layout(7), 0, 0, 1, 1, 2)
	require.ErrorIs(t, err, mycelium.ErrUnknownLayout)
}

// TestSourceDecodeInt16Stereo feeds the reference blob
// [0x0000, 0x7fff, 0x8000, 0xffff] through a stereo INT16 source.
func TestSourceDecodeInt16Stereo(t *testing.T) {
	blob := make([]byte, 8)
	binary.LittleEndian.PutUint16(blob[0:], 0x0000)
	binary.LittleEndian.PutUint16(blob[2:], 0x7fff)
	binary.LittleEndian.PutUint16(blob[4:], 0x8000)
	binary.LittleEndian.PutUint16(blob[6:], 0xffff)

	channel := &mycelium.Channel{
		Data:       blob,
		Encoding:   mycelium.Int16,
		Channels:   2,
		Layout:     mycelium.Alternating,
		SampleRate: 44100,
	}

	source, err := NewSource(channel)
	require.NoError(t, err)

	left := mycelium.NewBuffer(2)
	right := mycelium.NewBuffer(2)
	require.NoError(t, source.SetBuffer(0, left))
	require.NoError(t, source.SetBuffer(1, right))

	require.NoError(t, source.Mix(2, 44100))

	const tolerance = 1.0 / 32768

	assert.InDelta(t, 0.0, left.Data[0], tolerance)
	assert.InDelta(t, 1.0, right.Data[0], tolerance)
	assert.InDelta(t, -1.0, left.Data[1], tolerance)
	assert.InDelta(t, -0.000031, right.Data[1], tolerance)
}

// TestDrainEncodeInt16Stereo runs the decoded buffers from the scenario
// above back through a drain and expects the original blob.
func TestDrainEncodeInt16Stereo(t *testing.T) {
	blob := make([]byte, 8)
	binary.LittleEndian.PutUint16(blob[0:], 0x0000)
	binary.LittleEndian.PutUint16(blob[2:], 0x7fff)
	binary.LittleEndian.PutUint16(blob[4:], 0x8000)
	binary.LittleEndian.PutUint16(blob[6:], 0xffff)

	in := &mycelium.Channel{
		Data: blob, Encoding: mycelium.Int16, Channels: 2,
		Layout: mycelium.Alternating, SampleRate: 44100,
	}

	outBlob := make([]byte, 8)
	out := &mycelium.Channel{
		Data: outBlob, Encoding: mycelium.Int16, Channels: 2,
		Layout: mycelium.Alternating, SampleRate: 44100,
	}

	source, err := NewSource(in)
	require.NoError(t, err)
	drain, err := NewDrain(out)
	require.NoError(t, err)

	left := mycelium.NewBuffer(2)
	right := mycelium.NewBuffer(2)

	for loc, buf := range []*mycelium.Buffer{left, right} {
		require.NoError(t, source.SetBuffer(loc, buf))
		require.NoError(t, drain.SetBuffer(loc, buf))
	}

	require.NoError(t, source.Mix(2, 44100))
	require.NoError(t, drain.Mix(2, 44100))

	assert.Equal(t, blob, outBlob)
}

// TestSourceDrainRoundTrip checks the byte-for-byte property over both
// layouts and arbitrary shapes. 32-bit integer encodings are excluded:
// their samples carry more significant bits than a float32 mantissa, so
// only the decoded approximation survives the trip.
func TestSourceDrainRoundTrip(t *testing.T) {
	encodings := []mycelium.Encoding{
		mycelium.Int8, mycelium.Uint8,
		mycelium.Int16, mycelium.Uint16,
		mycelium.Int24, mycelium.Uint24,
	}
	layouts := []mycelium.Layout{mycelium.Alternating, mycelium.Sequential}

	rapid.Check(t, func(t *rapid.T) {
		enc := rapid.SampledFrom(encodings).Draw(t, "encoding")
		layout := rapid.SampledFrom(layouts).Draw(t, "layout")
		channels := rapid.IntRange(1, 4).Draw(t, "channels")
		frames := rapid.IntRange(1, 64).Draw(t, "frames")

		size, err := mycelium.SampleSize(enc)
		if err != nil {
			t.Fatal(err)
		}

		blob := rapid.SliceOfN(rapid.Byte(), frames*channels*size, frames*channels*size).Draw(t, "blob")

		in := &mycelium.Channel{Data: blob, Encoding: enc, Channels: channels, Layout: layout, SampleRate: 44100}
		outBlob := make([]byte, len(blob))
		out := &mycelium.Channel{Data: outBlob, Encoding: enc, Channels: channels, Layout: layout, SampleRate: 44100}

		source, err := NewSource(in)
		if err != nil {
			t.Fatal(err)
		}

		drain, err := NewDrain(out)
		if err != nil {
			t.Fatal(err)
		}

		for c := 0; c < channels; c++ {
			buf := mycelium.NewBuffer(frames)
			if err := source.SetBuffer(c, buf); err != nil {
				t.Fatal(err)
			}
			if err := drain.SetBuffer(c, buf); err != nil {
				t.Fatal(err)
			}
		}

		if err := source.Mix(frames, 44100); err != nil {
			t.Fatal(err)
		}
		if err := drain.Mix(frames, 44100); err != nil {
			t.Fatal(err)
		}

		for i := range blob {
			if blob[i] != outBlob[i] {
				t.Fatalf("byte %d: wrote %#x, read back %#x (%v %v)", i, blob[i], outBlob[i], enc, layout)
			}
		}
	})
}

func TestSourceInvalidLocation(t *testing.T) {
	source, err := NewSource(&mycelium.Channel{
		Encoding: mycelium.Int16, Channels: 2, Layout: mycelium.Alternating,
	})
	require.NoError(t, err)

	err = source.SetBuffer(2, mycelium.NewBuffer(16))
	require.ErrorIs(t, err, mycelium.ErrInvalidLocation)

	_, err = source.GetBuffer(-1)
	require.ErrorIs(t, err, mycelium.ErrInvalidLocation)
}

func TestSourceMissingBuffer(t *testing.T) {
	blob := make([]byte, 64)
	source, err := NewSource(&mycelium.Channel{
		Data: blob, Encoding: mycelium.Int16, Channels: 2, Layout: mycelium.Alternating,
	})
	require.NoError(t, err)

	require.NoError(t, source.SetBuffer(0, mycelium.NewBuffer(16)))

	err = source.Mix(16, 44100)
	require.ErrorIs(t, err, mycelium.ErrNotInitialized)
}

func TestZeroSamplesMixIsNoOp(t *testing.T) {
	source, err := NewSource(&mycelium.Channel{
		Encoding: mycelium.Int16, Channels: 1, Layout: mycelium.Alternating,
	})
	require.NoError(t, err)

	// No buffers wired, no data: zero samples must still succeed.
	require.NoError(t, source.Mix(0, 44100))
}

func TestFloat64Narrowing(t *testing.T) {
	read, err := readerFor(mycelium.Float64)
	require.NoError(t, err)

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(0.25))

	assert.Equal(t, float32(0.25), read(buf))
}

func TestSequentialOffsets(t *testing.T) {
	// Two channels, three frames, one byte per sample: plane stride is
	// the frame count of the call.
	for c := 0; c < 2; c++ {
		for i := 0; i < 3; i++ {
			off, err := offset(mycelium.Sequential, i, c, 2, 3, 1)
			require.NoError(t, err)
			assert.Equal(t, c*3+i, off, fmt.Sprintf("channel %d frame %d", c, i))
		}
	}
}
