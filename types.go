package mycelium

import "fmt"

// Encoding identifies the binary representation of one sample in an
// external channel blob.
type Encoding uint8

// Supported sample encodings.
const (
	Int8 Encoding = iota
	Uint8
	Int16
	Uint16
	Int24
	Uint24
	Int32
	Uint32
	Float32
	Float64
)

// SampleSize returns the number of bytes one sample occupies in the
// given encoding.
func SampleSize(e Encoding) (int, error) {
	switch e {
	case Int8, Uint8:
		return 1, nil
	case Int16, Uint16:
		return 2, nil
	case Int24, Uint24:
		return 3, nil
	case Int32, Uint32:
		return 4, nil
	case Float32:
		return 4, nil
	case Float64:
		return 8, nil
	}

	return 0, Report(fmt.Errorf("%w: %d", ErrUnknownEncoding, e))
}

// String returns the conventional name of the encoding.
func (e Encoding) String() string {
	switch e {
	case Int8:
		return "int8"
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int24:
		return "int24"
	case Uint24:
		return "uint24"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}

	return "unknown"
}

// Layout describes how multi-channel samples are packed in an external
// channel blob.
type Layout uint8

const (
	// Alternating packs samples frame by frame: L R L R ...
	Alternating Layout = iota
	// Sequential packs each channel's samples contiguously: L L ... R R ...
	Sequential
)

// String returns the conventional name of the layout.
func (l Layout) String() string {
	switch l {
	case Alternating:
		return "alternating"
	case Sequential:
		return "sequential"
	}

	return "unknown"
}

// Channel describes foreign sample memory that the codec translates to
// and from the internal float32 buffer representation. The caller owns
// Data; the codec never reallocates it.
type Channel struct {
	Data       []byte
	Encoding   Encoding
	Channels   int
	Layout     Layout
	SampleRate int
}
