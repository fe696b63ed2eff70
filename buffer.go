package mycelium

// Buffer is a fixed-capacity store of mono float32 samples. Buffers are
// plain data with no processing state: multi-channel audio is a set of
// buffers, one per channel. The creating caller owns the buffer;
// segments reference it without owning it.
type Buffer struct {
	Data []float32
}

// DefaultBufferSize is the capacity used when none is given. It matches
// the largest batch the mixer is expected to process in one call;
// exceeding it in a single Mix call is a caller error.
const DefaultBufferSize = 4096

// NewBuffer allocates a buffer with the given capacity in samples. A
// capacity of zero or below selects DefaultBufferSize.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}

	return &Buffer{Data: make([]float32, capacity)}
}

// Size returns the buffer capacity in samples.
func (b *Buffer) Size() int {
	return len(b.Data)
}

// Clear zero-fills the buffer.
func (b *Buffer) Clear() {
	for i := range b.Data {
		b.Data[i] = 0
	}
}

// Copy copies samples from src to dst, up to the smaller of the two
// sizes, and returns the number of samples copied. Either side may be
// nil, in which case nothing happens.
func Copy(dst, src *Buffer) int {
	if dst == nil || src == nil {
		return 0
	}

	return copy(dst.Data, src.Data)
}
