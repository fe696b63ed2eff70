package mycelium

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeRoundTrip(t *testing.T) {
	codes := []Code{
		OutOfMemory, UnknownEncoding, UnknownLayout, MixingFailed,
		NotImplemented, NotInitialized, MixerInvalidIndex,
		InvalidLocation, InvalidField, InvalidValue,
	}

	for _, c := range codes {
		assert.Equal(t, c, CodeOf(c.Err()), c.String())
		assert.NotEqual(t, "unknown error", c.String())
	}

	assert.Nil(t, NoError.Err())
	assert.Equal(t, NoError, CodeOf(nil))
	assert.Equal(t, NoError, CodeOf(Finished))
}

func TestCodeOfWrappedError(t *testing.T) {
	err := fmt.Errorf("pitch: frame size: %w", ErrInvalidValue)
	assert.Equal(t, InvalidValue, CodeOf(err))
}

func TestLastErrorRegister(t *testing.T) {
	TakeLastError()

	require.Error(t, Report(ErrInvalidField))
	assert.Equal(t, InvalidField, LastError())

	// Reading does not clear.
	assert.Equal(t, InvalidField, LastError())

	// Taking does.
	assert.Equal(t, InvalidField, TakeLastError())
	assert.Equal(t, NoError, LastError())

	// Success and Finished leave the register untouched.
	require.NoError(t, Report(nil))
	require.Error(t, Report(Finished))
	assert.Equal(t, NoError, LastError())
}

func TestSampleSizes(t *testing.T) {
	tests := []struct {
		encoding Encoding
		size     int
	}{
		{Int8, 1}, {Uint8, 1},
		{Int16, 2}, {Uint16, 2},
		{Int24, 3}, {Uint24, 3},
		{Int32, 4}, {Uint32, 4},
		{Float32, 4}, {Float64, 8},
	}

	for _, tt := range tests {
		got, err := SampleSize(tt.encoding)
		require.NoError(t, err)
		assert.Equal(t, tt.size, got, tt.encoding.String())
	}

	_, err := SampleSize(Encoding(42))
	require.ErrorIs(t, err, ErrUnknownEncoding)
}
