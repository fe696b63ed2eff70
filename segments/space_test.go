package segments

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycophonic/mycelium"
)

func wireSpace(t *testing.T, s *Space, n int) (in, outL, outR *mycelium.Buffer) {
	t.Helper()

	in = mycelium.NewBuffer(n)
	outL = mycelium.NewBuffer(n)
	outR = mycelium.NewBuffer(n)

	require.NoError(t, s.SetBuffer(0, in))
	require.NoError(t, s.SetBuffer(1, outL))
	require.NoError(t, s.SetBuffer(2, outR))

	return in, outL, outR
}

func TestSpaceCentredSourceIsBalanced(t *testing.T) {
	s := NewSpace()
	require.NoError(t, s.Start())

	in, outL, outR := wireSpace(t, s, 64)
	for i := range in.Data {
		in.Data[i] = 1
	}

	require.NoError(t, s.Mix(64, 44100))

	// Source on top of the listener: full gain, no interaural skew.
	assert.InDelta(t, outL.Data[32], outR.Data[32], 1e-6)
	assert.Greater(t, outL.Data[32], float32(0.5))
}

func TestSpaceDistanceAttenuates(t *testing.T) {
	near := NewSpace()
	far := NewSpace()
	require.NoError(t, near.Start())
	require.NoError(t, far.Start())

	pos := r3.Vector{X: 0, Y: 0, Z: 50}
	require.NoError(t, far.Set(mycelium.FieldSourceLocation, &pos))

	inN, outLN, _ := wireSpace(t, near, 64)
	inF, outLF, _ := wireSpace(t, far, 64)

	for i := range inN.Data {
		inN.Data[i] = 1
		inF.Data[i] = 1
	}

	require.NoError(t, near.Mix(64, 44100))
	require.NoError(t, far.Mix(64, 44100))

	assert.Greater(t, outLN.Data[32], outLF.Data[32], "distant source must be quieter")
}

func TestSpaceLateralSourceFavoursNearEar(t *testing.T) {
	s := NewSpace()
	require.NoError(t, s.Start())

	// Source to the listener's right (+X is the right-ear axis).
	pos := r3.Vector{X: 10, Y: 0, Z: 0}
	require.NoError(t, s.Set(mycelium.FieldSourceLocation, &pos))

	in, outL, outR := wireSpace(t, s, 64)
	for i := range in.Data {
		in.Data[i] = 1
	}

	require.NoError(t, s.Mix(64, 44100))

	assert.Greater(t, outR.Data[63], outL.Data[63], "right ear must hear a right-side source louder")
}

func TestSpaceFields(t *testing.T) {
	s := NewSpace()

	src := r3.Vector{X: 1, Y: 2, Z: 3}
	lst := r3.Vector{X: -1, Y: 0, Z: 0}
	require.NoError(t, s.Set(mycelium.FieldSourceLocation, &src))
	require.NoError(t, s.Set(mycelium.FieldListenerLocation, &lst))

	var got r3.Vector
	require.NoError(t, s.Get(mycelium.FieldSourceLocation, &got))
	assert.Equal(t, src, got)
	require.NoError(t, s.Get(mycelium.FieldListenerLocation, &got))
	assert.Equal(t, lst, got)

	require.ErrorIs(t, s.Get(mycelium.FieldVolume, new(float32)), mycelium.ErrInvalidField)
	require.ErrorIs(t, s.SetBuffer(3, nil), mycelium.ErrInvalidLocation)

	info := s.Info()
	assert.Equal(t, 1, info.MaxInputs)
	assert.Equal(t, 2, info.Outputs)
}

func TestSpaceBypass(t *testing.T) {
	s := NewSpace()

	pos := r3.Vector{X: 0, Y: 0, Z: 100}
	require.NoError(t, s.Set(mycelium.FieldSourceLocation, &pos))

	bypass := true
	require.NoError(t, s.Set(mycelium.FieldBypass, &bypass))

	in, outL, outR := wireSpace(t, s, 8)
	in.Data[0] = 0.75

	require.NoError(t, s.Mix(8, 44100))

	assert.Equal(t, float32(0.75), outL.Data[0])
	assert.Equal(t, float32(0.75), outR.Data[0])
}
