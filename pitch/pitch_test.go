package pitch

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycophonic/mycelium"
)

const testRate = 44100

// drive streams a signal through a pitch segment in fixed batches and
// returns the full output stream.
func drive(t *testing.T, p *Pitch, in []float32, batch int) []float32 {
	t.Helper()

	inBuf := mycelium.NewBuffer(batch)
	outBuf := mycelium.NewBuffer(batch)
	require.NoError(t, p.SetBuffer(0, inBuf))
	require.NoError(t, p.SetBuffer(1, outBuf))

	out := make([]float32, 0, len(in))

	for off := 0; off < len(in); off += batch {
		n := min(batch, len(in)-off)
		copy(inBuf.Data, in[off:off+n])

		require.NoError(t, p.Mix(n, testRate))

		out = append(out, outBuf.Data[:n]...)
	}

	return out
}

func sine(freq float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / testRate))
	}

	return out
}

// TestUnityRatioDelaysByLatency checks that a ratio of 1 reproduces the
// input delayed by exactly the segment latency, within 1e-4 per sample
// once the warm-up window has passed.
func TestUnityRatioDelaysByLatency(t *testing.T) {
	p, err := New(1.0, testRate)
	require.NoError(t, err)
	defer p.Close()

	latency := p.Latency()
	assert.Equal(t, DefaultFrameSize, latency)

	in := sine(1000, 6*DefaultFrameSize)
	out := drive(t, p, in, 512)

	for i := 3 * DefaultFrameSize; i < len(out); i++ {
		diff := math.Abs(float64(out[i] - in[i-latency]))
		if diff > 1e-4 {
			t.Fatalf("sample %d: |out - delayed in| = %g", i, diff)
		}
	}
}

// dominantFrequency probes the signal with a DFT at every analysis bin
// centre and returns the frequency with the largest magnitude.
func dominantFrequency(sig []float32, framesize int) float64 {
	best, bestMag := 0.0, 0.0

	for b := 1; b <= framesize/2; b++ {
		freq := float64(b) * testRate / float64(framesize)

		var re, im float64

		for i, s := range sig {
			arg := 2 * math.Pi * freq * float64(i) / testRate
			re += float64(s) * math.Cos(arg)
			im -= float64(s) * math.Sin(arg)
		}

		if mag := math.Hypot(re, im); mag > bestMag {
			bestMag = mag
			best = freq
		}
	}

	return best
}

// TestOctaveUpShiftsSpectralPeak runs a 440 Hz sine through a ratio of
// 2 and expects the dominant tone within one bin of 880 Hz.
func TestOctaveUpShiftsSpectralPeak(t *testing.T) {
	p, err := New(2.0, testRate)
	require.NoError(t, err)
	defer p.Close()

	in := sine(440, 8*DefaultFrameSize)
	out := drive(t, p, in, 512)

	tail := out[len(out)-2*DefaultFrameSize:]
	peak := dominantFrequency(tail, DefaultFrameSize)

	binWidth := float64(testRate) / DefaultFrameSize
	assert.InDelta(t, 2*440, peak, binWidth, "dominant tone after octave shift")
}

func TestBypassCopiesWithoutDelay(t *testing.T) {
	p, err := New(2.0, testRate)
	require.NoError(t, err)
	defer p.Close()

	bypass := true
	require.NoError(t, p.Set(mycelium.FieldBypass, &bypass))

	in := sine(1000, 512)
	out := drive(t, p, in, 512)

	assert.Equal(t, in, out)
}

func TestZeroSamplesLeavesStateUntouched(t *testing.T) {
	p, err := New(1.5, testRate)
	require.NoError(t, err)
	defer p.Close()

	in := mycelium.NewBuffer(512)
	out := mycelium.NewBuffer(512)
	require.NoError(t, p.SetBuffer(0, in))
	require.NoError(t, p.SetBuffer(1, out))

	require.NoError(t, p.Mix(256, testRate))
	overlap := p.voc.overlap

	require.NoError(t, p.Mix(0, testRate))
	assert.Equal(t, overlap, p.voc.overlap)
}

func TestFields(t *testing.T) {
	p, err := New(1.5, testRate)
	require.NoError(t, err)
	defer p.Close()

	var ratio float32
	require.NoError(t, p.Get(mycelium.FieldPitchShift, &ratio))
	assert.Equal(t, float32(1.5), ratio)

	ratio = 0.5
	require.NoError(t, p.Set(mycelium.FieldPitchShift, &ratio))
	require.NoError(t, p.Get(mycelium.FieldPitchShift, &ratio))
	assert.Equal(t, float32(0.5), ratio)

	bad := float32(-1)
	require.ErrorIs(t, p.Set(mycelium.FieldPitchShift, &bad), mycelium.ErrInvalidValue)

	var rate int
	require.NoError(t, p.Get(mycelium.FieldSampleRate, &rate))
	assert.Equal(t, testRate, rate)

	// Changing the sample rate replaces the vocoder state.
	old := p.voc
	rate = 48000
	require.NoError(t, p.Set(mycelium.FieldSampleRate, &rate))
	assert.NotSame(t, old, p.voc)
	assert.Equal(t, 48000, p.voc.samplerate)

	require.ErrorIs(t, p.Get(mycelium.FieldVolume, new(float32)), mycelium.ErrInvalidField)
}

func TestConstructorValidation(t *testing.T) {
	_, err := New(0, testRate)
	require.ErrorIs(t, err, mycelium.ErrInvalidValue)

	_, err = New(1, 0)
	require.ErrorIs(t, err, mycelium.ErrInvalidValue)

	_, err = New(1, testRate, WithFrameSize(1000))
	require.ErrorIs(t, err, mycelium.ErrInvalidValue)

	_, err = New(1, testRate, WithFrameSize(1024), WithOversampling(0))
	require.ErrorIs(t, err, mycelium.ErrInvalidValue)

	p, err := New(1, testRate, WithFrameSize(1024), WithOversampling(8))
	require.NoError(t, err)
	assert.Equal(t, 1024, p.Latency())
	require.NoError(t, p.Close())
}

// TestConstructionRollsBackOnAllocationFailure fails the allocator at
// every position in turn and checks that the factory surfaces the
// failure after releasing what it had already allocated.
func TestConstructionRollsBackOnAllocationFailure(t *testing.T) {
	orig := allocFloats
	defer func() { allocFloats = orig }()

	const arrays = 10 // retained arrays per vocoder

	for fail := 0; fail < arrays; fail++ {
		t.Run(fmt.Sprintf("alloc_%d_fails", fail), func(t *testing.T) {
			calls := 0
			allocFloats = func(n int) ([]float32, error) {
				if calls == fail {
					return nil, errors.New("allocation refused")
				}
				calls++

				return make([]float32, n), nil
			}

			p, err := New(1.0, testRate)
			require.ErrorIs(t, err, mycelium.ErrOutOfMemory)
			assert.Nil(t, p)
			assert.Equal(t, fail, calls, "allocation must stop at the failure")
			assert.Equal(t, mycelium.OutOfMemory, mycelium.TakeLastError())
		})
	}

	// A healthy allocator constructs normally again.
	allocFloats = orig

	p, err := New(1.0, testRate)
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestVocoderFreeReleasesEverything(t *testing.T) {
	v, err := newVocoder(256, 4, testRate)
	require.NoError(t, err)

	v.free()

	assert.Nil(t, v.inFIFO)
	assert.Nil(t, v.outFIFO)
	assert.Nil(t, v.workspace)
	assert.Nil(t, v.lastPhase)
	assert.Nil(t, v.phaseSum)
	assert.Nil(t, v.accumulator)
	assert.Nil(t, v.analyzedF)
	assert.Nil(t, v.analyzedM)
	assert.Nil(t, v.synthF)
	assert.Nil(t, v.synthM)
}

func TestUnwiredBuffersFailMix(t *testing.T) {
	p, err := New(1.0, testRate)
	require.NoError(t, err)
	defer p.Close()

	require.ErrorIs(t, p.Mix(64, testRate), mycelium.ErrNotInitialized)
}
