// Package pitch implements a phase-vocoder pitch shifter as a pipeline
// segment: an overlap-add STFT analysis/synthesis loop that scales bin
// frequencies by the pitch ratio.
package pitch

import (
	"fmt"
	"math"

	"github.com/mycophonic/mycelium"
	"github.com/mycophonic/mycelium/internal/fft"
)

// allocFloats is the allocation seam for vocoder state. Tests replace
// it to exercise the construction rollback path.
var allocFloats = func(n int) ([]float32, error) { //nolint:gochecknoglobals // Allocator seam.
	return make([]float32, n), nil
}

// vocoder holds the retained state of one phase-vocoder stream. All
// arrays persist across Mix calls so streaming input is processed
// seamlessly across batch boundaries.
type vocoder struct {
	framesize    int
	oversampling int
	samplerate   int

	inFIFO      []float32 // framesize
	outFIFO     []float32 // framesize
	workspace   []float32 // 2*framesize, interleaved re/im
	lastPhase   []float32 // framesize/2+1
	phaseSum    []float32 // framesize/2+1
	accumulator []float32 // 2*framesize
	analyzedF   []float32 // framesize
	analyzedM   []float32 // framesize
	synthF      []float32 // framesize
	synthM      []float32 // framesize

	// overlap is the running offset within the current analysis frame;
	// it equals the latency at frame boundaries and zero only before
	// the first sample.
	overlap int
}

// free releases every retained array. Safe to call on a partially
// constructed vocoder.
func (v *vocoder) free() {
	v.inFIFO = nil
	v.outFIFO = nil
	v.workspace = nil
	v.lastPhase = nil
	v.phaseSum = nil
	v.accumulator = nil
	v.analyzedF = nil
	v.analyzedM = nil
	v.synthF = nil
	v.synthM = nil
}

// newVocoder allocates the retained arrays for the given frame size,
// oversampling factor and sample rate. On any allocation failure every
// prior array is released before the error is surfaced.
func newVocoder(framesize, oversampling, samplerate int) (*vocoder, error) {
	v := &vocoder{
		framesize:    framesize,
		oversampling: oversampling,
		samplerate:   samplerate,
	}

	for _, alloc := range []struct {
		dst *[]float32
		n   int
	}{
		{&v.inFIFO, framesize},
		{&v.outFIFO, framesize},
		{&v.workspace, framesize * 2},
		{&v.lastPhase, framesize/2 + 1},
		{&v.phaseSum, framesize/2 + 1},
		{&v.accumulator, framesize * 2},
		{&v.analyzedF, framesize},
		{&v.analyzedM, framesize},
		{&v.synthF, framesize},
		{&v.synthM, framesize},
	} {
		buf, err := allocFloats(alloc.n)
		if err != nil {
			v.free()

			return nil, mycelium.Report(fmt.Errorf("pitch: %w: %w", mycelium.ErrOutOfMemory, err))
		}

		*alloc.dst = buf
	}

	return v, nil
}

// shift runs the phase vocoder over samples input values, producing the
// same number of output values delayed by one full frame.
//
//nolint:gocyclo // The analysis/shift/synthesis cycle is one algorithm.
func (v *vocoder) shift(pitch float32, in, out []float32, samples int) {
	framesize := v.framesize
	framesize2 := framesize / 2
	step := framesize / v.oversampling
	binFrequency := float64(v.samplerate) / float64(framesize)
	expected := 2 * math.Pi * float64(step) / float64(framesize)
	latency := framesize - step

	if v.overlap == 0 {
		v.overlap = latency
	}

	for i := 0; i < samples; i++ {
		// Stream one sample in and one (delayed) sample out.
		v.inFIFO[v.overlap] = in[i]
		out[i] = v.outFIFO[v.overlap-latency]
		v.overlap++

		if v.overlap < framesize {
			continue
		}
		v.overlap = latency

		// Window and interleave into the transform workspace.
		for k := 0; k < framesize; k++ {
			window := -0.5*math.Cos(2*math.Pi*float64(k)/float64(framesize)) + 0.5
			v.workspace[2*k] = v.inFIFO[k] * float32(window)
			v.workspace[2*k+1] = 0
		}

		// Analysis: true frequency per bin from the phase delta.
		fft.Transform(v.workspace, framesize, fft.Forward)

		for k := 0; k <= framesize2; k++ {
			re := float64(v.workspace[2*k])
			im := float64(v.workspace[2*k+1])

			magnitude := 2 * math.Sqrt(re*re+im*im)
			phase := math.Atan2(im, re)

			delta := phase - float64(v.lastPhase[k])
			v.lastPhase[k] = float32(phase)

			delta -= float64(k) * expected

			// Wrap into [-pi, pi] by forcing the wrap multiple to the
			// nearest even integer.
			qpd := int(delta / math.Pi)
			if qpd >= 0 {
				qpd += qpd & 1
			} else {
				qpd -= qpd & 1
			}
			delta -= math.Pi * float64(qpd)

			// Deviation from the bin centre, in bins.
			deviation := float64(v.oversampling) * delta / (2 * math.Pi)

			v.analyzedM[k] = float32(magnitude)
			v.analyzedF[k] = float32(float64(k)*binFrequency + deviation*binFrequency)
		}

		// Shift: move each bin to floor(k*pitch), discarding targets
		// above Nyquist. Magnitudes accumulate, the frequency of the
		// last writer wins.
		for k := range v.synthM {
			v.synthM[k] = 0
			v.synthF[k] = 0
		}

		for k := 0; k <= framesize2; k++ {
			index := int(float64(k) * float64(pitch))
			if index > framesize2 {
				continue
			}

			v.synthM[index] += v.analyzedM[k]
			v.synthF[index] = v.analyzedF[k] * pitch
		}

		// Synthesis: accumulate bin phase and rebuild the spectrum.
		for k := 0; k <= framesize2; k++ {
			magnitude := float64(v.synthM[k])
			frequency := float64(v.synthF[k])

			frequency -= float64(k) * binFrequency
			frequency /= binFrequency
			frequency = 2 * math.Pi * frequency / float64(v.oversampling)
			frequency += float64(k) * expected

			// Only the angle matters, so the accumulator wraps at 2*pi:
			// left unbounded it outgrows float32 precision within a few
			// hundred frames.
			phase := math.Mod(float64(v.phaseSum[k])+frequency, 2*math.Pi)
			v.phaseSum[k] = float32(phase)

			v.workspace[2*k] = float32(magnitude * math.Cos(phase))
			v.workspace[2*k+1] = float32(magnitude * math.Sin(phase))
		}

		// Zero the negative frequencies.
		for k := framesize + 2; k < 2*framesize; k++ {
			v.workspace[k] = 0
		}

		fft.Transform(v.workspace, framesize, fft.Inverse)

		// Window again and overlap-add into the accumulator. The
		// squared Hann windows of the overlapping frames sum to
		// 3*oversampling/8, which the 2/(framesize/2*oversampling)
		// scaling turns into a net gain of 3/2; that factor joins the
		// FFT normalisation to keep the round-trip at unity gain.
		norm := float64(framesize2*v.oversampling) * 3 / 2
		for k := 0; k < framesize; k++ {
			window := -0.5*math.Cos(2*math.Pi*float64(k)/float64(framesize)) + 0.5
			v.accumulator[k] += float32(2 * window * float64(v.workspace[2*k]) / norm)
		}

		copy(v.outFIFO[:step], v.accumulator[:step])

		// Slide the accumulator and the input FIFO by one step.
		copy(v.accumulator, v.accumulator[step:step+framesize])
		for k := framesize; k < len(v.accumulator); k++ {
			v.accumulator[k] = 0
		}

		copy(v.inFIFO[:latency], v.inFIFO[step:framesize])
	}
}
