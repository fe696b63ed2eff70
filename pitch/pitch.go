package pitch

import (
	"fmt"
	"math/bits"

	"github.com/mycophonic/mycelium"
)

// Defaults for the analysis frame.
const (
	DefaultFrameSize    = 2048
	DefaultOversampling = 4
)

// Option configures a Pitch segment during construction.
type Option func(*Pitch)

// WithFrameSize sets the STFT frame size. Must be a power of two.
func WithFrameSize(n int) Option {
	return func(p *Pitch) {
		p.framesize = n
	}
}

// WithOversampling sets the overlap factor between analysis frames.
func WithOversampling(n int) Option {
	return func(p *Pitch) {
		p.oversampling = n
	}
}

var _ mycelium.Segment = (*Pitch)(nil)

// Pitch shifts the pitch of a mono stream by a configurable ratio using
// a phase vocoder. One input, one output. The output trails the input
// by Latency samples; with a ratio of 1 the segment degenerates to a
// delayed copy.
type Pitch struct {
	mycelium.Unimplemented

	pitch        float32
	framesize    int
	oversampling int
	samplerate   int
	bypass       bool

	voc *vocoder
	in  *mycelium.Buffer
	out *mycelium.Buffer
}

// New creates a pitch segment. pitch is the frequency ratio (1.0 is
// unity, 2.0 one octave up) and must be positive.
func New(pitch float32, samplerate int, opts ...Option) (*Pitch, error) {
	if pitch <= 0 {
		return nil, mycelium.Report(fmt.Errorf("pitch: ratio %v: %w", pitch, mycelium.ErrInvalidValue))
	}

	if samplerate <= 0 {
		return nil, mycelium.Report(fmt.Errorf("pitch: sample rate %d: %w", samplerate, mycelium.ErrInvalidValue))
	}

	p := &Pitch{
		pitch:        pitch,
		framesize:    DefaultFrameSize,
		oversampling: DefaultOversampling,
		samplerate:   samplerate,
	}
	for _, o := range opts {
		o(p)
	}

	if p.framesize <= 0 || bits.OnesCount(uint(p.framesize)) != 1 {
		return nil, mycelium.Report(fmt.Errorf("pitch: frame size %d is not a power of two: %w",
			p.framesize, mycelium.ErrInvalidValue))
	}

	if p.oversampling <= 0 || p.framesize%p.oversampling != 0 {
		return nil, mycelium.Report(fmt.Errorf("pitch: oversampling %d: %w", p.oversampling, mycelium.ErrInvalidValue))
	}

	voc, err := newVocoder(p.framesize, p.oversampling, samplerate)
	if err != nil {
		return nil, err
	}

	p.voc = voc

	return p, nil
}

// Latency returns the stream delay in samples introduced by the
// overlap-add loop: the input FIFO holds framesize - step samples
// before the first frame fires, and each frame's output trails its
// input by one further step.
func (p *Pitch) Latency() int {
	return p.framesize
}

// Mix processes the next samples values. With bypass set the input is
// copied straight through with no delay; otherwise the vocoder runs,
// and even at a ratio of 1 the output trails the input by Latency
// samples.
func (p *Pitch) Mix(samples, _ int) error {
	if samples == 0 {
		return nil
	}

	if p.in == nil || p.out == nil {
		return mycelium.Report(fmt.Errorf("pitch: buffers unwired: %w", mycelium.ErrNotInitialized))
	}

	if p.bypass {
		mycelium.Copy(p.out, p.in)

		return nil
	}

	p.voc.shift(p.pitch, p.in.Data, p.out.Data, samples)

	return nil
}

// SetBuffer wires location 0 as the input and 1 as the output.
func (p *Pitch) SetBuffer(location int, buf *mycelium.Buffer) error {
	switch location {
	case 0:
		p.in = buf
	case 1:
		p.out = buf
	default:
		return mycelium.Report(fmt.Errorf("pitch: location %d: %w", location, mycelium.ErrInvalidLocation))
	}

	return nil
}

// GetBuffer returns the buffer wired at location.
func (p *Pitch) GetBuffer(location int) (*mycelium.Buffer, error) {
	switch location {
	case 0:
		return p.in, nil
	case 1:
		return p.out, nil
	}

	return nil, mycelium.Report(fmt.Errorf("pitch: location %d: %w", location, mycelium.ErrInvalidLocation))
}

// Get supports FieldPitchShift, FieldSampleRate and FieldBypass.
func (p *Pitch) Get(field mycelium.Field, value any) error {
	switch field {
	case mycelium.FieldPitchShift:
		v, ok := value.(*float32)
		if !ok {
			return mycelium.Report(fmt.Errorf("pitch: ratio wants *float32: %w", mycelium.ErrInvalidValue))
		}

		*v = p.pitch
	case mycelium.FieldSampleRate:
		v, ok := value.(*int)
		if !ok {
			return mycelium.Report(fmt.Errorf("pitch: sample rate wants *int: %w", mycelium.ErrInvalidValue))
		}

		*v = p.samplerate
	case mycelium.FieldBypass:
		v, ok := value.(*bool)
		if !ok {
			return mycelium.Report(fmt.Errorf("pitch: bypass wants *bool: %w", mycelium.ErrInvalidValue))
		}

		*v = p.bypass
	default:
		return mycelium.Report(fmt.Errorf("pitch: field %d: %w", field, mycelium.ErrInvalidField))
	}

	return nil
}

// Set supports FieldPitchShift, FieldSampleRate and FieldBypass.
// Setting the sample rate reallocates the vocoder state, discarding any
// in-flight stream.
func (p *Pitch) Set(field mycelium.Field, value any) error {
	switch field {
	case mycelium.FieldPitchShift:
		v, ok := value.(*float32)
		if !ok || *v <= 0 {
			return mycelium.Report(fmt.Errorf("pitch: ratio: %w", mycelium.ErrInvalidValue))
		}

		p.pitch = *v
	case mycelium.FieldSampleRate:
		v, ok := value.(*int)
		if !ok || *v <= 0 {
			return mycelium.Report(fmt.Errorf("pitch: sample rate: %w", mycelium.ErrInvalidValue))
		}

		voc, err := newVocoder(p.framesize, p.oversampling, *v)
		if err != nil {
			return err
		}

		p.voc.free()
		p.voc = voc
		p.samplerate = *v
	case mycelium.FieldBypass:
		v, ok := value.(*bool)
		if !ok {
			return mycelium.Report(fmt.Errorf("pitch: bypass wants *bool: %w", mycelium.ErrInvalidValue))
		}

		p.bypass = *v
	default:
		return mycelium.Report(fmt.Errorf("pitch: field %d: %w", field, mycelium.ErrInvalidField))
	}

	return nil
}

// Close releases the vocoder state.
func (p *Pitch) Close() error {
	if p.voc != nil {
		p.voc.free()
		p.voc = nil
	}

	return nil
}

// Info describes the segment.
func (p *Pitch) Info() mycelium.SegmentInfo {
	return mycelium.SegmentInfo{
		Name:        "pitch",
		Description: "Shift the pitch of the audio.",
		MinInputs:   1,
		MaxInputs:   1,
		Outputs:     1,
		Fields: []mycelium.FieldInfo{
			{
				Field: mycelium.FieldBuffer, Type: mycelium.TypeBuffer, Count: 2,
				Flags:       mycelium.FlagIn | mycelium.FlagOut | mycelium.FlagSet,
				Description: "The buffer for audio data attached to the location.",
			},
			{
				Field: mycelium.FieldPitchShift, Type: mycelium.TypeFloat32, Count: 1,
				Flags:       mycelium.FlagSegment | mycelium.FlagGet | mycelium.FlagSet,
				Description: "The frequency ratio applied to the audio.",
			},
			{
				Field: mycelium.FieldSampleRate, Type: mycelium.TypeInt, Count: 1,
				Flags:       mycelium.FlagSegment | mycelium.FlagGet | mycelium.FlagSet,
				Description: "The sample rate at which the segment operates.",
			},
			{
				Field: mycelium.FieldBypass, Type: mycelium.TypeBool, Count: 1,
				Flags:       mycelium.FlagSegment | mycelium.FlagGet | mycelium.FlagSet,
				Description: "Bypass the segment's processing.",
			},
		},
	}
}
