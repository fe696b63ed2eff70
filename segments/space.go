package segments

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/mycophonic/mycelium"
)

const (
	// earAxisDelay is the maximum interaural time difference in
	// seconds, reached when the source sits fully to one side.
	earAxisDelay = 0.00066

	// spaceRolloff controls how quickly gain falls off with distance.
	spaceRolloff = 0.1

	// spaceHistory is the ring capacity for the interaural delay line;
	// large enough for the maximum ITD at 192 kHz.
	spaceHistory = 256
)

var _ mycelium.Segment = (*Space)(nil)

// Space renders a mono source at a 3D position relative to a listener,
// producing stereo with distance attenuation and an interaural delay.
// Positions move through FieldSourceLocation and FieldListenerLocation.
// The psychoacoustic model is deliberately simple; only the I/O shape
// is contractual.
type Space struct {
	mycelium.Unimplemented

	source   r3.Vector
	listener r3.Vector
	bypass   bool

	in   *mycelium.Buffer
	outL *mycelium.Buffer
	outR *mycelium.Buffer

	history [spaceHistory]float32
	write   int
}

// NewSpace creates a space segment with source and listener at the
// origin.
func NewSpace() *Space {
	return &Space{}
}

// Start clears the delay line so a new run does not replay the tail of
// the previous one.
func (s *Space) Start() error {
	s.history = [spaceHistory]float32{}
	s.write = 0

	return nil
}

// Mix spatialises the mono input into the stereo outputs.
func (s *Space) Mix(samples, samplerate int) error {
	if s.in == nil || s.outL == nil || s.outR == nil {
		return mycelium.Report(fmt.Errorf("space: buffers unwired: %w", mycelium.ErrNotInitialized))
	}

	if s.bypass {
		mycelium.Copy(s.outL, s.in)
		mycelium.Copy(s.outR, s.in)

		return nil
	}

	dir := s.source.Sub(s.listener)
	dist := dir.Norm()

	gain := 1 / (1 + spaceRolloff*dist)

	// Lateral position along the ear axis, in [-1, 1]. A centred
	// source has no interaural difference.
	lateral := 0.0
	if dist > 1e-9 {
		lateral = dir.X / dist
	}

	gainL := float32(gain * math.Sqrt((1-lateral)/2))
	gainR := float32(gain * math.Sqrt((1+lateral)/2))

	// The far ear hears the source later.
	maxDelay := earAxisDelay * float64(samplerate)

	delayL, delayR := 0, 0
	if lateral > 0 {
		delayL = int(lateral * maxDelay)
	} else {
		delayR = int(-lateral * maxDelay)
	}

	for i := 0; i < samples; i++ {
		s.history[s.write] = s.in.Data[i]

		s.outL.Data[i] = s.delayed(delayL) * gainL
		s.outR.Data[i] = s.delayed(delayR) * gainR

		s.write = (s.write + 1) % spaceHistory
	}

	return nil
}

// delayed reads the sample written d steps before the current one.
func (s *Space) delayed(d int) float32 {
	return s.history[(s.write-d+spaceHistory)%spaceHistory]
}

// SetBuffer wires location 0 as the mono input, 1 and 2 as the stereo
// outputs.
func (s *Space) SetBuffer(location int, buf *mycelium.Buffer) error {
	switch location {
	case 0:
		s.in = buf
	case 1:
		s.outL = buf
	case 2:
		s.outR = buf
	default:
		return mycelium.Report(fmt.Errorf("space: location %d: %w", location, mycelium.ErrInvalidLocation))
	}

	return nil
}

// GetBuffer returns the buffer wired at location.
func (s *Space) GetBuffer(location int) (*mycelium.Buffer, error) {
	switch location {
	case 0:
		return s.in, nil
	case 1:
		return s.outL, nil
	case 2:
		return s.outR, nil
	}

	return nil, mycelium.Report(fmt.Errorf("space: location %d: %w", location, mycelium.ErrInvalidLocation))
}

// Get supports the location vectors and FieldBypass.
func (s *Space) Get(field mycelium.Field, value any) error {
	switch field {
	case mycelium.FieldSourceLocation, mycelium.FieldListenerLocation:
		v, ok := value.(*r3.Vector)
		if !ok {
			return mycelium.Report(fmt.Errorf("space: location wants *r3.Vector: %w", mycelium.ErrInvalidValue))
		}

		if field == mycelium.FieldSourceLocation {
			*v = s.source
		} else {
			*v = s.listener
		}
	case mycelium.FieldBypass:
		v, ok := value.(*bool)
		if !ok {
			return mycelium.Report(fmt.Errorf("space: bypass wants *bool: %w", mycelium.ErrInvalidValue))
		}

		*v = s.bypass
	default:
		return mycelium.Report(fmt.Errorf("space: field %d: %w", field, mycelium.ErrInvalidField))
	}

	return nil
}

// Set supports the location vectors and FieldBypass.
func (s *Space) Set(field mycelium.Field, value any) error {
	switch field {
	case mycelium.FieldSourceLocation, mycelium.FieldListenerLocation:
		v, ok := value.(*r3.Vector)
		if !ok {
			return mycelium.Report(fmt.Errorf("space: location wants *r3.Vector: %w", mycelium.ErrInvalidValue))
		}

		if field == mycelium.FieldSourceLocation {
			s.source = *v
		} else {
			s.listener = *v
		}
	case mycelium.FieldBypass:
		v, ok := value.(*bool)
		if !ok {
			return mycelium.Report(fmt.Errorf("space: bypass wants *bool: %w", mycelium.ErrInvalidValue))
		}

		s.bypass = *v
	default:
		return mycelium.Report(fmt.Errorf("space: field %d: %w", field, mycelium.ErrInvalidField))
	}

	return nil
}

// Info describes the segment.
func (s *Space) Info() mycelium.SegmentInfo {
	return mycelium.SegmentInfo{
		Name:        "space",
		Description: "Render a mono source at a 3D position into stereo.",
		MinInputs:   1,
		MaxInputs:   1,
		Outputs:     2,
		Fields: []mycelium.FieldInfo{
			{
				Field: mycelium.FieldBuffer, Type: mycelium.TypeBuffer, Count: 3,
				Flags:       mycelium.FlagIn | mycelium.FlagOut | mycelium.FlagSet,
				Description: "The buffer for audio data attached to the location.",
			},
			{
				Field: mycelium.FieldSourceLocation, Type: mycelium.TypeVector, Count: 3,
				Flags:       mycelium.FlagSegment | mycelium.FlagGet | mycelium.FlagSet,
				Description: "The position of the sound source.",
			},
			{
				Field: mycelium.FieldListenerLocation, Type: mycelium.TypeVector, Count: 3,
				Flags:       mycelium.FlagSegment | mycelium.FlagGet | mycelium.FlagSet,
				Description: "The position of the listener.",
			},
			{
				Field: mycelium.FieldBypass, Type: mycelium.TypeBool, Count: 1,
				Flags:       mycelium.FlagSegment | mycelium.FlagGet | mycelium.FlagSet,
				Description: "Bypass the segment's processing.",
			},
		},
	}
}
