// Package segments provides the stock processing nodes: volume/pan,
// linear mixdown, 3D spatialisation and the sequential queue.
package segments

import (
	"fmt"

	"github.com/mycophonic/mycelium"
)

var _ mycelium.Segment = (*General)(nil)

// General applies a gain and a stereo pan to a left/right buffer pair.
// Per sample: outL = inL * volume * min(1, 1-pan) and
// outR = inR * volume * min(1, 1+pan).
type General struct {
	mycelium.Unimplemented

	volume float32
	pan    float32
	bypass bool
	ins    [2]*mycelium.Buffer
	outs   [2]*mycelium.Buffer
}

// NewGeneral creates a general segment. volume must be non-negative,
// pan within [-1, 1].
func NewGeneral(volume, pan float32) (*General, error) {
	if volume < 0 {
		return nil, mycelium.Report(fmt.Errorf("general: volume %v: %w", volume, mycelium.ErrInvalidValue))
	}

	if pan < -1 || pan > 1 {
		return nil, mycelium.Report(fmt.Errorf("general: pan %v: %w", pan, mycelium.ErrInvalidValue))
	}

	return &General{volume: volume, pan: pan}, nil
}

// Mix applies the gain law, or copies straight through when bypassed.
func (g *General) Mix(samples, _ int) error {
	for i, in := range g.ins {
		if in == nil || g.outs[i] == nil {
			return mycelium.Report(fmt.Errorf("general: channel %d unwired: %w", i, mycelium.ErrNotInitialized))
		}
	}

	if g.bypass {
		mycelium.Copy(g.outs[0], g.ins[0])
		mycelium.Copy(g.outs[1], g.ins[1])

		return nil
	}

	gainL := g.volume * min(1, 1-g.pan)
	gainR := g.volume * min(1, 1+g.pan)

	for i := 0; i < samples; i++ {
		g.outs[0].Data[i] = g.ins[0].Data[i] * gainL
		g.outs[1].Data[i] = g.ins[1].Data[i] * gainR
	}

	return nil
}

// SetBuffer wires the left/right pair: locations 0 and 1 are the
// inputs, 2 and 3 the outputs.
func (g *General) SetBuffer(location int, buf *mycelium.Buffer) error {
	switch location {
	case 0, 1:
		g.ins[location] = buf
	case 2, 3:
		g.outs[location-2] = buf
	default:
		return mycelium.Report(fmt.Errorf("general: location %d: %w", location, mycelium.ErrInvalidLocation))
	}

	return nil
}

// GetBuffer returns the buffer wired at location.
func (g *General) GetBuffer(location int) (*mycelium.Buffer, error) {
	switch location {
	case 0, 1:
		return g.ins[location], nil
	case 2, 3:
		return g.outs[location-2], nil
	}

	return nil, mycelium.Report(fmt.Errorf("general: location %d: %w", location, mycelium.ErrInvalidLocation))
}

// Get supports FieldVolume, FieldPan and FieldBypass.
func (g *General) Get(field mycelium.Field, value any) error {
	switch field {
	case mycelium.FieldVolume:
		v, ok := value.(*float32)
		if !ok {
			return mycelium.Report(fmt.Errorf("general: volume wants *float32: %w", mycelium.ErrInvalidValue))
		}

		*v = g.volume
	case mycelium.FieldPan:
		v, ok := value.(*float32)
		if !ok {
			return mycelium.Report(fmt.Errorf("general: pan wants *float32: %w", mycelium.ErrInvalidValue))
		}

		*v = g.pan
	case mycelium.FieldBypass:
		v, ok := value.(*bool)
		if !ok {
			return mycelium.Report(fmt.Errorf("general: bypass wants *bool: %w", mycelium.ErrInvalidValue))
		}

		*v = g.bypass
	default:
		return mycelium.Report(fmt.Errorf("general: field %d: %w", field, mycelium.ErrInvalidField))
	}

	return nil
}

// Set supports FieldVolume, FieldPan and FieldBypass.
func (g *General) Set(field mycelium.Field, value any) error {
	switch field {
	case mycelium.FieldVolume:
		v, ok := value.(*float32)
		if !ok || *v < 0 {
			return mycelium.Report(fmt.Errorf("general: volume: %w", mycelium.ErrInvalidValue))
		}

		g.volume = *v
	case mycelium.FieldPan:
		v, ok := value.(*float32)
		if !ok || *v < -1 || *v > 1 {
			return mycelium.Report(fmt.Errorf("general: pan: %w", mycelium.ErrInvalidValue))
		}

		g.pan = *v
	case mycelium.FieldBypass:
		v, ok := value.(*bool)
		if !ok {
			return mycelium.Report(fmt.Errorf("general: bypass wants *bool: %w", mycelium.ErrInvalidValue))
		}

		g.bypass = *v
	default:
		return mycelium.Report(fmt.Errorf("general: field %d: %w", field, mycelium.ErrInvalidField))
	}

	return nil
}

// Info describes the segment.
func (g *General) Info() mycelium.SegmentInfo {
	return mycelium.SegmentInfo{
		Name:        "general",
		Description: "Apply volume and pan to a stereo buffer pair.",
		MinInputs:   2,
		MaxInputs:   2,
		Outputs:     2,
		Fields: []mycelium.FieldInfo{
			{
				Field: mycelium.FieldBuffer, Type: mycelium.TypeBuffer, Count: 4,
				Flags:       mycelium.FlagIn | mycelium.FlagOut | mycelium.FlagSet,
				Description: "The buffer for audio data attached to the location.",
			},
			{
				Field: mycelium.FieldVolume, Type: mycelium.TypeFloat32, Count: 1,
				Flags:       mycelium.FlagSegment | mycelium.FlagGet | mycelium.FlagSet,
				Description: "The gain multiplier applied to both channels.",
			},
			{
				Field: mycelium.FieldPan, Type: mycelium.TypeFloat32, Count: 1,
				Flags:       mycelium.FlagSegment | mycelium.FlagGet | mycelium.FlagSet,
				Description: "The stereo pan in [-1, 1].",
			},
			{
				Field: mycelium.FieldBypass, Type: mycelium.TypeBool, Count: 1,
				Flags:       mycelium.FlagSegment | mycelium.FlagGet | mycelium.FlagSet,
				Description: "Bypass the segment's processing.",
			},
		},
	}
}
