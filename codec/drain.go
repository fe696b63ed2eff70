package codec

import (
	"fmt"

	"github.com/mycophonic/mycelium"
)

var _ mycelium.Segment = (*Drain)(nil)

// Drain encodes per-channel float32 buffers back into an external
// channel blob. It has one input per channel and no outputs.
type Drain struct {
	mycelium.Unimplemented

	channel *mycelium.Channel
	ins     []*mycelium.Buffer
}

// NewDrain creates a drain segment writing into the given channel
// descriptor.
func NewDrain(channel *mycelium.Channel) (*Drain, error) {
	if channel == nil || channel.Channels <= 0 {
		return nil, mycelium.Report(fmt.Errorf("codec drain: %w", mycelium.ErrNotInitialized))
	}

	if _, err := mycelium.SampleSize(channel.Encoding); err != nil {
		return nil, err
	}

	return &Drain{
		channel: channel,
		ins:     make([]*mycelium.Buffer, channel.Channels),
	}, nil
}

// Mix encodes the next samples frames from the input buffers into the
// channel blob.
func (d *Drain) Mix(samples, _ int) error {
	if samples == 0 {
		return nil
	}

	return Encode(d.ins, d.channel, samples)
}

// SetBuffer installs buf as the input for the channel at location.
func (d *Drain) SetBuffer(location int, buf *mycelium.Buffer) error {
	if location < 0 || location >= len(d.ins) {
		return mycelium.Report(fmt.Errorf("codec drain: location %d: %w", location, mycelium.ErrInvalidLocation))
	}

	d.ins[location] = buf

	return nil
}

// GetBuffer returns the buffer wired at location.
func (d *Drain) GetBuffer(location int) (*mycelium.Buffer, error) {
	if location < 0 || location >= len(d.ins) {
		return nil, mycelium.Report(fmt.Errorf("codec drain: location %d: %w", location, mycelium.ErrInvalidLocation))
	}

	return d.ins[location], nil
}

// Get supports FieldSampleRate.
func (d *Drain) Get(field mycelium.Field, value any) error {
	if field != mycelium.FieldSampleRate {
		return mycelium.Report(fmt.Errorf("codec drain: field %d: %w", field, mycelium.ErrInvalidField))
	}

	rate, ok := value.(*int)
	if !ok {
		return mycelium.Report(fmt.Errorf("codec drain: sample rate wants *int: %w", mycelium.ErrInvalidValue))
	}

	*rate = d.channel.SampleRate

	return nil
}

// Info describes the segment.
func (d *Drain) Info() mycelium.SegmentInfo {
	return mycelium.SegmentInfo{
		Name:        "drain",
		Description: "Encode per-channel buffers into an external channel blob.",
		MinInputs:   len(d.ins),
		MaxInputs:   len(d.ins),
		Outputs:     0,
		Fields: []mycelium.FieldInfo{
			{
				Field: mycelium.FieldBuffer, Type: mycelium.TypeBuffer, Count: len(d.ins),
				Flags:       mycelium.FlagIn | mycelium.FlagSet,
				Description: "The input buffer for the channel at the location.",
			},
			{
				Field: mycelium.FieldSampleRate, Type: mycelium.TypeInt, Count: 1,
				Flags:       mycelium.FlagSegment | mycelium.FlagGet,
				Description: "The sample rate of the external channel data.",
			},
		},
	}
}
