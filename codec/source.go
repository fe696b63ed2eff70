package codec

import (
	"fmt"

	"github.com/mycophonic/mycelium"
)

var _ mycelium.Segment = (*Source)(nil)

// Source decodes an external channel blob into one float32 buffer per
// channel. It has no inputs and one output per channel.
type Source struct {
	mycelium.Unimplemented

	channel *mycelium.Channel
	outs    []*mycelium.Buffer
}

// NewSource creates a source segment reading from the given channel
// descriptor. The descriptor is caller-owned: its Data slice may be
// refilled between Mix calls.
func NewSource(channel *mycelium.Channel) (*Source, error) {
	if channel == nil || channel.Channels <= 0 {
		return nil, mycelium.Report(fmt.Errorf("codec source: %w", mycelium.ErrNotInitialized))
	}

	if _, err := mycelium.SampleSize(channel.Encoding); err != nil {
		return nil, err
	}

	return &Source{
		channel: channel,
		outs:    make([]*mycelium.Buffer, channel.Channels),
	}, nil
}

// Mix decodes the next samples frames into the output buffers.
func (s *Source) Mix(samples, _ int) error {
	if samples == 0 {
		return nil
	}

	return Decode(s.channel, s.outs, samples)
}

// SetBuffer installs buf as the output for the channel at location.
func (s *Source) SetBuffer(location int, buf *mycelium.Buffer) error {
	if location < 0 || location >= len(s.outs) {
		return mycelium.Report(fmt.Errorf("codec source: location %d: %w", location, mycelium.ErrInvalidLocation))
	}

	s.outs[location] = buf

	return nil
}

// GetBuffer returns the buffer wired at location.
func (s *Source) GetBuffer(location int) (*mycelium.Buffer, error) {
	if location < 0 || location >= len(s.outs) {
		return nil, mycelium.Report(fmt.Errorf("codec source: location %d: %w", location, mycelium.ErrInvalidLocation))
	}

	return s.outs[location], nil
}

// Get supports FieldSampleRate.
func (s *Source) Get(field mycelium.Field, value any) error {
	if field != mycelium.FieldSampleRate {
		return mycelium.Report(fmt.Errorf("codec source: field %d: %w", field, mycelium.ErrInvalidField))
	}

	rate, ok := value.(*int)
	if !ok {
		return mycelium.Report(fmt.Errorf("codec source: sample rate wants *int: %w", mycelium.ErrInvalidValue))
	}

	*rate = s.channel.SampleRate

	return nil
}

// Info describes the segment.
func (s *Source) Info() mycelium.SegmentInfo {
	return mycelium.SegmentInfo{
		Name:        "source",
		Description: "Decode an external channel blob into per-channel buffers.",
		MinInputs:   0,
		MaxInputs:   0,
		Outputs:     len(s.outs),
		Fields: []mycelium.FieldInfo{
			{
				Field: mycelium.FieldBuffer, Type: mycelium.TypeBuffer, Count: len(s.outs),
				Flags:       mycelium.FlagOut | mycelium.FlagSet,
				Description: "The output buffer for the channel at the location.",
			},
			{
				Field: mycelium.FieldSampleRate, Type: mycelium.TypeInt, Count: 1,
				Flags:       mycelium.FlagSegment | mycelium.FlagGet,
				Description: "The sample rate of the external channel data.",
			},
		},
	}
}
