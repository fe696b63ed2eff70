package segments

import (
	"fmt"

	"github.com/mycophonic/mycelium"
)

var _ mycelium.Segment = (*Mixdown)(nil)

// Mixdown sums any number of input buffers linearly into one output
// buffer. The input slot count starts at the constructor argument and
// can be grown or shrunk through FieldInCount.
type Mixdown struct {
	mycelium.Unimplemented

	ins []*mycelium.Buffer
	out *mycelium.Buffer
}

// NewMixdown creates a mixdown segment with the given number of input
// slots.
func NewMixdown(inputs int) (*Mixdown, error) {
	if inputs <= 0 {
		return nil, mycelium.Report(fmt.Errorf("mixdown: %d inputs: %w", inputs, mycelium.ErrInvalidValue))
	}

	return &Mixdown{ins: make([]*mycelium.Buffer, inputs)}, nil
}

// Mix writes the linear sum of all wired inputs into the output. Empty
// slots contribute silence.
func (m *Mixdown) Mix(samples, _ int) error {
	if m.out == nil {
		return mycelium.Report(fmt.Errorf("mixdown: no output wired: %w", mycelium.ErrNotInitialized))
	}

	for i := 0; i < samples; i++ {
		m.out.Data[i] = 0
	}

	for _, in := range m.ins {
		if in == nil {
			continue
		}

		for i := 0; i < samples; i++ {
			m.out.Data[i] += in.Data[i]
		}
	}

	return nil
}

// SetBuffer wires input slots 0..inputs-1; the location just past them
// is the output.
func (m *Mixdown) SetBuffer(location int, buf *mycelium.Buffer) error {
	switch {
	case location >= 0 && location < len(m.ins):
		m.ins[location] = buf
	case location == len(m.ins):
		m.out = buf
	default:
		return mycelium.Report(fmt.Errorf("mixdown: location %d: %w", location, mycelium.ErrInvalidLocation))
	}

	return nil
}

// GetBuffer returns the buffer wired at location.
func (m *Mixdown) GetBuffer(location int) (*mycelium.Buffer, error) {
	switch {
	case location >= 0 && location < len(m.ins):
		return m.ins[location], nil
	case location == len(m.ins):
		return m.out, nil
	}

	return nil, mycelium.Report(fmt.Errorf("mixdown: location %d: %w", location, mycelium.ErrInvalidLocation))
}

// Get supports FieldInCount.
func (m *Mixdown) Get(field mycelium.Field, value any) error {
	if field != mycelium.FieldInCount {
		return mycelium.Report(fmt.Errorf("mixdown: field %d: %w", field, mycelium.ErrInvalidField))
	}

	n, ok := value.(*int)
	if !ok {
		return mycelium.Report(fmt.Errorf("mixdown: in count wants *int: %w", mycelium.ErrInvalidValue))
	}

	*n = len(m.ins)

	return nil
}

// Set supports FieldInCount. Shrinking below an occupied slot is a
// caller error.
func (m *Mixdown) Set(field mycelium.Field, value any) error {
	if field != mycelium.FieldInCount {
		return mycelium.Report(fmt.Errorf("mixdown: field %d: %w", field, mycelium.ErrInvalidField))
	}

	n, ok := value.(*int)
	if !ok || *n <= 0 {
		return mycelium.Report(fmt.Errorf("mixdown: in count: %w", mycelium.ErrInvalidValue))
	}

	for _, in := range m.ins[min(*n, len(m.ins)):] {
		if in != nil {
			return mycelium.Report(fmt.Errorf("mixdown: shrink below occupied slot: %w", mycelium.ErrInvalidValue))
		}
	}

	resized := make([]*mycelium.Buffer, *n)
	copy(resized, m.ins)
	m.ins = resized

	return nil
}

// Info describes the segment.
func (m *Mixdown) Info() mycelium.SegmentInfo {
	return mycelium.SegmentInfo{
		Name:        "mixdown",
		Description: "Sum input buffers linearly into one output.",
		MinInputs:   1,
		MaxInputs:   len(m.ins),
		Outputs:     1,
		Fields: []mycelium.FieldInfo{
			{
				Field: mycelium.FieldBuffer, Type: mycelium.TypeBuffer, Count: len(m.ins) + 1,
				Flags:       mycelium.FlagIn | mycelium.FlagOut | mycelium.FlagSet,
				Description: "The buffer for audio data attached to the location.",
			},
			{
				Field: mycelium.FieldInCount, Type: mycelium.TypeInt, Count: 1,
				Flags:       mycelium.FlagSegment | mycelium.FlagGet | mycelium.FlagSet,
				Description: "The number of available input slots.",
			},
		},
	}
}
