package ladspa

import (
	"fmt"

	"github.com/mycophonic/mycelium"
)

var _ mycelium.Segment = (*Segment)(nil)

// Segment drives a Plugin behind the pipeline segment interface. The
// plugin's audio ports become buffer slots: input audio ports first, in
// declaration order, then output audio ports. Control ports are held at
// zero unless a value is installed with SetControl.
type Segment struct {
	mycelium.Unimplemented

	plugin   Plugin
	inPorts  []int // plugin port index per input slot
	outPorts []int // plugin port index per output slot
	ins      []*mycelium.Buffer
	outs     []*mycelium.Buffer
	controls []float32 // one slot per plugin port, unused for audio
	active   bool
}

// NewSegment wraps an instantiated plugin. The caller keeps ownership
// of nothing: Close runs the plugin's cleanup.
func NewSegment(plugin Plugin) (*Segment, error) {
	if plugin == nil {
		return nil, mycelium.Report(fmt.Errorf("ladspa: %w", mycelium.ErrNotInitialized))
	}

	s := &Segment{
		plugin:   plugin,
		controls: make([]float32, plugin.PortCount()),
	}

	for port := 0; port < plugin.PortCount(); port++ {
		desc := plugin.PortDescriptor(port)

		switch {
		case desc&PortAudio != 0 && desc&PortInput != 0:
			s.inPorts = append(s.inPorts, port)
		case desc&PortAudio != 0 && desc&PortOutput != 0:
			s.outPorts = append(s.outPorts, port)
		default:
			// Control ports read or write a single retained value.
			plugin.Connect(port, s.controls[port:port+1])
		}
	}

	s.ins = make([]*mycelium.Buffer, len(s.inPorts))
	s.outs = make([]*mycelium.Buffer, len(s.outPorts))

	return s, nil
}

// SetControl installs a value on the control port with the given plugin
// port index.
func (s *Segment) SetControl(port int, value float32) error {
	if port < 0 || port >= len(s.controls) {
		return mycelium.Report(fmt.Errorf("ladspa: control port %d: %w", port, mycelium.ErrInvalidLocation))
	}

	if s.plugin.PortDescriptor(port)&PortControl == 0 {
		return mycelium.Report(fmt.Errorf("ladspa: port %d is not a control port: %w", port, mycelium.ErrInvalidLocation))
	}

	s.controls[port] = value

	return nil
}

// Control reads the retained value of a control port, which an output
// control port updates during Run.
func (s *Segment) Control(port int) (float32, error) {
	if port < 0 || port >= len(s.controls) {
		return 0, mycelium.Report(fmt.Errorf("ladspa: control port %d: %w", port, mycelium.ErrInvalidLocation))
	}

	return s.controls[port], nil
}

// Start activates the plugin.
func (s *Segment) Start() error {
	for slot, buf := range s.ins {
		if buf == nil {
			return mycelium.Report(fmt.Errorf("ladspa: input slot %d unwired: %w", slot, mycelium.ErrNotInitialized))
		}
	}

	for slot, buf := range s.outs {
		if buf == nil {
			return mycelium.Report(fmt.Errorf("ladspa: output slot %d unwired: %w", slot, mycelium.ErrNotInitialized))
		}
	}

	s.plugin.Activate()
	s.active = true

	return nil
}

// Mix runs the plugin over the next samples frames.
func (s *Segment) Mix(samples, _ int) error {
	if !s.active {
		return mycelium.Report(fmt.Errorf("ladspa: mix before start: %w", mycelium.ErrNotInitialized))
	}

	if samples == 0 {
		return nil
	}

	for slot, buf := range s.ins {
		s.plugin.Connect(s.inPorts[slot], buf.Data[:samples])
	}

	for slot, buf := range s.outs {
		s.plugin.Connect(s.outPorts[slot], buf.Data[:samples])
	}

	s.plugin.Run(samples)

	return nil
}

// End deactivates the plugin.
func (s *Segment) End() error {
	if s.active {
		s.plugin.Deactivate()
		s.active = false
	}

	return nil
}

// SetBuffer wires an audio port slot: input slots first, then output
// slots.
func (s *Segment) SetBuffer(location int, buf *mycelium.Buffer) error {
	switch {
	case location >= 0 && location < len(s.ins):
		s.ins[location] = buf
	case location >= len(s.ins) && location < len(s.ins)+len(s.outs):
		s.outs[location-len(s.ins)] = buf
	default:
		return mycelium.Report(fmt.Errorf("ladspa: location %d: %w", location, mycelium.ErrInvalidLocation))
	}

	return nil
}

// GetBuffer returns the buffer wired at location.
func (s *Segment) GetBuffer(location int) (*mycelium.Buffer, error) {
	switch {
	case location >= 0 && location < len(s.ins):
		return s.ins[location], nil
	case location >= len(s.ins) && location < len(s.ins)+len(s.outs):
		return s.outs[location-len(s.ins)], nil
	}

	return nil, mycelium.Report(fmt.Errorf("ladspa: location %d: %w", location, mycelium.ErrInvalidLocation))
}

// Close cleans the plugin up.
func (s *Segment) Close() error {
	if s.plugin != nil {
		if s.active {
			s.plugin.Deactivate()
			s.active = false
		}

		s.plugin.Cleanup()
		s.plugin = nil
	}

	return nil
}

// Info describes the wrapped plugin.
func (s *Segment) Info() mycelium.SegmentInfo {
	name := "ladspa"
	if s.plugin != nil {
		name = s.plugin.Label()
	}

	return mycelium.SegmentInfo{
		Name:        name,
		Description: "Process audio through a LADSPA plugin.",
		MinInputs:   len(s.inPorts),
		MaxInputs:   len(s.inPorts),
		Outputs:     len(s.outPorts),
		Fields: []mycelium.FieldInfo{
			{
				Field: mycelium.FieldBuffer, Type: mycelium.TypeBuffer,
				Count:       len(s.inPorts) + len(s.outPorts),
				Flags:       mycelium.FlagIn | mycelium.FlagOut | mycelium.FlagSet,
				Description: "The buffer for the audio port at the location.",
			},
		},
	}
}
