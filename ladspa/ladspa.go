// Package ladspa hosts LADSPA plugins as pipeline segments. The
// segment wrapper drives any Plugin implementation; the loader resolves
// real plugins from shared objects on platforms with a dynamic linker.
package ladspa

import "errors"

// Port descriptor bits from ladspa.h.
const (
	PortInput   = 0x1
	PortOutput  = 0x2
	PortControl = 0x4
	PortAudio   = 0x8
)

var (
	// ErrNotSupported is returned by Load on platforms without dynamic
	// library support.
	ErrNotSupported = errors.New("ladspa: not supported on this platform")

	errNoDescriptor = errors.New("ladspa: no descriptor at index")
	errBadPlugin    = errors.New("ladspa: malformed plugin")
)

// Plugin is one instantiated LADSPA plugin. The loader provides
// implementations backed by native shared objects; anything satisfying
// the interface can sit behind a Segment.
type Plugin interface {
	// Label returns the plugin's identifying label.
	Label() string
	// PortCount returns the number of declared ports.
	PortCount() int
	// PortDescriptor returns the descriptor bits of a port.
	PortDescriptor(port int) int
	// PortName returns the declared name of a port.
	PortName(port int) string
	// Connect attaches a data block to a port. Audio ports consume one
	// value per frame, control ports only read or write data[0].
	Connect(port int, data []float32)
	// Activate prepares the plugin for a run, Deactivate ends it.
	Activate()
	Deactivate()
	// Run processes the given number of frames over the connected
	// ports.
	Run(frames int)
	// Cleanup destroys the plugin instance.
	Cleanup()
}
