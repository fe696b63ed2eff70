// Package mycelium is a real-time audio mixing and effects library.
//
// Client code builds a directed pipeline of processing nodes (segments)
// connected by shared float32 sample buffers, and a Mixer drives the
// pipeline in fixed-size sample batches. Segments are provided for
// channel format conversion (codec), volume/pan, linear mixdown, 3D
// spatialisation, phase-vocoder pitch shifting, queued sub-graphs and
// LADSPA plugin hosting.
//
// The core is single-threaded and synchronous: all operations run on
// the calling thread and take no locks. Re-entering Mix on the same
// mixer from another goroutine is undefined behaviour; callers
// serialise externally.
package mycelium
