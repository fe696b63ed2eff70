package mycelium

// Field identifies a well-known segment property accessed through Get
// and Set.
type Field uint

// Well-known fields. Individual segments document which of these they
// carry; Info lists them with their types and direction flags.
const (
	// FieldBuffer is the indexed buffer slot, accessed through
	// SetBuffer and GetBuffer rather than Get/Set.
	FieldBuffer Field = iota
	// FieldBypass toggles pass-through processing (*bool).
	FieldBypass
	// FieldSampleRate is the sample rate the segment operates at (*int).
	FieldSampleRate
	// FieldPitchShift is the pitch ratio of the pitch segment (*float32).
	FieldPitchShift
	// FieldVolume is the gain multiplier of the general segment (*float32).
	FieldVolume
	// FieldPan is the stereo pan of the general segment (*float32).
	FieldPan
	// FieldListenerLocation is the listener position of the space
	// segment (*r3.Vector).
	FieldListenerLocation
	// FieldSourceLocation is the source position of the space segment
	// (*r3.Vector).
	FieldSourceLocation
	// FieldInCount is the number of input buffer slots (*int).
	FieldInCount
	// FieldOutCount is the number of output buffer slots (*int).
	FieldOutCount
	// FieldCurrentSegment is the active child of a container segment
	// (*Segment, read-only).
	FieldCurrentSegment
)

// ValueType tags the Go type a field's Get/Set pointer must have.
type ValueType uint8

// Field value types.
const (
	TypeBuffer ValueType = iota
	TypeBool
	TypeInt
	TypeFloat32
	TypeVector
	TypeSegment
)

// FieldFlags describe where a field applies and which accessors it
// supports.
type FieldFlags uint8

// Field direction and access flags.
const (
	FlagIn FieldFlags = 1 << iota
	FlagOut
	FlagSegment
	FlagGet
	FlagSet
)

// FieldInfo describes one introspectable field of a segment.
type FieldInfo struct {
	Field       Field
	Type        ValueType
	Count       int
	Flags       FieldFlags
	Description string
}

// SegmentInfo is the immutable descriptor a segment returns from Info.
type SegmentInfo struct {
	Name        string
	Description string
	MinInputs   int
	MaxInputs   int
	Outputs     int
	Fields      []FieldInfo
}

// Segment is a polymorphic processing node in the pipeline.
//
// Buffer locations are zero-based and dense up to the input and output
// counts reported by Info; input locations precede output locations.
// Mix is only valid between Start and End, must leave state untouched
// when called with zero samples, and may return Finished to signal
// completion to a containing segment. Get and Set take a pointer whose
// type matches the field's ValueType.
//
// A segment that legitimately does not supply an operation returns an
// error wrapping ErrNotImplemented; callers must tolerate that on
// Start, End, Get and Set. Embed Unimplemented to supply those
// defaults.
type Segment interface {
	Start() error
	Mix(samples, samplerate int) error
	End() error
	SetBuffer(location int, buf *Buffer) error
	GetBuffer(location int) (*Buffer, error)
	Info() SegmentInfo
	Get(field Field, value any) error
	Set(field Field, value any) error
	Close() error
}

// Unimplemented provides NotImplemented defaults for the optional
// segment operations and no-ops for lifecycle calls. Concrete segments
// embed it and override what they support.
type Unimplemented struct{}

// Start reports nothing to do.
func (Unimplemented) Start() error { return nil }

// End reports nothing to do.
func (Unimplemented) End() error { return nil }

// Close reports nothing to release.
func (Unimplemented) Close() error { return nil }

// Get reports the operation as unsupported.
func (Unimplemented) Get(Field, any) error {
	return Report(ErrNotImplemented)
}

// Set reports the operation as unsupported.
func (Unimplemented) Set(Field, any) error {
	return Report(ErrNotImplemented)
}

// GetBuffer reports the operation as unsupported.
func (Unimplemented) GetBuffer(int) (*Buffer, error) {
	return nil, Report(ErrNotImplemented)
}
