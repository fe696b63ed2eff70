package mycelium

import "errors"

// Code is one of the canonical error codes of the library. The zero
// value means no error.
type Code uint8

// Canonical error codes.
const (
	NoError Code = iota
	OutOfMemory
	UnknownEncoding
	UnknownLayout
	MixingFailed
	NotImplemented
	NotInitialized
	MixerInvalidIndex
	InvalidLocation
	InvalidField
	InvalidValue
)

// String returns the human-readable name of the code.
func (c Code) String() string {
	switch c {
	case NoError:
		return "no error"
	case OutOfMemory:
		return "out of memory"
	case UnknownEncoding:
		return "unknown sample encoding"
	case UnknownLayout:
		return "unknown channel layout"
	case MixingFailed:
		return "mixing failed"
	case NotImplemented:
		return "operation not implemented"
	case NotInitialized:
		return "object not initialized"
	case MixerInvalidIndex:
		return "invalid mixer index"
	case InvalidLocation:
		return "invalid buffer location"
	case InvalidField:
		return "invalid segment field"
	case InvalidValue:
		return "invalid field value"
	}

	return "unknown error"
}

// Sentinel errors, one per canonical code. Operations wrap these with
// context; match with errors.Is.
var (
	ErrOutOfMemory       = errors.New("mycelium: out of memory")
	ErrUnknownEncoding   = errors.New("mycelium: unknown sample encoding")
	ErrUnknownLayout     = errors.New("mycelium: unknown channel layout")
	ErrMixingFailed      = errors.New("mycelium: mixing failed")
	ErrNotImplemented    = errors.New("mycelium: operation not implemented")
	ErrNotInitialized    = errors.New("mycelium: object not initialized")
	ErrMixerInvalidIndex = errors.New("mycelium: invalid mixer index")
	ErrInvalidLocation   = errors.New("mycelium: invalid buffer location")
	ErrInvalidField      = errors.New("mycelium: invalid segment field")
	ErrInvalidValue      = errors.New("mycelium: invalid field value")
)

// Finished is the sentinel a segment returns from Mix to signal that it
// has run to completion. It is distinct from success and from failure:
// container segments (the queue) advance past a finished child instead
// of surfacing an error.
var Finished = errors.New("mycelium: segment finished")

// CodeOf maps an error to its canonical code. Unrecognised errors map
// to MixingFailed; nil and Finished map to NoError.
func CodeOf(err error) Code {
	switch {
	case err == nil, errors.Is(err, Finished):
		return NoError
	case errors.Is(err, ErrOutOfMemory):
		return OutOfMemory
	case errors.Is(err, ErrUnknownEncoding):
		return UnknownEncoding
	case errors.Is(err, ErrUnknownLayout):
		return UnknownLayout
	case errors.Is(err, ErrNotImplemented):
		return NotImplemented
	case errors.Is(err, ErrNotInitialized):
		return NotInitialized
	case errors.Is(err, ErrMixerInvalidIndex):
		return MixerInvalidIndex
	case errors.Is(err, ErrInvalidLocation):
		return InvalidLocation
	case errors.Is(err, ErrInvalidField):
		return InvalidField
	case errors.Is(err, ErrInvalidValue):
		return InvalidValue
	}

	return MixingFailed
}

// Err returns the sentinel error for the code, or nil for NoError.
func (c Code) Err() error {
	switch c {
	case NoError:
		return nil
	case OutOfMemory:
		return ErrOutOfMemory
	case UnknownEncoding:
		return ErrUnknownEncoding
	case UnknownLayout:
		return ErrUnknownLayout
	case MixingFailed:
		return ErrMixingFailed
	case NotImplemented:
		return ErrNotImplemented
	case NotInitialized:
		return ErrNotInitialized
	case MixerInvalidIndex:
		return ErrMixerInvalidIndex
	case InvalidLocation:
		return ErrInvalidLocation
	case InvalidField:
		return ErrInvalidField
	case InvalidValue:
		return ErrInvalidValue
	}

	return ErrMixingFailed
}

// lastCode is the process-wide last-error register. The core is
// single-threaded, so a plain variable suffices.
var lastCode Code //nolint:gochecknoglobals // Compatibility register, written on every reported failure.

// Report records the code of err in the last-error register and returns
// err unchanged, so failure paths can report and propagate in one step.
// The register is a compatibility layer for callers ported from the C
// API; Go callers should rely on the returned error instead.
func Report(err error) error {
	if err != nil && !errors.Is(err, Finished) {
		lastCode = CodeOf(err)
	}

	return err
}

// LastError returns the code of the most recently reported failure.
func LastError() Code {
	return lastCode
}

// TakeLastError returns the code of the most recently reported failure
// and clears the register.
func TakeLastError() Code {
	c := lastCode
	lastCode = NoError

	return c
}
