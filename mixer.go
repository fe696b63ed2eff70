package mycelium

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
)

// MixerOption configures a Mixer during construction.
type MixerOption func(*Mixer)

// WithLogger sets the logger the mixer uses to report per-segment
// failures during End. The default logger discards everything.
func WithLogger(log zerolog.Logger) MixerOption {
	return func(m *Mixer) {
		m.log = log
	}
}

// Mixer holds an ordered set of segments and drives them batch by
// batch. It owns nothing but references: closing the mixer does not
// close its segments, and correct buffer wiring between segments is the
// caller's contract. The mixer is not a scheduler — no reordering, no
// dependency analysis, no parallelism.
type Mixer struct {
	segments   []Segment
	samplerate int
	started    int // segments whose Start succeeded in the current run
	log        zerolog.Logger
}

// NewMixer creates a mixer operating at the given sample rate.
func NewMixer(samplerate int, opts ...MixerOption) *Mixer {
	m := &Mixer{
		samplerate: samplerate,
		log:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(m)
	}

	return m
}

// SampleRate returns the rate passed to every segment's Mix.
func (m *Mixer) SampleRate() int {
	return m.samplerate
}

// Segments returns the segments in insertion order. The slice is a
// copy; mutating it does not affect the mixer.
func (m *Mixer) Segments() []Segment {
	return slices.Clone(m.segments)
}

// Add appends a segment. Segments are compared by identity; adding one
// that is already present fails with ErrMixerInvalidIndex.
func (m *Mixer) Add(s Segment) error {
	if s == nil {
		return Report(fmt.Errorf("mixer add: %w", ErrNotInitialized))
	}

	if slices.Contains(m.segments, s) {
		return Report(fmt.Errorf("mixer add: segment already present: %w", ErrMixerInvalidIndex))
	}

	m.segments = append(m.segments, s)

	return nil
}

// Remove deletes a segment in place, preserving the relative order of
// the survivors. Removing a segment that is not present fails with
// ErrMixerInvalidIndex.
func (m *Mixer) Remove(s Segment) error {
	i := slices.Index(m.segments, s)
	if i < 0 {
		return Report(fmt.Errorf("mixer remove: segment not present: %w", ErrMixerInvalidIndex))
	}

	m.segments = slices.Delete(m.segments, i, i+1)

	return nil
}

// Start invokes Start on every segment in insertion order. On the first
// failure it invokes End on all previously started segments in reverse
// order and surfaces the originating error. NotImplemented from a
// segment counts as success.
func (m *Mixer) Start() error {
	m.started = 0

	for i, s := range m.segments {
		if err := s.Start(); err != nil && !errors.Is(err, ErrNotImplemented) {
			for j := i - 1; j >= 0; j-- {
				if endErr := m.segments[j].End(); endErr != nil && !errors.Is(endErr, ErrNotImplemented) {
					m.log.Warn().Err(endErr).Int("segment", j).Msg("end during start rollback failed")
				}
			}

			return Report(fmt.Errorf("mixer start: segment %d: %w", i, err))
		}

		m.started = i + 1
	}

	return nil
}

// Mix invokes Mix(samples, rate) on every segment in insertion order.
// The first failure aborts the batch and is surfaced; the remaining
// segments are not run, and downstream buffers are left with partially
// processed samples.
func (m *Mixer) Mix(samples int) error {
	for i, s := range m.segments {
		if err := s.Mix(samples, m.samplerate); err != nil && !errors.Is(err, Finished) {
			return Report(fmt.Errorf("mixer mix: segment %d: %w", i, err))
		}
	}

	return nil
}

// End invokes End on every segment whose Start succeeded, in insertion
// order. Failures are logged and aggregated rather than aborting: End
// runs for every started segment. The joined error is returned.
func (m *Mixer) End() error {
	var errs []error

	started := min(m.started, len(m.segments))

	for i, s := range m.segments[:started] {
		if err := s.End(); err != nil && !errors.Is(err, ErrNotImplemented) {
			m.log.Warn().Err(err).Int("segment", i).Msg("segment end failed")
			errs = append(errs, fmt.Errorf("segment %d: %w", i, err))
		}
	}

	m.started = 0

	if len(errs) > 0 {
		return Report(fmt.Errorf("mixer end: %w", errors.Join(errs...)))
	}

	return nil
}

// Close releases the mixer's own state. Segments are caller-owned and
// are not closed.
func (m *Mixer) Close() error {
	m.segments = nil
	m.started = 0

	return nil
}
