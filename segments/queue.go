package segments

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mycophonic/mycelium"
)

// queueSlots is the number of input and output slots a queue starts
// with; FieldInCount and FieldOutCount resize it.
const queueSlots = 8

var _ mycelium.Segment = (*Queue)(nil)

// Queue is a segment that runs child segments sequentially: each Mix
// batch goes to the head child until it reports Finished, at which
// point the head is unlinked, its slots unwired, and the next child
// takes over within the same batch. An empty queue passes its inputs
// through to its outputs.
//
// Whenever a buffer is installed at queue slot L, every child currently
// in the queue has that buffer wired at its own slot L, so children can
// be added and removed while the pipeline runs.
type Queue struct {
	mycelium.Unimplemented

	children []mycelium.Segment
	ins      []*mycelium.Buffer
	outs     []*mycelium.Buffer
	bypass   bool
}

// NewQueue creates an empty queue with the default slot counts.
func NewQueue() *Queue {
	return &Queue{
		ins:  make([]*mycelium.Buffer, queueSlots),
		outs: make([]*mycelium.Buffer, queueSlots),
	}
}

// Add appends a child and wires the queue's buffers into it, input
// slots and output slots each up to what the child can take.
func (q *Queue) Add(child mycelium.Segment) error {
	if child == nil {
		return mycelium.Report(fmt.Errorf("queue add: %w", mycelium.ErrNotInitialized))
	}

	q.children = append(q.children, child)

	return q.wire(child, q.ins, q.outs)
}

// Remove detaches a child and unwires the queue's slots from it.
func (q *Queue) Remove(child mycelium.Segment) error {
	i := slices.Index(q.children, child)
	if i < 0 {
		return mycelium.Report(fmt.Errorf("queue remove: segment not present: %w", mycelium.ErrMixerInvalidIndex))
	}

	q.children = slices.Delete(q.children, i, i+1)

	return q.unwire(child)
}

// RemoveAt detaches the child at the given position.
func (q *Queue) RemoveAt(pos int) error {
	if pos < 0 || pos >= len(q.children) {
		return mycelium.Report(fmt.Errorf("queue remove at %d: %w", pos, mycelium.ErrMixerInvalidIndex))
	}

	return q.Remove(q.children[pos])
}

// Clear detaches every child, unwiring each.
func (q *Queue) Clear() error {
	var errs []error

	for _, child := range q.children {
		if err := q.unwire(child); err != nil {
			errs = append(errs, err)
		}
	}

	q.children = nil

	return errors.Join(errs...)
}

// wire installs the queue-level buffers into one child. Input slot L
// maps to the child's location L, output slot L to the child's location
// MaxInputs+L.
func (q *Queue) wire(child mycelium.Segment, ins, outs []*mycelium.Buffer) error {
	info := child.Info()

	for l := 0; l < min(len(ins), info.MaxInputs); l++ {
		if err := child.SetBuffer(l, ins[l]); err != nil {
			return err
		}
	}

	for l := 0; l < min(len(outs), info.Outputs); l++ {
		if err := child.SetBuffer(info.MaxInputs+l, outs[l]); err != nil {
			return err
		}
	}

	return nil
}

// unwire nulls every slot of a departing child.
func (q *Queue) unwire(child mycelium.Segment) error {
	info := child.Info()

	for l := info.MaxInputs + info.Outputs - 1; l >= 0; l-- {
		if err := child.SetBuffer(l, nil); err != nil {
			return err
		}
	}

	return nil
}

// Mix drives the head child. A Finished head is popped and the next
// child continues with the same batch; an empty queue copies inputs to
// outputs.
func (q *Queue) Mix(samples, samplerate int) error {
	if q.bypass {
		return q.passthrough()
	}

	for len(q.children) > 0 {
		head := q.children[0]

		err := head.Mix(samples, samplerate)
		if err == nil {
			return nil
		}

		if !errors.Is(err, mycelium.Finished) {
			return err
		}

		q.children = q.children[1:]

		if err := q.unwire(head); err != nil {
			return err
		}
	}

	return q.passthrough()
}

// passthrough copies each input to the same-indexed output and clears
// outputs with no matching input.
func (q *Queue) passthrough() error {
	i := 0
	for ; i < len(q.outs) && i < len(q.ins); i++ {
		if q.outs[i] == nil {
			continue
		}

		if q.ins[i] == nil {
			q.outs[i].Clear()

			continue
		}

		mycelium.Copy(q.outs[i], q.ins[i])
	}

	for ; i < len(q.outs); i++ {
		if q.outs[i] != nil {
			q.outs[i].Clear()
		}
	}

	return nil
}

// SetBuffer records the buffer at the queue level and propagates it to
// every current child. Input slots precede output slots.
func (q *Queue) SetBuffer(location int, buf *mycelium.Buffer) error {
	switch {
	case location >= 0 && location < len(q.ins):
		q.ins[location] = buf

		for _, child := range q.children {
			info := child.Info()
			if location < info.MaxInputs {
				if err := child.SetBuffer(location, buf); err != nil {
					return err
				}
			}
		}
	case location >= len(q.ins) && location < len(q.ins)+len(q.outs):
		out := location - len(q.ins)
		q.outs[out] = buf

		for _, child := range q.children {
			info := child.Info()
			if out < info.Outputs {
				if err := child.SetBuffer(info.MaxInputs+out, buf); err != nil {
					return err
				}
			}
		}
	default:
		return mycelium.Report(fmt.Errorf("queue: location %d: %w", location, mycelium.ErrInvalidLocation))
	}

	return nil
}

// GetBuffer returns the buffer recorded at the queue-level slot.
func (q *Queue) GetBuffer(location int) (*mycelium.Buffer, error) {
	switch {
	case location >= 0 && location < len(q.ins):
		return q.ins[location], nil
	case location >= len(q.ins) && location < len(q.ins)+len(q.outs):
		return q.outs[location-len(q.ins)], nil
	}

	return nil, mycelium.Report(fmt.Errorf("queue: location %d: %w", location, mycelium.ErrInvalidLocation))
}

// Get supports FieldBypass, FieldCurrentSegment, FieldInCount and
// FieldOutCount.
func (q *Queue) Get(field mycelium.Field, value any) error {
	switch field {
	case mycelium.FieldBypass:
		v, ok := value.(*bool)
		if !ok {
			return mycelium.Report(fmt.Errorf("queue: bypass wants *bool: %w", mycelium.ErrInvalidValue))
		}

		*v = q.bypass
	case mycelium.FieldCurrentSegment:
		v, ok := value.(*mycelium.Segment)
		if !ok {
			return mycelium.Report(fmt.Errorf("queue: current segment wants *Segment: %w", mycelium.ErrInvalidValue))
		}

		if len(q.children) > 0 {
			*v = q.children[0]
		} else {
			*v = nil
		}
	case mycelium.FieldInCount:
		v, ok := value.(*int)
		if !ok {
			return mycelium.Report(fmt.Errorf("queue: in count wants *int: %w", mycelium.ErrInvalidValue))
		}

		*v = len(q.ins)
	case mycelium.FieldOutCount:
		v, ok := value.(*int)
		if !ok {
			return mycelium.Report(fmt.Errorf("queue: out count wants *int: %w", mycelium.ErrInvalidValue))
		}

		*v = len(q.outs)
	default:
		return mycelium.Report(fmt.Errorf("queue: field %d: %w", field, mycelium.ErrInvalidField))
	}

	return nil
}

// Set supports FieldBypass, FieldInCount and FieldOutCount. Shrinking a
// slot vector below an occupied slot is a caller error.
func (q *Queue) Set(field mycelium.Field, value any) error {
	switch field {
	case mycelium.FieldBypass:
		v, ok := value.(*bool)
		if !ok {
			return mycelium.Report(fmt.Errorf("queue: bypass wants *bool: %w", mycelium.ErrInvalidValue))
		}

		q.bypass = *v
	case mycelium.FieldInCount:
		v, ok := value.(*int)
		if !ok || *v < 0 {
			return mycelium.Report(fmt.Errorf("queue: in count: %w", mycelium.ErrInvalidValue))
		}

		resized, err := resizeSlots(q.ins, *v)
		if err != nil {
			return fmt.Errorf("queue: in count: %w", err)
		}

		q.ins = resized
	case mycelium.FieldOutCount:
		v, ok := value.(*int)
		if !ok || *v < 0 {
			return mycelium.Report(fmt.Errorf("queue: out count: %w", mycelium.ErrInvalidValue))
		}

		resized, err := resizeSlots(q.outs, *v)
		if err != nil {
			return fmt.Errorf("queue: out count: %w", err)
		}

		q.outs = resized
	default:
		return mycelium.Report(fmt.Errorf("queue: field %d: %w", field, mycelium.ErrInvalidField))
	}

	return nil
}

func resizeSlots(slots []*mycelium.Buffer, n int) ([]*mycelium.Buffer, error) {
	for _, s := range slots[min(n, len(slots)):] {
		if s != nil {
			return nil, mycelium.Report(fmt.Errorf("shrink below occupied slot: %w", mycelium.ErrInvalidValue))
		}
	}

	resized := make([]*mycelium.Buffer, n)
	copy(resized, slots)

	return resized, nil
}

// Info describes the queue. The reported shape is the queue's own slot
// vector, not the head child's: buffer locations must stay stable while
// children come and go.
func (q *Queue) Info() mycelium.SegmentInfo {
	info := mycelium.SegmentInfo{
		Name:        "queue",
		Description: "Run child segments one after the other.",
		MinInputs:   len(q.ins),
		MaxInputs:   len(q.ins),
		Outputs:     len(q.outs),
		Fields: []mycelium.FieldInfo{
			{
				Field: mycelium.FieldBypass, Type: mycelium.TypeBool, Count: 1,
				Flags:       mycelium.FlagSegment | mycelium.FlagGet | mycelium.FlagSet,
				Description: "Bypass the segment's processing.",
			},
			{
				Field: mycelium.FieldCurrentSegment, Type: mycelium.TypeSegment, Count: 1,
				Flags:       mycelium.FlagSegment | mycelium.FlagGet,
				Description: "The currently playing child, if any.",
			},
			{
				Field: mycelium.FieldInCount, Type: mycelium.TypeInt, Count: 1,
				Flags:       mycelium.FlagSegment | mycelium.FlagGet | mycelium.FlagSet,
				Description: "The number of available input slots.",
			},
			{
				Field: mycelium.FieldOutCount, Type: mycelium.TypeInt, Count: 1,
				Flags:       mycelium.FlagSegment | mycelium.FlagGet | mycelium.FlagSet,
				Description: "The number of available output slots.",
			},
		},
	}

	return info
}
