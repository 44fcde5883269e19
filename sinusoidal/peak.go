package sinusoidal

import "fmt"

// NoPartial is the partial id of a peak that does not belong to any partial
const NoPartial = -1

// Direction selects which link of a peak is inspected
type Direction string

const (
	// Forwards inspects the link to the following frame
	Forwards Direction = "forwards"

	// Backwards inspects the link to the preceding frame
	Backwards Direction = "backwards"
)

// PeakRef is a non-owning reference to a peak held by some frame.
// The zero value references nothing.
//
// Gen is the owning frame's generation when the peak was added. Releasing or
// truncating a frame starts a new generation, so references to dropped
// peaks stop resolving even when a new peak takes the same index.
type PeakRef struct {
	Frame int    `json:"frame"` // Frame number of the owning frame
	Index int    `json:"index"` // Index of the peak within Frame.Peaks()
	Gen   uint64 `json:"gen"`
	Set   bool   `json:"set"`
}

// IsSet reports whether the reference points at a peak
func (r PeakRef) IsSet() bool {
	return r.Set
}

func (r PeakRef) String() string {
	if !r.Set {
		return "<none>"
	}
	return fmt.Sprintf("frame %d peak %d", r.Frame, r.Index)
}

// Peak is a single spectral measurement at one analysis frame.
//
// Next and Previous thread the peak into a partial. They never branch: a peak
// continues at most one peak and is continued by at most one peak. The links
// are plain references and carry no ownership; peaks belong to their frame.
type Peak struct {
	Amplitude float64 `json:"amplitude"` // Linear amplitude, >= 0
	Frequency float64 `json:"frequency"` // Hz
	Phase     float64 `json:"phase"`     // Radians

	Next     PeakRef `json:"next"`
	Previous PeakRef `json:"previous"`

	// Bookkeeping assigned by the partial tracker
	PartialID       int `json:"partial_id"`
	PartialPosition int `json:"partial_position"`
	FrameNumber     int `json:"frame_number"`

	// Bridge marks a placeholder inserted to carry a partial across a gap
	Bridge bool `json:"bridge,omitempty"`

	// Discarded marks peaks of partials shorter than the minimum length.
	// They stay linked but are not synthesized.
	Discarded bool `json:"discarded,omitempty"`

	index int
	gen   uint64
}

// NewPeak creates an unlinked peak
func NewPeak(amplitude, frequency, phase float64) *Peak {
	return &Peak{
		Amplitude: amplitude,
		Frequency: frequency,
		Phase:     phase,
		PartialID: NoPartial,
		index:     -1,
	}
}

// NewSilentPeak creates the sentinel stored in partial slots that carry no energy
func NewSilentPeak() *Peak {
	return NewPeak(0, 0, 0)
}

// IsSilent reports whether the peak represents the absence of a measurement
func (p *Peak) IsSilent() bool {
	return p == nil || p.Amplitude <= 0
}

// IsFree returns true iff the peak has positive amplitude and is unmatched
// in the given direction.
func (p *Peak) IsFree(direction Direction) (bool, error) {
	var link PeakRef
	switch direction {
	case Forwards:
		link = p.Next
	case Backwards:
		link = p.Previous
	default:
		return false, fmt.Errorf("%w: invalid direction %q", ErrInvalidArgument, direction)
	}

	if p.Amplitude <= 0 {
		return false, nil
	}
	return !link.IsSet(), nil
}

// Index returns the position of the peak within its frame, or -1 if the peak
// has not been added to a frame.
func (p *Peak) Index() int {
	return p.index
}

// Ref returns a reference to this peak. Peaks not owned by a frame yield the
// zero reference.
func (p *Peak) Ref() PeakRef {
	if p == nil || p.index < 0 {
		return PeakRef{}
	}
	return PeakRef{Frame: p.FrameNumber, Index: p.index, Gen: p.gen, Set: true}
}

// Unlink clears both links and the partial bookkeeping
func (p *Peak) Unlink() {
	p.Next = PeakRef{}
	p.Previous = PeakRef{}
	p.PartialID = NoPartial
	p.PartialPosition = 0
	p.Discarded = false
}

// Link makes next the continuation of prev. Both peaks must be owned by
// frames, prev must be free forwards and next free backwards.
func Link(prev, next *Peak) error {
	if prev == nil || next == nil {
		return fmt.Errorf("%w: cannot link nil peak", ErrInvalidArgument)
	}
	if prev.index < 0 || next.index < 0 {
		return fmt.Errorf("%w: cannot link peaks that are not owned by a frame", ErrInvalidArgument)
	}

	free, _ := prev.IsFree(Forwards)
	if !free {
		return fmt.Errorf("%w: %s is not free forwards", ErrInvalidArgument, prev.Ref())
	}
	free, _ = next.IsFree(Backwards)
	if !free {
		return fmt.Errorf("%w: %s is not free backwards", ErrInvalidArgument, next.Ref())
	}
	if next.FrameNumber != prev.FrameNumber+1 {
		return fmt.Errorf("%w: cannot link frame %d to frame %d", ErrOutOfOrder, prev.FrameNumber, next.FrameNumber)
	}

	prev.Next = next.Ref()
	next.Previous = prev.Ref()
	next.PartialID = prev.PartialID
	next.PartialPosition = prev.PartialPosition + 1
	return nil
}
