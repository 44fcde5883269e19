package sinusoidal

import (
	"fmt"
	"sync/atomic"
)

const (
	// DefaultFrameSize is the window length of a frame created without a size
	DefaultFrameSize = 512

	// DefaultMaxPeaks is the peak capacity of a new frame
	DefaultMaxPeaks = 100

	// DefaultMaxPartials is the partial slot count of a new frame
	DefaultMaxPartials = 100
)

// generations hands out peak generations, unique across all frames
var generations atomic.Uint64

func nextGeneration() uint64 {
	return generations.Add(1)
}

// Frame is one analysis window: its audio, the peaks detected in it, one
// slot per partial, and the resynthesized audio for the frame.
//
// A frame exclusively owns its peaks. Frames never reference each other
// directly; adjacent frames are related only through peak links.
type Frame struct {
	size        int
	number      int
	maxPeaks    int
	maxPartials int
	generation  uint64

	audio []float64
	synth []float64

	peaks    []*Peak
	partials []*Peak
}

// NewFrame creates a frame with the given window length
func NewFrame(size int) *Frame {
	if size <= 0 {
		size = DefaultFrameSize
	}

	f := &Frame{
		size:        size,
		maxPeaks:    DefaultMaxPeaks,
		maxPartials: DefaultMaxPartials,
		generation:  nextGeneration(),
		peaks:       make([]*Peak, 0, DefaultMaxPeaks),
	}
	f.partials = silentSlots(nil, f.maxPartials)
	return f
}

func silentSlots(existing []*Peak, n int) []*Peak {
	slots := make([]*Peak, n)
	copied := copy(slots, existing)
	for i := copied; i < n; i++ {
		slots[i] = NewSilentPeak()
	}
	return slots
}

// Size returns the window length in samples
func (f *Frame) Size() int {
	return f.size
}

// SetSize changes the window length
func (f *Frame) SetSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: frame size must be positive, got %d", ErrInvalidConfig, size)
	}
	f.size = size
	return nil
}

// Number returns the position of the frame in its sequence
func (f *Frame) Number() int {
	return f.number
}

// SetNumber sets the frame number and restamps owned peaks
func (f *Frame) SetNumber(number int) {
	f.number = number
	for _, p := range f.peaks {
		p.FrameNumber = number
	}
}

// MaxPeaks returns the peak capacity
func (f *Frame) MaxPeaks() int {
	return f.maxPeaks
}

// SetMaxPeaks changes the peak capacity. Peaks beyond the new capacity are
// dropped, and any partial slot holding a dropped peak becomes silent.
// References to dropped peaks no longer resolve.
func (f *Frame) SetMaxPeaks(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: max peaks must be positive, got %d", ErrInvalidConfig, n)
	}

	f.maxPeaks = n
	if len(f.peaks) > n {
		for _, p := range f.peaks[n:] {
			f.silenceSlotOf(p)
			p.index = -1
		}
		f.peaks = f.peaks[:n]
		f.generation = nextGeneration()
	}
	return nil
}

func (f *Frame) silenceSlotOf(p *Peak) {
	for k, slot := range f.partials {
		if slot == p {
			f.partials[k] = NewSilentPeak()
		}
	}
}

// MaxPartials returns the number of partial slots
func (f *Frame) MaxPartials() int {
	return f.maxPartials
}

// SetMaxPartials resizes the partial slots, keeping existing slots up to the
// smaller of the old and new size and filling new slots with silence.
func (f *Frame) SetMaxPartials(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: max partials must be positive, got %d", ErrInvalidConfig, n)
	}
	f.maxPartials = n
	f.partials = silentSlots(f.partials, n)
	return nil
}

// Audio returns the raw samples of the analysis window
func (f *Frame) Audio() []float64 {
	return f.audio
}

// SetAudio copies samples into the frame. Windows shorter than the frame
// size are zero-padded.
func (f *Frame) SetAudio(samples []float64) {
	f.audio = make([]float64, max(f.size, len(samples)))
	copy(f.audio, samples)
}

// Synth returns the resynthesized samples for the frame
func (f *Frame) Synth() []float64 {
	return f.synth
}

// SetSynth stores the resynthesized samples for the frame
func (f *Frame) SetSynth(samples []float64) {
	f.synth = samples
}

// AddPeak appends a peak. The frame takes ownership of it.
func (f *Frame) AddPeak(p *Peak) error {
	if p == nil {
		return fmt.Errorf("%w: nil peak", ErrInvalidArgument)
	}
	if len(f.peaks) >= f.maxPeaks {
		return fmt.Errorf("%w: frame %d is full (%d peaks)", ErrInvalidArgument, f.number, f.maxPeaks)
	}
	f.adopt(p)
	return nil
}

// AddBridgePeak appends a gap-bridging placeholder. Bridges are not bound by
// the peak capacity since they are not detections.
func (f *Frame) AddBridgePeak(p *Peak) {
	p.Bridge = true
	f.adopt(p)
}

func (f *Frame) adopt(p *Peak) {
	p.index = len(f.peaks)
	p.gen = f.generation
	p.FrameNumber = f.number
	f.peaks = append(f.peaks, p)
}

// Peaks returns the peaks in detection order
func (f *Frame) Peaks() []*Peak {
	return f.peaks
}

// Peak returns the peak at index i, or nil
func (f *Frame) Peak(i int) *Peak {
	if i < 0 || i >= len(f.peaks) {
		return nil
	}
	return f.peaks[i]
}

// NumPeaks returns the number of peaks held by the frame
func (f *Frame) NumPeaks() int {
	return len(f.peaks)
}

// Partials returns the partial slots. The slice always has MaxPartials entries.
func (f *Frame) Partials() []*Peak {
	return f.partials
}

// Partial returns the peak in slot k, or nil if k is out of range
func (f *Frame) Partial(k int) *Peak {
	if k < 0 || k >= len(f.partials) {
		return nil
	}
	return f.partials[k]
}

// SetPartial places p in slot k. A nil peak silences the slot.
func (f *Frame) SetPartial(k int, p *Peak) error {
	if k < 0 || k >= len(f.partials) {
		return fmt.Errorf("%w: partial slot %d out of range [0, %d)", ErrInvalidArgument, k, len(f.partials))
	}
	if p == nil {
		p = NewSilentPeak()
	}
	f.partials[k] = p
	return nil
}

// ClearPartials silences every partial slot
func (f *Frame) ClearPartials() {
	for k := range f.partials {
		f.partials[k] = NewSilentPeak()
	}
}

// NumPartials returns the number of slots holding a non-silent peak
func (f *Frame) NumPartials() int {
	n := 0
	for _, p := range f.partials {
		if !p.IsSilent() {
			n++
		}
	}
	return n
}

// Release drops every peak owned by the frame. References into the frame
// resolve to nil afterwards.
func (f *Frame) Release() {
	for _, p := range f.peaks {
		p.index = -1
	}
	f.peaks = nil
	f.generation = nextGeneration()
	f.partials = silentSlots(nil, f.maxPartials)
	f.audio = nil
	f.synth = nil
}

// CheckInvariants verifies that the slot array has MaxPartials entries and
// that every non-silent slot holds a distinct peak owned by this frame.
func (f *Frame) CheckInvariants() error {
	if len(f.partials) != f.maxPartials {
		return NewInvariantError(f.number, NoPartial,
			fmt.Sprintf("partial slots length %d, expected %d", len(f.partials), f.maxPartials))
	}

	seen := make(map[*Peak]int, len(f.partials))
	for k, p := range f.partials {
		if p.IsSilent() {
			continue
		}
		if prev, dup := seen[p]; dup {
			return NewInvariantError(f.number, p.PartialID,
				fmt.Sprintf("peak %d occupies slots %d and %d", p.index, prev, k))
		}
		seen[p] = k
		if p.index < 0 || p.index >= len(f.peaks) || f.peaks[p.index] != p {
			return NewInvariantError(f.number, p.PartialID,
				fmt.Sprintf("slot %d holds a peak not owned by the frame", k))
		}
	}
	return nil
}

// Frames is the ordered frame sequence of one analysis run
type Frames []*Frame

// Frame returns the frame with the given frame number, or nil
func (fs Frames) Frame(number int) *Frame {
	if len(fs) == 0 {
		return nil
	}
	i := number - fs[0].number
	if i < 0 || i >= len(fs) || fs[i].number != number {
		return nil
	}
	return fs[i]
}

// Resolve follows a peak reference. Unset references, references into
// frames that are gone and references to released or dropped peaks resolve
// to nil.
func (fs Frames) Resolve(ref PeakRef) *Peak {
	if !ref.IsSet() {
		return nil
	}
	f := fs.Frame(ref.Frame)
	if f == nil {
		return nil
	}
	p := f.Peak(ref.Index)
	if p == nil || p.gen != ref.Gen {
		return nil
	}
	return p
}

// Release releases every frame in the sequence
func (fs Frames) Release() {
	for _, f := range fs {
		f.Release()
	}
}
