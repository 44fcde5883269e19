package tracking

import (
	"fmt"
	"math"
	"sort"

	"github.com/RyanBlaney/sonido-sines/algorithms/common"
	"github.com/RyanBlaney/sonido-sines/logging"
	"github.com/RyanBlaney/sonido-sines/sinusoidal"
)

// SlotState is the lifecycle state of one partial slot
type SlotState int

const (
	// SlotFree holds no partial and is available for a birth
	SlotFree SlotState = iota

	// SlotActive holds a partial matched in the most recent frame
	SlotActive

	// SlotGapped holds a partial that missed one or more recent frames but
	// has not yet exceeded the gap tolerance
	SlotGapped
)

func (s SlotState) String() string {
	switch s {
	case SlotFree:
		return "free"
	case SlotActive:
		return "active"
	case SlotGapped:
		return "gapped"
	default:
		return "unknown"
	}
}

// SlotStatus is a snapshot of one partial slot
type SlotStatus struct {
	Slot      int       `json:"slot"`
	State     SlotState `json:"state"`
	PartialID int       `json:"partial_id"`
	Age       int       `json:"age"` // Consecutive frames since the last match
	Frequency float64   `json:"frequency"`
	Amplitude float64   `json:"amplitude"`
}

type slot struct {
	state     SlotState
	partialID int
	tail      *sinusoidal.Peak // Last peak of the chain, detected or bridge
	age       int
}

func freeSlot() slot {
	return slot{state: SlotFree, partialID: sinusoidal.NoPartial}
}

// Tracker links the peaks of consecutive frames into partials.
//
// Frames are processed strictly in order and each decision depends only on
// the previous frame's resolved state, so the tracker can be fed one frame at
// a time from a real-time source. A Tracker is not safe for concurrent use.
//
// References:
// - McAulay, R.J., Quatieri, T.F. (1986). "Speech analysis/synthesis based on a sinusoidal representation"
// - Serra, X., Smith, J. (1990). "Spectral modeling synthesis: A sound analysis/synthesis system"
type Tracker struct {
	config Config
	logger logging.Logger

	slots         []slot
	nextPartialID int
	lastFrame     int
	started       bool
}

// Option configures a Tracker
type Option func(*Tracker)

// WithLogger sets the tracker's logger
func WithLogger(logger logging.Logger) Option {
	return func(t *Tracker) {
		t.logger = logging.Component(logger, "partial_tracker")
	}
}

// NewTracker creates a tracker. Invalid configurations are rejected here
// rather than during matching.
func NewTracker(config Config, opts ...Option) (*Tracker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	t := &Tracker{
		config: config,
		logger: logging.Component(nil, "partial_tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.Reset()
	return t, nil
}

// Reset releases every live partial so the tracker can be reused for an
// unrelated signal. Partial ids restart from zero.
func (t *Tracker) Reset() {
	t.slots = make([]slot, t.config.MaxPartials)
	for k := range t.slots {
		t.slots[k] = freeSlot()
	}
	t.nextPartialID = 0
	t.lastFrame = 0
	t.started = false
}

// Config returns the tracker configuration
func (t *Tracker) Config() Config {
	return t.config
}

// SetConfig replaces the configuration. Changing MaxPartials keeps the
// partials in the first slots and drops the rest.
func (t *Tracker) SetConfig(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	if config.MaxPartials != len(t.slots) {
		slots := make([]slot, config.MaxPartials)
		n := copy(slots, t.slots)
		for k := n; k < len(slots); k++ {
			slots[k] = freeSlot()
		}
		t.slots = slots
	}
	t.config = config
	return nil
}

// SetSampleRate sets the sample rate
func (t *Tracker) SetSampleRate(sampleRate int) error {
	c := t.config
	c.SampleRate = sampleRate
	return t.SetConfig(c)
}

// SetHopSize sets the hop size used for bridge phase advance
func (t *Tracker) SetHopSize(hopSize int) error {
	c := t.config
	c.HopSize = hopSize
	return t.SetConfig(c)
}

// SetMaxPartials sets the number of partial slots
func (t *Tracker) SetMaxPartials(n int) error {
	c := t.config
	c.MaxPartials = n
	return t.SetConfig(c)
}

// SetMinPartialLength sets the minimum partial length kept by FindPartials
func (t *Tracker) SetMinPartialLength(n int) error {
	c := t.config
	c.MinPartialLength = n
	return t.SetConfig(c)
}

// SetMaxGap sets the gap tolerance in frames
func (t *Tracker) SetMaxGap(n int) error {
	c := t.config
	c.MaxGap = n
	return t.SetConfig(c)
}

// SetMaxFreqDeviation sets the matching tolerance in Hz
func (t *Tracker) SetMaxFreqDeviation(hz float64) error {
	c := t.config
	c.MaxFreqDeviation = hz
	return t.SetConfig(c)
}

// SetMinPeakSeparation sets the deduplication distance in Hz
func (t *Tracker) SetMinPeakSeparation(hz float64) error {
	c := t.config
	c.MinPeakSeparation = hz
	return t.SetConfig(c)
}

// Slots returns the state of every partial slot
func (t *Tracker) Slots() []SlotStatus {
	status := make([]SlotStatus, len(t.slots))
	for k, s := range t.slots {
		status[k] = SlotStatus{
			Slot:      k,
			State:     s.state,
			PartialID: s.partialID,
			Age:       s.age,
		}
		if s.tail != nil {
			status[k].Frequency = s.tail.Frequency
			status[k].Amplitude = s.tail.Amplitude
		}
	}
	return status
}

// LivePartials returns the number of active or gapped slots
func (t *Tracker) LivePartials() int {
	n := 0
	for _, s := range t.slots {
		if s.state != SlotFree {
			n++
		}
	}
	return n
}

// FindPartials runs UpdatePartials over every frame in order and then
// discards partials shorter than MinPartialLength. An empty sequence yields
// an empty sequence.
func (t *Tracker) FindPartials(frames sinusoidal.Frames) (sinusoidal.Frames, error) {
	if len(frames) == 0 {
		return sinusoidal.Frames{}, nil
	}

	for _, frame := range frames {
		if _, err := t.UpdatePartials(frame); err != nil {
			return frames, err
		}
	}

	if t.config.MinPartialLength > 0 {
		discarded := DiscardShortPartials(frames, t.config.MinPartialLength)
		t.logger.Debug("Discarded short partials", logging.Fields{
			"discarded":          discarded,
			"min_partial_length": t.config.MinPartialLength,
		})
	}

	return frames, nil
}

// trackedPeak returns the first peak of frame carrying links or bookkeeping
// from an earlier tracking pass
func trackedPeak(frame *sinusoidal.Frame) *sinusoidal.Peak {
	for _, p := range frame.Peaks() {
		if p.Bridge || p.Discarded || p.PartialID != sinusoidal.NoPartial || p.Next.IsSet() || p.Previous.IsSet() {
			return p
		}
	}
	return nil
}

// UpdatePartials links the peaks of the next frame to the live partials and
// fills the frame's partial slots. It returns the detected peaks that
// continued an existing partial.
//
// Per frame:
//  1. Every live partial is offered the unclaimed peaks within
//     MaxFreqDeviation of its last frequency. All (partial, peak) pairs are
//     ranked by frequency distance, then amplitude distance, then peak index,
//     then slot, and granted greedily.
//  2. Matched partials are linked and their gap age reset.
//  3. Unmatched partials age by one frame. Past MaxGap they die and free
//     their slot; otherwise a bridge peak holding the last known state is
//     linked in so the chain stays contiguous.
//  4. Remaining peaks are born into free slots, loudest first. Peaks that
//     find no free slot stay unlinked.
func (t *Tracker) UpdatePartials(frame *sinusoidal.Frame) ([]*sinusoidal.Peak, error) {
	if frame == nil {
		return nil, fmt.Errorf("%w: nil frame", sinusoidal.ErrInvalidArgument)
	}
	if p := trackedPeak(frame); p != nil {
		return nil, fmt.Errorf("%w: frame %d was already tracked (%s belongs to partial %d); detect peaks again before tracking",
			sinusoidal.ErrInvalidArgument, frame.Number(), p.Ref(), p.PartialID)
	}

	number := frame.Number()
	if t.started && t.LivePartials() > 0 && number != t.lastFrame+1 {
		return nil, fmt.Errorf("%w: expected frame %d, got %d (reset the tracker between signals)",
			sinusoidal.ErrOutOfOrder, t.lastFrame+1, number)
	}

	if frame.MaxPartials() != t.config.MaxPartials {
		if err := frame.SetMaxPartials(t.config.MaxPartials); err != nil {
			return nil, err
		}
	}
	frame.ClearPartials()

	eligible := t.eligiblePeaks(frame)
	slotMatched, peakUsed := t.match(frame, eligible)

	continued := make([]*sinusoidal.Peak, 0, len(slotMatched))
	for k := range t.slots {
		s := &t.slots[k]
		if s.state == SlotFree {
			continue
		}

		if i, ok := slotMatched[k]; ok {
			p := frame.Peak(i)
			if err := sinusoidal.Link(s.tail, p); err != nil {
				return nil, sinusoidal.NewInvariantError(number, s.partialID, err.Error())
			}
			s.tail = p
			s.age = 0
			s.state = SlotActive
			if err := frame.SetPartial(k, p); err != nil {
				return nil, err
			}
			continued = append(continued, p)
			continue
		}

		s.age++
		if s.age > t.config.MaxGap {
			t.logger.Debug("Partial died", logging.Fields{
				"frame":      number,
				"slot":       k,
				"partial_id": s.partialID,
				"length":     s.tail.PartialPosition + 1,
			})
			*s = freeSlot()
			continue
		}

		bridge := t.bridgePeak(s.tail)
		frame.AddBridgePeak(bridge)
		if err := sinusoidal.Link(s.tail, bridge); err != nil {
			return nil, sinusoidal.NewInvariantError(number, s.partialID, err.Error())
		}
		s.tail = bridge
		s.state = SlotGapped
		if err := frame.SetPartial(k, bridge); err != nil {
			return nil, err
		}
	}

	if err := t.birth(frame, eligible, peakUsed); err != nil {
		return nil, err
	}

	if err := frame.CheckInvariants(); err != nil {
		return nil, err
	}

	t.lastFrame = number
	t.started = true
	return continued, nil
}

// eligiblePeaks returns the indices of peaks that may join a partial: free
// backwards, detected rather than bridged, and not shadowed by a stronger
// peak closer than MinPeakSeparation.
func (t *Tracker) eligiblePeaks(frame *sinusoidal.Frame) []int {
	peaks := frame.Peaks()
	eligible := make([]int, 0, len(peaks))

	for i, p := range peaks {
		if free, _ := p.IsFree(sinusoidal.Backwards); !free || p.Bridge {
			continue
		}
		if t.shadowed(peaks, i) {
			continue
		}
		eligible = append(eligible, i)
	}
	return eligible
}

func (t *Tracker) shadowed(peaks []*sinusoidal.Peak, i int) bool {
	if t.config.MinPeakSeparation <= 0 {
		return false
	}

	p := peaks[i]
	for j, q := range peaks {
		if j == i || q.Bridge || q.Amplitude <= 0 {
			continue
		}
		if math.Abs(q.Frequency-p.Frequency) >= t.config.MinPeakSeparation {
			continue
		}
		if q.Amplitude > p.Amplitude || (q.Amplitude == p.Amplitude && j < i) {
			return true
		}
	}
	return false
}

type candidate struct {
	slot     int
	peak     int
	freqDist float64
	ampDist  float64
}

// match pairs live slots with eligible peaks. Continuing partials are
// resolved before any birth, so existing partials always win over new ones.
func (t *Tracker) match(frame *sinusoidal.Frame, eligible []int) (map[int]int, map[int]bool) {
	var candidates []candidate
	for k, s := range t.slots {
		if s.state == SlotFree {
			continue
		}
		for _, i := range eligible {
			p := frame.Peak(i)
			d := math.Abs(p.Frequency - s.tail.Frequency)
			if d > t.config.MaxFreqDeviation {
				continue
			}
			candidates = append(candidates, candidate{
				slot:     k,
				peak:     i,
				freqDist: d,
				ampDist:  math.Abs(p.Amplitude - s.tail.Amplitude),
			})
		}
	}

	sort.Slice(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.freqDist != cb.freqDist {
			return ca.freqDist < cb.freqDist
		}
		if ca.ampDist != cb.ampDist {
			return ca.ampDist < cb.ampDist
		}
		if ca.peak != cb.peak {
			return ca.peak < cb.peak
		}
		return ca.slot < cb.slot
	})

	slotMatched := make(map[int]int)
	peakUsed := make(map[int]bool)
	for _, c := range candidates {
		if _, taken := slotMatched[c.slot]; taken || peakUsed[c.peak] {
			continue
		}
		slotMatched[c.slot] = c.peak
		peakUsed[c.peak] = true
	}
	return slotMatched, peakUsed
}

// bridgePeak carries a partial's last known state into a frame where it was
// not detected, advancing the phase by one hop.
func (t *Tracker) bridgePeak(last *sinusoidal.Peak) *sinusoidal.Peak {
	advance := 2 * math.Pi * last.Frequency * float64(t.config.HopSize) / float64(t.config.SampleRate)
	return sinusoidal.NewPeak(last.Amplitude, last.Frequency, common.WrapPhase(last.Phase+advance))
}

func (t *Tracker) birth(frame *sinusoidal.Frame, eligible []int, used map[int]bool) error {
	unmatched := make([]int, 0, len(eligible))
	for _, i := range eligible {
		if !used[i] {
			unmatched = append(unmatched, i)
		}
	}
	if len(unmatched) == 0 {
		return nil
	}

	sort.SliceStable(unmatched, func(a, b int) bool {
		return frame.Peak(unmatched[a]).Amplitude > frame.Peak(unmatched[b]).Amplitude
	})

	next := 0
	for k := range t.slots {
		if next >= len(unmatched) {
			break
		}
		if t.slots[k].state != SlotFree {
			continue
		}

		p := frame.Peak(unmatched[next])
		next++

		p.PartialID = t.nextPartialID
		p.PartialPosition = 0
		t.nextPartialID++

		t.slots[k] = slot{
			state:     SlotActive,
			partialID: p.PartialID,
			tail:      p,
		}
		if err := frame.SetPartial(k, p); err != nil {
			return err
		}

		t.logger.Debug("Partial born", logging.Fields{
			"frame":      frame.Number(),
			"slot":       k,
			"partial_id": p.PartialID,
			"frequency":  p.Frequency,
		})
	}

	if dropped := len(unmatched) - next; dropped > 0 {
		t.logger.Debug("No free slot for peaks", logging.Fields{
			"frame":   frame.Number(),
			"dropped": dropped,
		})
	}
	return nil
}

// DiscardShortPartials marks every partial with fewer than minLength detected
// peaks as discarded. Peaks stay linked. It returns the number of partials
// discarded.
func DiscardShortPartials(frames sinusoidal.Frames, minLength int) int {
	discarded := 0
	for _, frame := range frames {
		for _, head := range frame.Peaks() {
			if head.PartialID == sinusoidal.NoPartial || head.Previous.IsSet() || head.Bridge {
				continue
			}

			chain := []*sinusoidal.Peak{head}
			detected := 1
			for p := frames.Resolve(head.Next); p != nil; p = frames.Resolve(p.Next) {
				chain = append(chain, p)
				if !p.Bridge {
					detected++
				}
			}

			if detected >= minLength {
				continue
			}
			for _, p := range chain {
				p.Discarded = true
			}
			discarded++
		}
	}
	return discarded
}
