package pipeline

import (
	"github.com/RyanBlaney/sonido-sines/logging"
	"github.com/RyanBlaney/sonido-sines/sinusoidal"
	"github.com/RyanBlaney/sonido-sines/sinusoidal/detection"
	"github.com/RyanBlaney/sonido-sines/sinusoidal/synthesis"
	"github.com/RyanBlaney/sonido-sines/sinusoidal/tracking"
)

// PeakDetector turns audio into frames populated with unlinked peaks
type PeakDetector interface {
	FindPeaks(audio []float64) (sinusoidal.Frames, error)
	FindPeaksInFrame(frame *sinusoidal.Frame) ([]*sinusoidal.Peak, error)
	Clear()
}

// PartialTracker links the peaks of consecutive frames into partials
type PartialTracker interface {
	UpdatePartials(frame *sinusoidal.Frame) ([]*sinusoidal.Peak, error)
	FindPartials(frames sinusoidal.Frames) (sinusoidal.Frames, error)
	Reset()
}

// Synthesizer renders frames with assigned partials back to audio
type Synthesizer interface {
	Synth(frames sinusoidal.Frames) (sinusoidal.Frames, error)
	SynthFrame(frame *sinusoidal.Frame) ([]float64, error)
	Reset()
}

// Backend bundles the three stages. Reset clears per-run tracking and
// synthesis state; Configure pushes a configuration to every stage.
type Backend interface {
	PeakDetector
	PartialTracker
	Synthesizer
	Configure(config Config) error
}

// Verify at compile time that *Reference implements Backend.
var _ Backend = (*Reference)(nil)

// Reference is the self-contained backend: FFT peak detection, the
// reference partial tracker and an additive oscillator bank.
type Reference struct {
	detector *detection.Detector
	tracker  *tracking.Tracker
	synth    *synthesis.Synthesizer
}

// NewReference creates the reference backend
func NewReference(config Config, logger logging.Logger) (*Reference, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	detector, err := detection.NewDetector(config.Detection(), detection.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	tracker, err := tracking.NewTracker(config.Tracking(), tracking.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	synth, err := synthesis.NewSynthesizer(config.Synthesis(), synthesis.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return &Reference{
		detector: detector,
		tracker:  tracker,
		synth:    synth,
	}, nil
}

// Configure applies config to all three stages
func (r *Reference) Configure(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	if err := r.detector.SetConfig(config.Detection()); err != nil {
		return err
	}
	if err := r.tracker.SetConfig(config.Tracking()); err != nil {
		return err
	}
	return r.synth.SetConfig(config.Synthesis())
}

func (r *Reference) FindPeaks(audio []float64) (sinusoidal.Frames, error) {
	return r.detector.FindPeaks(audio)
}

func (r *Reference) FindPeaksInFrame(frame *sinusoidal.Frame) ([]*sinusoidal.Peak, error) {
	return r.detector.FindPeaksInFrame(frame)
}

func (r *Reference) Clear() {
	r.detector.Clear()
}

func (r *Reference) UpdatePartials(frame *sinusoidal.Frame) ([]*sinusoidal.Peak, error) {
	return r.tracker.UpdatePartials(frame)
}

func (r *Reference) FindPartials(frames sinusoidal.Frames) (sinusoidal.Frames, error) {
	return r.tracker.FindPartials(frames)
}

func (r *Reference) Synth(frames sinusoidal.Frames) (sinusoidal.Frames, error) {
	return r.synth.Synth(frames)
}

func (r *Reference) SynthFrame(frame *sinusoidal.Frame) ([]float64, error) {
	return r.synth.SynthFrame(frame)
}

// Reset clears the tracker's live partials and the synthesizer's oscillators
func (r *Reference) Reset() {
	r.tracker.Reset()
	r.synth.Reset()
}

// Detector returns the peak detection stage
func (r *Reference) Detector() *detection.Detector {
	return r.detector
}

// Tracker returns the partial tracking stage
func (r *Reference) Tracker() *tracking.Tracker {
	return r.tracker
}

// Synthesizer returns the synthesis stage
func (r *Reference) Synthesizer() *synthesis.Synthesizer {
	return r.synth
}
