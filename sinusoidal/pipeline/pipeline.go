package pipeline

import (
	"fmt"

	"github.com/RyanBlaney/sonido-sines/logging"
	"github.com/RyanBlaney/sonido-sines/sinusoidal"
	"github.com/RyanBlaney/sonido-sines/sinusoidal/synthesis"
	"github.com/RyanBlaney/sonido-sines/sinusoidal/tracking"
)

// Pipeline drives detection, tracking and synthesis over a signal and owns
// the frame sequence of the current run. Starting a run releases the frames
// of the previous one.
//
// The pipeline pushes every configuration change to all stages of its
// backend. Callers that drive stages directly must keep hop size and
// frame size in agreement themselves.
type Pipeline struct {
	config  Config
	backend Backend
	logger  logging.Logger
	frames  sinusoidal.Frames
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithBackend replaces the reference backend
func WithBackend(backend Backend) Option {
	return func(p *Pipeline) {
		p.backend = backend
	}
}

// WithLogger sets the pipeline's logger
func WithLogger(logger logging.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a pipeline. Without WithBackend it builds the reference backend.
func New(config Config, opts ...Option) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{config: config}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.GetGlobalLogger()
	}

	if p.backend == nil {
		backend, err := NewReference(config, p.logger)
		if err != nil {
			return nil, err
		}
		p.backend = backend
	} else if err := p.backend.Configure(config); err != nil {
		return nil, err
	}

	p.logger = logging.Component(p.logger, "pipeline")
	return p, nil
}

// Config returns the current configuration
func (p *Pipeline) Config() Config {
	return p.config
}

// Backend returns the stages the pipeline drives
func (p *Pipeline) Backend() Backend {
	return p.backend
}

// Configure validates config and applies it to every stage
func (p *Pipeline) Configure(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	if err := p.backend.Configure(config); err != nil {
		return err
	}
	p.config = config
	return nil
}

// SetSampleRate sets the sample rate on every stage
func (p *Pipeline) SetSampleRate(sampleRate int) error {
	c := p.config
	c.SampleRate = sampleRate
	return p.Configure(c)
}

// SetFrameSize sets the analysis frame size
func (p *Pipeline) SetFrameSize(frameSize int) error {
	c := p.config
	c.FrameSize = frameSize
	return p.Configure(c)
}

// SetHopSize sets the hop size on detection, tracking and synthesis
func (p *Pipeline) SetHopSize(hopSize int) error {
	c := p.config
	c.HopSize = hopSize
	return p.Configure(c)
}

// SetMaxPeaks sets the peak capacity per frame
func (p *Pipeline) SetMaxPeaks(maxPeaks int) error {
	c := p.config
	c.MaxPeaks = maxPeaks
	return p.Configure(c)
}

// SetMaxPartials sets the number of partial slots on tracking and synthesis
func (p *Pipeline) SetMaxPartials(maxPartials int) error {
	c := p.config
	c.MaxPartials = maxPartials
	return p.Configure(c)
}

// SetStaticFrameSize selects fixed-frame (true) or adaptive (false) framing
func (p *Pipeline) SetStaticFrameSize(static bool) error {
	c := p.config
	c.StaticFrameSize = static
	return p.Configure(c)
}

// Frames returns the frames of the current run
func (p *Pipeline) Frames() sinusoidal.Frames {
	return p.frames
}

// Clear releases the frames of the current run
func (p *Pipeline) Clear() {
	p.frames.Release()
	p.frames = nil
	p.backend.Clear()
}

// Analyze runs detection and tracking over audio
func (p *Pipeline) Analyze(audio []float64) (sinusoidal.Frames, error) {
	p.Clear()
	p.backend.Reset()

	blocker, err := p.config.dcBlocker()
	if err != nil {
		return nil, err
	}
	if blocker != nil {
		audio = blocker.Process(audio)
	}

	frames, err := p.backend.FindPeaks(audio)
	if err != nil {
		return nil, fmt.Errorf("peak detection failed: %w", err)
	}

	frames, err = p.backend.FindPartials(frames)
	if err != nil {
		return nil, fmt.Errorf("partial tracking failed: %w", err)
	}

	p.frames = frames
	return frames, nil
}

// Run analyzes audio and resynthesizes it, filling each frame's synth buffer
func (p *Pipeline) Run(audio []float64) (sinusoidal.Frames, error) {
	frames, err := p.Analyze(audio)
	if err != nil {
		p.logger.Error(err, "Analysis failed", logging.Fields{"samples": len(audio)})
		return nil, err
	}

	frames, err = p.backend.Synth(frames)
	if err != nil {
		p.logger.Error(err, "Synthesis failed", logging.Fields{"frames": len(frames)})
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}

	p.logger.Info("Resynthesis complete", logging.Fields{
		"samples":  len(audio),
		"frames":   len(frames),
		"partials": len(tracking.Summarize(frames)),
	})
	return frames, nil
}

// Render returns the resynthesized signal of the current run
func (p *Pipeline) Render() []float64 {
	return synthesis.Render(p.frames)
}

// Summaries describes the partials of the current run
func (p *Pipeline) Summaries() []tracking.PartialSummary {
	return tracking.Summarize(p.frames)
}
