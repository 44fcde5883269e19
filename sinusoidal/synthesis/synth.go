package synthesis

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-sines/algorithms/common"
	"github.com/RyanBlaney/sonido-sines/logging"
	"github.com/RyanBlaney/sonido-sines/sinusoidal"
)

// Config holds synthesis parameters
type Config struct {
	SampleRate  int `json:"sample_rate"`
	HopSize     int `json:"hop_size"` // Samples produced per frame
	MaxPartials int `json:"max_partials"`
}

// DefaultConfig returns the default synthesis parameters
func DefaultConfig() Config {
	return Config{
		SampleRate:  44100,
		HopSize:     512,
		MaxPartials: sinusoidal.DefaultMaxPartials,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", sinusoidal.ErrInvalidConfig, c.SampleRate)
	}
	if c.HopSize <= 0 {
		return fmt.Errorf("%w: hop size must be positive, got %d", sinusoidal.ErrInvalidConfig, c.HopSize)
	}
	if c.MaxPartials <= 0 {
		return fmt.Errorf("%w: max partials must be positive, got %d", sinusoidal.ErrInvalidConfig, c.MaxPartials)
	}
	return nil
}

// oscillator is the running state of one partial slot
type oscillator struct {
	partialID int
	amplitude float64
	frequency float64
	phase     float64
}

func (o oscillator) silent() bool {
	return o.partialID == sinusoidal.NoPartial || o.amplitude <= 0
}

// Synthesizer renders frames by summing one sinusoidal oscillator per
// partial slot. Between consecutive frames of the same partial, amplitude and
// frequency move linearly across the hop and the phase integrates the
// frequency. Births fade in from silence and deaths fade out to silence.
type Synthesizer struct {
	config      Config
	logger      logging.Logger
	oscillators []oscillator
}

// Option configures a Synthesizer
type Option func(*Synthesizer)

// WithLogger sets the synthesizer's logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Synthesizer) {
		s.logger = logging.Component(logger, "synthesizer")
	}
}

// NewSynthesizer creates a synthesizer
func NewSynthesizer(config Config, opts ...Option) (*Synthesizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Synthesizer{
		config: config,
		logger: logging.Component(nil, "synthesizer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s, nil
}

// Reset silences every oscillator
func (s *Synthesizer) Reset() {
	s.oscillators = make([]oscillator, s.config.MaxPartials)
	for k := range s.oscillators {
		s.oscillators[k] = oscillator{partialID: sinusoidal.NoPartial}
	}
}

// Config returns the synthesis configuration
func (s *Synthesizer) Config() Config {
	return s.config
}

// SetConfig replaces the configuration and resets the oscillators
func (s *Synthesizer) SetConfig(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	s.config = config
	s.Reset()
	return nil
}

// SetHopSize sets the number of samples produced per frame
func (s *Synthesizer) SetHopSize(n int) error {
	c := s.config
	c.HopSize = n
	return s.SetConfig(c)
}

// SetMaxPartials sets the number of oscillators
func (s *Synthesizer) SetMaxPartials(n int) error {
	c := s.config
	c.MaxPartials = n
	return s.SetConfig(c)
}

// Synth renders every frame in order, storing HopSize samples in each
// frame's synth buffer.
func (s *Synthesizer) Synth(frames sinusoidal.Frames) (sinusoidal.Frames, error) {
	for _, frame := range frames {
		if _, err := s.SynthFrame(frame); err != nil {
			return frames, err
		}
	}

	s.logger.Debug("Synthesis complete", logging.Fields{
		"frames":   len(frames),
		"hop_size": s.config.HopSize,
	})
	return frames, nil
}

// SynthFrame renders one frame from its partial slots and the state left by
// the previous frame.
func (s *Synthesizer) SynthFrame(frame *sinusoidal.Frame) ([]float64, error) {
	if frame == nil {
		return nil, fmt.Errorf("%w: nil frame", sinusoidal.ErrInvalidArgument)
	}

	partials := frame.Partials()
	if len(partials) != len(s.oscillators) {
		return nil, fmt.Errorf("%w: frame %d has %d partial slots, synthesizer has %d",
			sinusoidal.ErrInvalidConfig, frame.Number(), len(partials), len(s.oscillators))
	}

	hop := s.config.HopSize
	out := make([]float64, hop)

	for k, p := range partials {
		target := s.target(p)
		current := s.oscillators[k]

		switch {
		case current.silent() && target.silent():
			// nothing to render

		case current.partialID == target.partialID:
			s.render(out, &current, current.amplitude, target.amplitude, current.frequency, target.frequency)

		default:
			// Slot changed hands: fade the old partial out and the new one in
			if !current.silent() {
				s.render(out, &current, current.amplitude, 0, current.frequency, current.frequency)
			}
			if !target.silent() {
				current = oscillator{
					partialID: target.partialID,
					phase:     target.phase,
				}
				s.render(out, &current, 0, target.amplitude, target.frequency, target.frequency)
			}
		}

		target.phase = current.phase
		s.oscillators[k] = target
	}

	frame.SetSynth(out)
	return out, nil
}

// target is the oscillator state requested by a partial slot. Silent and
// discarded peaks request silence.
func (s *Synthesizer) target(p *sinusoidal.Peak) oscillator {
	if p.IsSilent() || p.Discarded || p.PartialID == sinusoidal.NoPartial {
		return oscillator{partialID: sinusoidal.NoPartial}
	}
	return oscillator{
		partialID: p.PartialID,
		amplitude: p.Amplitude,
		frequency: p.Frequency,
		phase:     p.Phase,
	}
}

// render adds one hop of a sinusoid ramping from (a0, f0) to (a1, f1) and
// advances osc.phase.
func (s *Synthesizer) render(out []float64, osc *oscillator, a0, a1, f0, f1 float64) {
	hop := len(out)
	step := 2 * math.Pi / float64(s.config.SampleRate)
	phase := osc.phase

	for n := range hop {
		t := float64(n) / float64(hop)
		out[n] += common.Lerp(a0, a1, t) * math.Cos(phase)
		phase += step * common.Lerp(f0, f1, t)
	}
	osc.phase = common.WrapPhase(phase)
}

// Render concatenates the synth buffers of frames into one signal
func Render(frames sinusoidal.Frames) []float64 {
	total := 0
	for _, f := range frames {
		total += len(f.Synth())
	}

	out := make([]float64, 0, total)
	for _, f := range frames {
		out = append(out, f.Synth()...)
	}
	return out
}
