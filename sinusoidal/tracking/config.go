package tracking

import (
	"fmt"

	"github.com/RyanBlaney/sonido-sines/sinusoidal"
)

// Config holds the per-tracker parameters. It applies to every frame the
// tracker sees.
type Config struct {
	SampleRate        int     `json:"sample_rate"`
	HopSize           int     `json:"hop_size"`            // Used to advance the phase of bridge peaks
	MaxPartials       int     `json:"max_partials"`        // Hard cap on simultaneous partials
	MinPartialLength  int     `json:"min_partial_length"`  // Partials with fewer detected peaks are discarded after FindPartials
	MaxGap            int     `json:"max_gap"`             // Consecutive missed frames a partial survives
	MaxFreqDeviation  float64 `json:"max_freq_deviation"`  // Maximum frequency jump between frames (Hz)
	MinPeakSeparation float64 `json:"min_peak_separation"` // Weaker peaks closer than this (Hz) are ignored
}

// DefaultConfig returns the reference tracker parameters
func DefaultConfig() Config {
	return Config{
		SampleRate:        44100,
		HopSize:           512,
		MaxPartials:       sinusoidal.DefaultMaxPartials,
		MinPartialLength:  0,
		MaxGap:            2,
		MaxFreqDeviation:  20.0,
		MinPeakSeparation: 1.0,
	}
}

// Validate rejects configurations the tracker cannot run with
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
	if c.MinPartialLength < 0 {
		return fmt.Errorf("%w: min partial length must not be negative, got %d", sinusoidal.ErrInvalidConfig, c.MinPartialLength)
	}
	if c.MaxGap < 0 {
		return fmt.Errorf("%w: max gap must not be negative, got %d", sinusoidal.ErrInvalidConfig, c.MaxGap)
	}
	if c.MaxFreqDeviation <= 0 {
		return fmt.Errorf("%w: max frequency deviation must be positive, got %g", sinusoidal.ErrInvalidConfig, c.MaxFreqDeviation)
	}
	if c.MinPeakSeparation < 0 {
		return fmt.Errorf("%w: min peak separation must not be negative, got %g", sinusoidal.ErrInvalidConfig, c.MinPeakSeparation)
	}
	return nil
}
