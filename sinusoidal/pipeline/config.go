package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/RyanBlaney/sonido-sines/algorithms/filters"
	"github.com/RyanBlaney/sonido-sines/sinusoidal"
	"github.com/RyanBlaney/sonido-sines/sinusoidal/detection"
	"github.com/RyanBlaney/sonido-sines/sinusoidal/synthesis"
	"github.com/RyanBlaney/sonido-sines/sinusoidal/tracking"
)

// Config is the configuration shared by detection, tracking and synthesis.
// Keeping one struct keeps the stages aligned on sample rate, hop size and
// partial count.
type Config struct {
	SampleRate      int  `json:"sample_rate"`
	FrameSize       int  `json:"frame_size"`
	HopSize         int  `json:"hop_size"`
	StaticFrameSize bool `json:"static_frame_size"`

	MaxPeaks         int `json:"max_peaks"`
	MaxPartials      int `json:"max_partials"`
	MinPartialLength int `json:"min_partial_length"`
	MaxGap           int `json:"max_gap"`

	MaxFreqDeviation  float64 `json:"max_freq_deviation"`  // Hz
	MinPeakSeparation float64 `json:"min_peak_separation"` // Hz
	MinPeakAmplitude  float64 `json:"min_peak_amplitude"`
	MaxFrequency      float64 `json:"max_frequency"` // Hz, 0 means Nyquist

	WindowType string `json:"window_type"`
	WindowSize int    `json:"window_size"`

	DCCutoff float64 `json:"dc_cutoff"` // Hz, 0 disables DC removal
}

// DefaultConfig returns the default pipeline configuration
func DefaultConfig() Config {
	d := detection.DefaultConfig()
	t := tracking.DefaultConfig()

	return Config{
		SampleRate:        d.SampleRate,
		FrameSize:         d.FrameSize,
		HopSize:           d.HopSize,
		StaticFrameSize:   d.StaticFrameSize,
		MaxPeaks:          d.MaxPeaks,
		MaxPartials:       t.MaxPartials,
		MinPartialLength:  t.MinPartialLength,
		MaxGap:            t.MaxGap,
		MaxFreqDeviation:  t.MaxFreqDeviation,
		MinPeakSeparation: d.MinPeakSeparation,
		MinPeakAmplitude:  d.MinPeakAmplitude,
		MaxFrequency:      d.MaxFrequency,
		WindowType:        d.WindowType,
		WindowSize:        d.WindowSize,
	}
}

// Detection returns the detector's view of the configuration
func (c Config) Detection() detection.Config {
	return detection.Config{
		SampleRate:        c.SampleRate,
		FrameSize:         c.FrameSize,
		HopSize:           c.HopSize,
		StaticFrameSize:   c.StaticFrameSize,
		MaxPeaks:          c.MaxPeaks,
		WindowType:        c.WindowType,
		WindowSize:        c.WindowSize,
		MinPeakSeparation: c.MinPeakSeparation,
		MinPeakAmplitude:  c.MinPeakAmplitude,
		MaxFrequency:      c.MaxFrequency,
	}
}

// Tracking returns the tracker's view of the configuration
func (c Config) Tracking() tracking.Config {
	return tracking.Config{
		SampleRate:        c.SampleRate,
		HopSize:           c.HopSize,
		MaxPartials:       c.MaxPartials,
		MinPartialLength:  c.MinPartialLength,
		MaxGap:            c.MaxGap,
		MaxFreqDeviation:  c.MaxFreqDeviation,
		MinPeakSeparation: c.MinPeakSeparation,
	}
}

// Synthesis returns the synthesizer's view of the configuration
func (c Config) Synthesis() synthesis.Config {
	return synthesis.Config{
		SampleRate:  c.SampleRate,
		HopSize:     c.HopSize,
		MaxPartials: c.MaxPartials,
	}
}

// Validate validates every stage's view of the configuration
func (c Config) Validate() error {
	if err := c.Detection().Validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	if err := c.Tracking().Validate(); err != nil {
		return fmt.Errorf("tracking: %w", err)
	}
	if err := c.Synthesis().Validate(); err != nil {
		return fmt.Errorf("synthesis: %w", err)
	}
	if c.DCCutoff < 0 || c.DCCutoff >= float64(c.SampleRate)/2 {
		return fmt.Errorf("%w: dc cutoff must be in [0, %d) Hz, got %g",
			sinusoidal.ErrInvalidConfig, c.SampleRate/2, c.DCCutoff)
	}
	return nil
}

// dcBlocker returns the configured DC filter, or nil when disabled
func (c Config) dcBlocker() (*filters.DCBlocker, error) {
	if c.DCCutoff == 0 {
		return nil, nil
	}
	blocker, err := filters.NewDCBlocker(c.SampleRate, c.DCCutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sinusoidal.ErrInvalidConfig, err)
	}
	return blocker, nil
}

// LoadConfig reads a JSON configuration file. Fields missing from the file
// keep their defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return config, config.Validate()
}
