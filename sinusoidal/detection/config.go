package detection

import (
	"fmt"

	"github.com/RyanBlaney/sonido-sines/algorithms/windowing"
	"github.com/RyanBlaney/sonido-sines/sinusoidal"
)

// Config holds peak detection parameters
type Config struct {
	SampleRate      int  `json:"sample_rate"`
	FrameSize       int  `json:"frame_size"`        // Analysis window length in samples
	HopSize         int  `json:"hop_size"`          // Distance between frame starts
	StaticFrameSize bool `json:"static_frame_size"` // false lets the frame size follow the lowest strong peak
	MaxPeaks        int  `json:"max_peaks"`

	WindowType string `json:"window_type"`
	WindowSize int    `json:"window_size"` // FFT length; shorter frames are zero-padded up to it

	MinPeakSeparation float64 `json:"min_peak_separation"` // Hz
	MinPeakAmplitude  float64 `json:"min_peak_amplitude"`  // Linear amplitude floor
	MaxFrequency      float64 `json:"max_frequency"`       // Hz, 0 means Nyquist
}

// DefaultConfig returns the default detection parameters
func DefaultConfig() Config {
	return Config{
		SampleRate:        44100,
		FrameSize:         2048,
		HopSize:           512,
		StaticFrameSize:   true,
		MaxPeaks:          sinusoidal.DefaultMaxPeaks,
		WindowType:        string(windowing.TypeHamming),
		WindowSize:        2048,
		MinPeakSeparation: 1.0,
		MinPeakAmplitude:  1e-4,
		MaxFrequency:      0,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", sinusoidal.ErrInvalidConfig, c.SampleRate)
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("%w: frame size must be positive, got %d", sinusoidal.ErrInvalidConfig, c.FrameSize)
	}
	if c.HopSize <= 0 {
		return fmt.Errorf("%w: hop size must be positive, got %d", sinusoidal.ErrInvalidConfig, c.HopSize)
	}
	if c.MaxPeaks <= 0 {
		return fmt.Errorf("%w: max peaks must be positive, got %d", sinusoidal.ErrInvalidConfig, c.MaxPeaks)
	}
	if c.WindowSize < 0 {
		return fmt.Errorf("%w: window size must not be negative, got %d", sinusoidal.ErrInvalidConfig, c.WindowSize)
	}
	if _, err := windowing.ParseType(c.WindowType); err != nil {
		return fmt.Errorf("%w: %v", sinusoidal.ErrInvalidConfig, err)
	}
	if c.MinPeakSeparation < 0 || c.MinPeakAmplitude < 0 || c.MaxFrequency < 0 {
		return fmt.Errorf("%w: peak separation, amplitude floor and max frequency must not be negative", sinusoidal.ErrInvalidConfig)
	}
	return nil
}
