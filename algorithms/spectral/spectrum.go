package spectral

import (
	"fmt"
	"math/cmplx"
)

// Window is implemented by analysis windows
type Window interface {
	ApplyInPlace(signal []float64) error
	Sum() float64
	Size() int
}

// Spectrum is the positive-frequency half of one frame's transform
type Spectrum struct {
	Magnitude      []float64 `json:"magnitude"` // Amplitude-normalised magnitude per bin
	Phase          []float64 `json:"phase"`     // Phase per bin (radians)
	FFTSize        int       `json:"fft_size"`
	SampleRate     int       `json:"sample_rate"`
	FreqResolution float64   `json:"freq_resolution"` // Hz per bin
}

// BinFrequency returns the centre frequency of a (possibly fractional) bin
func (s *Spectrum) BinFrequency(bin float64) float64 {
	return bin * s.FreqResolution
}

// FrameAnalyzer computes the spectrum of single windowed frames
type FrameAnalyzer struct {
	fft        *FFT
	sampleRate int
}

// NewFrameAnalyzer creates a frame analyzer
func NewFrameAnalyzer(sampleRate int) *FrameAnalyzer {
	return &FrameAnalyzer{
		fft:        NewFFT(),
		sampleRate: sampleRate,
	}
}

// Compute windows the first window.Size() samples of frame, zero-pads them to
// fftSize and returns the half spectrum. Magnitudes are scaled by 2/sum(window)
// so that a sinusoid of amplitude A peaks at roughly A.
func (fa *FrameAnalyzer) Compute(frame []float64, window Window, fftSize int) (*Spectrum, error) {
	if window == nil {
		return nil, fmt.Errorf("nil window")
	}

	size := window.Size()
	if fftSize < size {
		return nil, fmt.Errorf("fft size (%d) smaller than window size (%d)", fftSize, size)
	}

	buffer := make([]float64, fftSize)
	copy(buffer[:size], frame)
	if err := window.ApplyInPlace(buffer[:size]); err != nil {
		return nil, err
	}

	result := fa.fft.Compute(buffer)

	bins := fftSize/2 + 1
	scale := 0.0
	if sum := window.Sum(); sum > 0 {
		scale = 2.0 / sum
	}

	spectrum := &Spectrum{
		Magnitude:      make([]float64, bins),
		Phase:          make([]float64, bins),
		FFTSize:        fftSize,
		SampleRate:     fa.sampleRate,
		FreqResolution: float64(fa.sampleRate) / float64(fftSize),
	}
	for i := range bins {
		spectrum.Magnitude[i] = cmplx.Abs(result[i]) * scale
		spectrum.Phase[i] = cmplx.Phase(result[i])
	}

	return spectrum, nil
}
