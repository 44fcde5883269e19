package filters

import (
	"fmt"
	"math"
)

// DCBlocker is a one-pole high-pass filter that removes the DC offset of a
// signal before spectral analysis.
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// References:
//   - Julius O. Smith III, "Introduction to Digital Filters with Audio Applications"
//     https://ccrma.stanford.edu/~jos/filters/DC_Blocker.html
type DCBlocker struct {
	pole float64 // R, 0 < R < 1

	x1 float64
	y1 float64
}

// NewDCBlocker creates a DC blocker with the given -3 dB cutoff. The pole is
// placed at R = 1 - 2*pi*fc/fs.
func NewDCBlocker(sampleRate int, cutoff float64) (*DCBlocker, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if cutoff <= 0 || cutoff >= float64(sampleRate)/2 {
		return nil, fmt.Errorf("cutoff must be in (0, %d) Hz, got %g", sampleRate/2, cutoff)
	}

	pole := 1.0 - 2.0*math.Pi*cutoff/float64(sampleRate)
	return &DCBlocker{pole: math.Max(0.001, math.Min(0.999, pole))}, nil
}

// Process filters samples into a new slice. State carries over between calls
// so a stream may be filtered chunk by chunk.
func (dc *DCBlocker) Process(samples []float64) []float64 {
	out := make([]float64, len(samples))
	for i, x := range samples {
		y := x - dc.x1 + dc.pole*dc.y1
		dc.x1 = x
		dc.y1 = y
		out[i] = y
	}
	return out
}

// Reset clears the filter state
func (dc *DCBlocker) Reset() {
	dc.x1 = 0
	dc.y1 = 0
}

// Pole returns the pole location R
func (dc *DCBlocker) Pole() float64 {
	return dc.pole
}

// Response returns the magnitude response at frequency:
//
//	H(e^jw) = (1 - e^-jw) / (1 - R*e^-jw)
func (dc *DCBlocker) Response(frequency float64, sampleRate int) float64 {
	w := 2.0 * math.Pi * frequency / float64(sampleRate)
	cosW, sinW := math.Cos(w), math.Sin(w)

	num := math.Hypot(1-cosW, sinW)
	den := math.Hypot(1-dc.pole*cosW, dc.pole*sinW)
	if den == 0 {
		return 0
	}
	return num / den
}
