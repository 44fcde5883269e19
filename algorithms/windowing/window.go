package windowing

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-sines/algorithms/common"
	"github.com/mjibson/go-dsp/window"
)

// Type names an analysis window
type Type string

const (
	TypeHamming     Type = "hamming"
	TypeHann        Type = "hann"
	TypeBlackman    Type = "blackman"
	TypeBartlett    Type = "bartlett"
	TypeFlatTop     Type = "flattop"
	TypeRectangular Type = "rectangular"
)

var generators = map[Type]func(int) []float64{
	TypeHamming:     window.Hamming,
	TypeHann:        window.Hann,
	TypeBlackman:    window.Blackman,
	TypeBartlett:    window.Bartlett,
	TypeFlatTop:     window.FlatTop,
	TypeRectangular: window.Rectangular,
}

// ParseType resolves a window name, case-insensitively
func ParseType(name string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(name)))
	if t == "hanning" {
		t = TypeHann
	}
	if _, ok := generators[t]; !ok {
		return "", fmt.Errorf("unknown window type %q", name)
	}
	return t, nil
}

// Window holds the symmetric coefficients of an analysis window
type Window struct {
	kind         Type
	size         int
	coefficients []float64
	sum          float64
}

// New creates a window of the given type and size
func New(kind Type, size int) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}

	generate, ok := generators[kind]
	if !ok {
		return nil, fmt.Errorf("unknown window type %q", kind)
	}

	// The symmetric formulas divide by size-1
	if size == 1 {
		generate = window.Rectangular
	}

	coefficients := generate(size)
	return &Window{
		kind:         kind,
		size:         size,
		coefficients: coefficients,
		sum:          common.Sum(coefficients),
	}, nil
}

// Apply applies the window to a signal (creates new array)
func (w *Window) Apply(signal []float64) []float64 {
	if len(signal) != w.size {
		return nil
	}

	windowed := make([]float64, w.size)
	for i := range w.size {
		windowed[i] = signal[i] * w.coefficients[i]
	}
	return windowed
}

// ApplyInPlace applies the window to a signal in-place
func (w *Window) ApplyInPlace(signal []float64) error {
	if len(signal) != w.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), w.size)
	}

	for i := range w.size {
		signal[i] *= w.coefficients[i]
	}
	return nil
}

// Coefficients returns a copy of the window coefficients
func (w *Window) Coefficients() []float64 {
	coeffs := make([]float64, len(w.coefficients))
	copy(coeffs, w.coefficients)
	return coeffs
}

// Sum returns the sum of the coefficients (the window's coherent gain times its size)
func (w *Window) Sum() float64 {
	return w.sum
}

// Size returns the window size
func (w *Window) Size() int {
	return w.size
}

// Type returns the window type
func (w *Window) Type() Type {
	return w.kind
}
