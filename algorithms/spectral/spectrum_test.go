package spectral

import (
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-sines/algorithms/windowing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBinCentredSine(t *testing.T) {
	const (
		sampleRate = 1024
		size       = 1024
		bin        = 64
		amplitude  = 0.7
	)

	frame := make([]float64, size)
	for i := range frame {
		frame[i] = amplitude * math.Cos(2*math.Pi*bin*float64(i)/size)
	}

	w, err := windowing.New(windowing.TypeRectangular, size)
	require.NoError(t, err)

	spectrum, err := NewFrameAnalyzer(sampleRate).Compute(frame, w, size)
	require.NoError(t, err)

	require.Len(t, spectrum.Magnitude, size/2+1)
	assert.Equal(t, 1.0, spectrum.FreqResolution)
	assert.InDelta(t, amplitude, spectrum.Magnitude[bin], 1e-9)
	assert.InDelta(t, 0.0, spectrum.Phase[bin], 1e-9)
	assert.InDelta(t, 0.0, spectrum.Magnitude[bin+5], 1e-9)
	assert.Equal(t, 64.0, spectrum.BinFrequency(bin))
}

func TestComputeZeroPads(t *testing.T) {
	w, err := windowing.New(windowing.TypeHann, 256)
	require.NoError(t, err)

	spectrum, err := NewFrameAnalyzer(44100).Compute(make([]float64, 256), w, 1024)
	require.NoError(t, err)
	assert.Equal(t, 1024, spectrum.FFTSize)
	assert.Len(t, spectrum.Phase, 513)
	assert.InDelta(t, 44100.0/1024, spectrum.FreqResolution, 1e-12)
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	fa := NewFrameAnalyzer(44100)

	_, err := fa.Compute(make([]float64, 16), nil, 16)
	require.Error(t, err)

	w, err := windowing.New(windowing.TypeHamming, 32)
	require.NoError(t, err)
	_, err = fa.Compute(make([]float64, 32), w, 16)
	require.Error(t, err)
}

func TestFFTEmpty(t *testing.T) {
	assert.Empty(t, NewFFT().Compute(nil))
}
