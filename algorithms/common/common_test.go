package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatistics(t *testing.T) {
	data := []float64{2, 4, 6, 8}

	assert.InDelta(t, 5.0, Mean(data), 1e-12)
	assert.InDelta(t, 20.0, Sum(data), 1e-12)
	assert.InDelta(t, math.Sqrt(20.0/3.0), StandardDeviation(data), 1e-12)
	assert.InDelta(t, 2.0, Slope(data), 1e-12)

	assert.Zero(t, Mean(nil))
	assert.Zero(t, Sum(nil))
	assert.Zero(t, StandardDeviation([]float64{1}))
	assert.Zero(t, Slope([]float64{1}))
}

func TestNextPowerOfTwo(t *testing.T) {
	for n, want := range map[int]int{-3: 1, 0: 1, 1: 1, 2: 2, 3: 4, 512: 512, 513: 1024, 2646: 4096} {
		assert.Equal(t, want, NextPowerOfTwo(n), "n=%d", n)
	}
}

func TestWrapPhase(t *testing.T) {
	assert.InDelta(t, 0.0, WrapPhase(2*math.Pi), 1e-12)
	assert.InDelta(t, math.Pi, WrapPhase(math.Pi), 1e-12)
	assert.InDelta(t, math.Pi, WrapPhase(-math.Pi), 1e-12)
	assert.InDelta(t, -math.Pi/2, WrapPhase(3*math.Pi/2), 1e-12)
	assert.InDelta(t, 0.5, WrapPhase(0.5+10*math.Pi), 1e-9)
}

func TestDecibels(t *testing.T) {
	assert.InDelta(t, 0.0, AmplitudeToDB(1, -200), 1e-12)
	assert.InDelta(t, -20.0, AmplitudeToDB(0.1, -200), 1e-12)
	assert.Equal(t, -200.0, AmplitudeToDB(0, -200))
	assert.Equal(t, -120.0, AmplitudeToDB(1e-9, -120))
	assert.InDelta(t, 0.5, DBToAmplitude(AmplitudeToDB(0.5, -200)), 1e-12)
}

func TestClampAndLerp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(3, -1, 1))
	assert.Equal(t, -1.0, Clamp(-3, -1, 1))
	assert.Equal(t, 0.5, Clamp(0.5, -1, 1))
	assert.Equal(t, 2.5, Lerp(2, 4, 0.25))
}

func TestSlidingWindowOverlap(t *testing.T) {
	sw, err := NewSlidingWindow(4, 2)
	require.NoError(t, err)

	frames := sw.AddSamples([]float64{1, 2, 3})
	assert.Empty(t, frames)

	frames = sw.AddSamples([]float64{4, 5, 6, 7, 8})
	assert.Equal(t, [][]float64{{1, 2, 3, 4}, {3, 4, 5, 6}, {5, 6, 7, 8}}, frames)

	sw.Reset()
	assert.Empty(t, sw.AddSamples([]float64{9, 10}))
	assert.Equal(t, 4, sw.WindowSize())
	assert.Equal(t, 2, sw.HopSize())
}

func TestSlidingWindowSkip(t *testing.T) {
	sw, err := NewSlidingWindow(2, 3)
	require.NoError(t, err)

	frames := sw.AddSamples([]float64{1, 2, 3, 4, 5, 6, 7})
	assert.Equal(t, [][]float64{{1, 2}, {4, 5}}, frames)

	frames = sw.AddSamples([]float64{8})
	assert.Equal(t, [][]float64{{7, 8}}, frames)
}

func TestNewSlidingWindowRejectsInvalid(t *testing.T) {
	_, err := NewSlidingWindow(0, 1)
	require.Error(t, err)
	_, err = NewSlidingWindow(4, 0)
	require.Error(t, err)
}
