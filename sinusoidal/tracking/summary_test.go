package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	tracker := newTracker(t, nil)
	frames := makeFrames(t,
		[]tone{{440, 0.2}, {880, 0.1}},
		[]tone{{442, 0.4}},
		[]tone{{444, 0.6}},
	)

	_, err := tracker.FindPartials(frames)
	require.NoError(t, err)

	summaries := Summarize(frames)
	require.Len(t, summaries, 2)

	s := summaries[0]
	assert.Equal(t, 0, s.PartialID)
	assert.Equal(t, 0, s.StartFrame)
	assert.Equal(t, 2, s.EndFrame)
	assert.Equal(t, 3, s.Length)
	assert.Zero(t, s.Bridged)
	assert.InDelta(t, 442.0, s.MeanFrequency, 1e-9)
	assert.InDelta(t, 2.0, s.FreqStdDev, 1e-9)
	assert.InDelta(t, 2.0, s.FreqSlope, 1e-9)
	assert.InDelta(t, 0.4, s.MeanAmplitude, 1e-9)
	assert.InDelta(t, 0.6, s.PeakAmplitude, 1e-9)
	assert.InDelta(t, 0.2, s.AmpSlope, 1e-9)

	b := summaries[1]
	assert.Equal(t, 1, b.PartialID)
	assert.Equal(t, 1, b.Length)
	assert.Equal(t, 2, b.Bridged)
	assert.Equal(t, 0, b.EndFrame, "end frame is the last detection")
	assert.Zero(t, b.FreqSlope)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Empty(t, Summarize(nil))
}
