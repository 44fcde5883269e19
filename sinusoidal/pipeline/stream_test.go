package pipeline

import (
	"testing"

	"github.com/RyanBlaney/sonido-sines/sinusoidal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamMatchesFrameCount(t *testing.T) {
	p := newPipeline(t, nil)
	audio := twoTones(44100, 22050)

	var numbers []int
	var lowFreq []float64
	stream, err := p.NewStream(func(f *sinusoidal.Frame) {
		numbers = append(numbers, f.Number())
		if slot := f.Partial(0); !slot.IsSilent() {
			lowFreq = append(lowFreq, slot.Frequency)
		}
	})
	require.NoError(t, err)

	var out []float64
	for start := 0; start < len(audio); start += 1000 {
		chunk, err := stream.Write(audio[start:min(start+1000, len(audio))])
		require.NoError(t, err)
		out = append(out, chunk...)
	}
	stream.Close()

	// One frame per hop once the first window is full
	expected := (len(audio)-2048)/512 + 1
	assert.Equal(t, expected, stream.Frames())
	assert.Len(t, out, expected*512)
	assert.Greater(t, rms(out), 0.1)

	require.Len(t, numbers, expected)
	for i, n := range numbers {
		assert.Equal(t, i, n)
	}

	require.NotEmpty(t, lowFreq)
	for _, f := range lowFreq {
		assert.InDelta(t, 440.0, f, 3.0, "the loudest tone keeps the first slot")
	}
}

func TestStreamReleasesOlderFrames(t *testing.T) {
	p := newPipeline(t, nil)

	var seen []*sinusoidal.Frame
	stream, err := p.NewStream(func(f *sinusoidal.Frame) {
		seen = append(seen, f)
	})
	require.NoError(t, err)

	_, err = stream.Write(twoTones(44100, 4096))
	require.NoError(t, err)
	require.Greater(t, len(seen), 2)

	for _, f := range seen[:len(seen)-1] {
		assert.Zero(t, f.NumPeaks(), "frame %d should be released", f.Number())
	}
	assert.NotZero(t, seen[len(seen)-1].NumPeaks())

	stream.Close()
	assert.Zero(t, seen[len(seen)-1].NumPeaks())
}

func TestStreamRejectsInvalidWindow(t *testing.T) {
	p := newPipeline(t, nil)
	p.config.FrameSize = 0

	_, err := p.NewStream(nil)
	require.ErrorIs(t, err, sinusoidal.ErrInvalidConfig)
}

func TestStreamKeepsShortPartials(t *testing.T) {
	p := newPipeline(t, func(c *Config) { c.MinPartialLength = 1000 })

	discarded := 0
	stream, err := p.NewStream(func(f *sinusoidal.Frame) {
		for _, peak := range f.Peaks() {
			if peak.Discarded {
				discarded++
			}
		}
	})
	require.NoError(t, err)

	out, err := stream.Write(twoTones(44100, 8192))
	require.NoError(t, err)
	stream.Close()

	assert.Zero(t, discarded)
	assert.Greater(t, rms(out), 0.1)
}
