package filters

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDCBlockerRemovesOffset(t *testing.T) {
	dc, err := NewDCBlocker(44100, 10)
	require.NoError(t, err)

	in := make([]float64, 44100)
	for i := range in {
		in[i] = 0.5
	}
	out := dc.Process(in)

	assert.InDelta(t, 0.5, out[0], 1e-12, "the first sample passes")
	assert.InDelta(t, 0.0, out[len(out)-1], 1e-6, "a constant decays to zero")
}

func TestDCBlockerPassesAudio(t *testing.T) {
	dc, err := NewDCBlocker(44100, 10)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, dc.Response(440, 44100), 0.01)
	assert.InDelta(t, 0.0, dc.Response(0, 44100), 1e-12)
	assert.InDelta(t, 1-2*math.Pi*10/44100, dc.Pole(), 1e-12)
}

func TestDCBlockerChunksMatchWhole(t *testing.T) {
	in := make([]float64, 100)
	for i := range in {
		in[i] = 0.3 + math.Sin(float64(i)/5)
	}

	whole, err := NewDCBlocker(8000, 20)
	require.NoError(t, err)
	expected := whole.Process(in)

	chunked, err := NewDCBlocker(8000, 20)
	require.NoError(t, err)
	got := append(chunked.Process(in[:37]), chunked.Process(in[37:])...)

	assert.InDeltaSlice(t, expected, got, 1e-12)

	chunked.Reset()
	assert.InDeltaSlice(t, expected, chunked.Process(in), 1e-12)
}

func TestNewDCBlockerRejectsInvalid(t *testing.T) {
	_, err := NewDCBlocker(0, 10)
	require.Error(t, err)
	_, err = NewDCBlocker(44100, 0)
	require.Error(t, err)
	_, err = NewDCBlocker(44100, 30000)
	require.Error(t, err)
}
