package windowing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	for name, want := range map[string]Type{
		"hamming":     TypeHamming,
		"Hann":        TypeHann,
		"hanning":     TypeHann,
		" BLACKMAN ":  TypeBlackman,
		"rectangular": TypeRectangular,
	} {
		got, err := ParseType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseType("kaiser")
	require.Error(t, err)
}

func TestNewWindow(t *testing.T) {
	w, err := New(TypeHamming, 64)
	require.NoError(t, err)

	assert.Equal(t, 64, w.Size())
	assert.Equal(t, TypeHamming, w.Type())

	c := w.Coefficients()
	require.Len(t, c, 64)
	assert.InDelta(t, 0.08, c[0], 1e-9, "hamming ends at 0.08")
	assert.InDelta(t, c[0], c[63], 1e-9, "symmetric")
	assert.InDelta(t, 0.54*64-0.46, w.Sum(), 1e-9)

	c[0] = 42
	assert.NotEqual(t, 42.0, w.Coefficients()[0], "coefficients are copied")
}

func TestNewWindowRejectsInvalid(t *testing.T) {
	_, err := New(TypeHann, 0)
	require.Error(t, err)

	_, err = New(Type("kaiser"), 16)
	require.Error(t, err)
}

func TestSingleSampleWindow(t *testing.T) {
	w, err := New(TypeBlackman, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, w.Coefficients())
}

func TestRectangularWindow(t *testing.T) {
	w, err := New(TypeRectangular, 8)
	require.NoError(t, err)
	assert.Equal(t, 8.0, w.Sum())

	signal := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	assert.Equal(t, signal, w.Apply(signal))
}

func TestApply(t *testing.T) {
	w, err := New(TypeHann, 16)
	require.NoError(t, err)

	ones := make([]float64, 16)
	for i := range ones {
		ones[i] = 1
	}

	windowed := w.Apply(ones)
	assert.Equal(t, w.Coefficients(), windowed)
	assert.Nil(t, w.Apply(ones[:8]), "length mismatch")

	require.NoError(t, w.ApplyInPlace(ones))
	assert.Equal(t, windowed, ones)
	require.Error(t, w.ApplyInPlace(make([]float64, 3)))
}
