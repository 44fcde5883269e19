package sinusoidal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrameDefaults(t *testing.T) {
	f := NewFrame(0)

	assert.Equal(t, DefaultFrameSize, f.Size())
	assert.Equal(t, DefaultMaxPeaks, f.MaxPeaks())
	assert.Equal(t, DefaultMaxPartials, f.MaxPartials())
	assert.Len(t, f.Partials(), DefaultMaxPartials)
	assert.Zero(t, f.NumPartials())
	for _, p := range f.Partials() {
		assert.True(t, p.IsSilent())
	}
}

func TestFrameSetters(t *testing.T) {
	f := NewFrame(1024)

	require.ErrorIs(t, f.SetSize(0), ErrInvalidConfig)
	require.ErrorIs(t, f.SetMaxPeaks(0), ErrInvalidConfig)
	require.ErrorIs(t, f.SetMaxPartials(-1), ErrInvalidConfig)

	require.NoError(t, f.SetSize(2048))
	assert.Equal(t, 2048, f.Size())
}

func TestAddPeakRespectsCapacity(t *testing.T) {
	f := NewFrame(512)
	require.NoError(t, f.SetMaxPeaks(2))

	require.NoError(t, f.AddPeak(NewPeak(1, 100, 0)))
	require.NoError(t, f.AddPeak(NewPeak(1, 200, 0)))
	require.ErrorIs(t, f.AddPeak(NewPeak(1, 300, 0)), ErrInvalidArgument)
	require.ErrorIs(t, f.AddPeak(nil), ErrInvalidArgument)
	assert.Equal(t, 2, f.NumPeaks())

	bridge := NewPeak(1, 300, 0)
	f.AddBridgePeak(bridge)
	assert.Equal(t, 3, f.NumPeaks(), "bridges bypass the capacity")
	assert.True(t, bridge.Bridge)
	assert.Equal(t, 2, bridge.Index())
}

func TestSetMaxPeaksTruncatesAndSilencesSlots(t *testing.T) {
	f := NewFrame(512)
	a := NewPeak(1, 100, 0)
	b := NewPeak(1, 200, 0)
	require.NoError(t, f.AddPeak(a))
	require.NoError(t, f.AddPeak(b))
	require.NoError(t, f.SetPartial(0, a))
	require.NoError(t, f.SetPartial(1, b))

	require.NoError(t, f.SetMaxPeaks(1))

	assert.Equal(t, 1, f.NumPeaks())
	assert.Same(t, a, f.Partial(0))
	assert.True(t, f.Partial(1).IsSilent())
	assert.Equal(t, -1, b.Index())
	require.NoError(t, f.CheckInvariants())
}

func TestSetMaxPartialsKeepsExistingSlots(t *testing.T) {
	f := NewFrame(512)
	p := NewPeak(1, 100, 0)
	require.NoError(t, f.AddPeak(p))
	require.NoError(t, f.SetPartial(1, p))

	require.NoError(t, f.SetMaxPartials(4))
	assert.Len(t, f.Partials(), 4)
	assert.Same(t, p, f.Partial(1))

	require.NoError(t, f.SetMaxPartials(1))
	assert.Len(t, f.Partials(), 1)
	assert.Zero(t, f.NumPartials())
}

func TestSetNumberRestampsPeaks(t *testing.T) {
	f := NewFrame(512)
	p := NewPeak(1, 100, 0)
	require.NoError(t, f.AddPeak(p))

	f.SetNumber(9)
	assert.Equal(t, 9, p.FrameNumber)
	ref := p.Ref()
	assert.True(t, ref.IsSet())
	assert.Equal(t, 9, ref.Frame)
	assert.Equal(t, 0, ref.Index)
}

func TestSetAudioPadsToFrameSize(t *testing.T) {
	f := NewFrame(8)
	in := []float64{1, 2, 3}
	f.SetAudio(in)

	assert.Equal(t, []float64{1, 2, 3, 0, 0, 0, 0, 0}, f.Audio())

	in[0] = 42
	assert.Equal(t, 1.0, f.Audio()[0], "audio is copied")
}

func TestPartialSlots(t *testing.T) {
	f := NewFrame(512)
	require.NoError(t, f.SetMaxPartials(3))

	p := NewPeak(1, 100, 0)
	require.NoError(t, f.AddPeak(p))

	require.ErrorIs(t, f.SetPartial(3, p), ErrInvalidArgument)
	require.ErrorIs(t, f.SetPartial(-1, p), ErrInvalidArgument)
	assert.Nil(t, f.Partial(3))

	require.NoError(t, f.SetPartial(2, p))
	assert.Equal(t, 1, f.NumPartials())

	require.NoError(t, f.SetPartial(2, nil))
	assert.True(t, f.Partial(2).IsSilent())

	require.NoError(t, f.SetPartial(0, p))
	f.ClearPartials()
	assert.Zero(t, f.NumPartials())
}

func TestCheckInvariants(t *testing.T) {
	t.Run("duplicate slot", func(t *testing.T) {
		f := NewFrame(512)
		p := NewPeak(1, 100, 0)
		require.NoError(t, f.AddPeak(p))
		require.NoError(t, f.SetPartial(0, p))
		require.NoError(t, f.SetPartial(1, p))

		err := f.CheckInvariants()
		require.ErrorIs(t, err, ErrInvariant)

		var invariant *InvariantError
		require.True(t, errors.As(err, &invariant))
		assert.Equal(t, 0, invariant.FrameNumber)
	})

	t.Run("foreign peak", func(t *testing.T) {
		f := NewFrame(512)
		require.NoError(t, f.SetPartial(0, NewPeak(1, 100, 0)))

		require.ErrorIs(t, f.CheckInvariants(), ErrInvariant)
	})

	t.Run("valid", func(t *testing.T) {
		f := NewFrame(512)
		a := NewPeak(1, 100, 0)
		b := NewPeak(1, 200, 0)
		require.NoError(t, f.AddPeak(a))
		require.NoError(t, f.AddPeak(b))
		require.NoError(t, f.SetPartial(0, b))
		require.NoError(t, f.SetPartial(5, a))

		require.NoError(t, f.CheckInvariants())
	})
}

func TestFramesResolveAfterRelease(t *testing.T) {
	f0 := NewFrame(512)
	f1 := NewFrame(512)
	f1.SetNumber(1)

	a := NewPeak(1, 100, 0)
	b := NewPeak(1, 100, 0)
	require.NoError(t, f0.AddPeak(a))
	require.NoError(t, f1.AddPeak(b))
	require.NoError(t, Link(a, b))

	frames := Frames{f0, f1}
	assert.Same(t, f1, frames.Frame(1))
	assert.Nil(t, frames.Frame(2))
	assert.Nil(t, frames.Resolve(PeakRef{}))

	f1.Release()
	assert.Nil(t, frames.Resolve(a.Next), "references into a released frame resolve to nil")
	assert.Equal(t, -1, b.Index())
	assert.Zero(t, f1.NumPeaks())

	assert.Same(t, a, frames.Resolve(b.Previous))
	assert.Nil(t, Frames{}.Frame(0))
}

func TestResolveIgnoresPeaksAddedAfterRelease(t *testing.T) {
	f0 := NewFrame(512)
	f1 := NewFrame(512)
	f1.SetNumber(1)

	a := NewPeak(0.5, 440, 0)
	b := NewPeak(0.5, 441, 0)
	require.NoError(t, f0.AddPeak(a))
	require.NoError(t, f1.AddPeak(b))
	require.NoError(t, Link(a, b))

	f1.Release()
	c := NewPeak(0.5, 5000, 0)
	require.NoError(t, f1.AddPeak(c))
	require.Equal(t, b.Ref().Index, c.Index(), "the new peak reuses the released index")

	frames := Frames{f0, f1}
	assert.Nil(t, frames.Resolve(a.Next))
	assert.Same(t, c, frames.Resolve(c.Ref()))
	assert.False(t, c.Previous.IsSet())
}

func TestResolveIgnoresPeaksDroppedByCapacity(t *testing.T) {
	f0 := NewFrame(512)
	f1 := NewFrame(512)
	f1.SetNumber(1)

	a := NewPeak(0.5, 440, 0)
	require.NoError(t, f0.AddPeak(a))
	kept := NewPeak(0.9, 100, 0)
	dropped := NewPeak(0.5, 441, 0)
	require.NoError(t, f1.AddPeak(kept))
	require.NoError(t, f1.AddPeak(dropped))
	require.NoError(t, Link(a, dropped))

	frames := Frames{f0, f1}
	require.Same(t, dropped, frames.Resolve(a.Next))

	require.NoError(t, f1.SetMaxPeaks(1))
	assert.Nil(t, frames.Resolve(a.Next))
	assert.Same(t, kept, frames.Resolve(kept.Ref()), "surviving peaks still resolve")

	require.NoError(t, f1.SetMaxPeaks(10))
	c := NewPeak(0.5, 5000, 0)
	require.NoError(t, f1.AddPeak(c))
	require.Equal(t, 1, c.Index())
	assert.Nil(t, frames.Resolve(a.Next))
	assert.Same(t, c, frames.Resolve(c.Ref()))
}
