package canvas

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoDisplays() []Display {
	return []Display{
		{ID: 0, Bounds: image.Rect(0, 0, 1920, 1080)},
		{ID: 1, Bounds: image.Rect(-1280, 100, 0, 1124)},
	}
}

func TestBoundingRectSpansAllDisplays(t *testing.T) {
	c := New(twoDisplays()...)
	assert.Equal(t, image.Rect(-1280, 0, 1920, 1124), c.BoundingRect())
}

func TestLocalGlobalRoundTrip(t *testing.T) {
	c := New(twoDisplays()...)

	local := c.ToLocal(1, Pt(-1000, 300))
	assert.Equal(t, Pt(280, 200), local)
	assert.Equal(t, Pt(-1000, 300), c.ToGlobal(1, local))

	assert.Equal(t, Pt(5, 6), c.ToLocal(0, Pt(5, 6)))
}

func TestUnknownDisplayIsIdentity(t *testing.T) {
	c := New(twoDisplays()...)
	assert.Equal(t, Pt(-7, 9), c.ToGlobal(42, Pt(-7, 9)))
	assert.Equal(t, Pt(-7, 9), c.ToLocal(42, Pt(-7, 9)))
}

func TestDisplayAt(t *testing.T) {
	c := New(twoDisplays()...)

	d, ok := c.DisplayAt(Pt(-1, 500))
	require.True(t, ok)
	assert.Equal(t, 1, d.ID)

	_, ok = c.DisplayAt(Pt(-1, 50))
	assert.False(t, ok, "gap above the left display belongs to no display")
}

func TestRefreshKeepsLastKnownOnFailure(t *testing.T) {
	c := New(twoDisplays()...)
	before := c.BoundingRect()

	err := c.Refresh(SourceFunc(func() ([]Display, error) { return nil, errors.New("query failed") }))
	require.Error(t, err)
	assert.Equal(t, before, c.BoundingRect())

	err = c.Refresh(SourceFunc(func() ([]Display, error) { return nil, nil }))
	require.ErrorIs(t, err, ErrNoDisplays)
	assert.Equal(t, before, c.BoundingRect())
}

func TestRefreshRecomputesBounds(t *testing.T) {
	c := New(twoDisplays()...)
	single := []Display{{ID: 0, Bounds: image.Rect(0, 0, 800, 600)}}

	assert.True(t, c.Changed(single))
	require.NoError(t, c.Refresh(SourceFunc(func() ([]Display, error) { return single, nil })))
	assert.Equal(t, image.Rect(0, 0, 800, 600), c.BoundingRect())
	assert.False(t, c.Changed(single))
	assert.Len(t, c.Displays(), 1)
}
