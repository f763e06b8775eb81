package capture

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-label-overlay/src/canvas"
	"screen-label-overlay/src/numbering"
)

type fakeSizer struct {
	size     int
	min, max int
}

func (f *fakeSizer) AdjustFontSize(delta int) (int, bool) {
	before := f.size
	f.size += delta
	if f.size < f.min {
		f.size = f.min
	}
	if f.size > f.max {
		f.size = f.max
	}
	return f.size, f.size != before
}

func newSession() *Session {
	c := canvas.New(
		canvas.Display{ID: 0, Bounds: image.Rect(0, 0, 1920, 1080)},
		canvas.Display{ID: 1, Bounds: image.Rect(1920, 0, 3840, 1080)},
	)
	return New(c)
}

func TestThreePointsThenUndo(t *testing.T) {
	s := newSession()
	s.Start(nil)
	for _, p := range []canvas.Point{canvas.Pt(10, 10), canvas.Pt(20, 20), canvas.Pt(30, 30)} {
		assert.Equal(t, None, s.PrimaryClick(0, p).Kind)
	}
	require.True(t, s.SecondaryClick())
	assert.Equal(t, []canvas.Point{canvas.Pt(10, 10), canvas.Pt(20, 20)}, s.Recorded())
	assert.Equal(t, Recording, s.State())
}

func TestUndoIsInverseOfAppend(t *testing.T) {
	s := newSession()
	s.Start(nil)
	s.PrimaryClick(0, canvas.Pt(1, 1))
	before := s.Recorded()

	s.PrimaryClick(1, canvas.Pt(5, 5))
	s.SecondaryClick()
	assert.Equal(t, before, s.Recorded())
}

func TestUndoOnEmptyIsNoop(t *testing.T) {
	s := newSession()
	s.Start(nil)
	assert.False(t, s.SecondaryClick())
	assert.Empty(t, s.Recorded())
	assert.Equal(t, Recording, s.State())
}

func TestClicksTranslateToSharedSpace(t *testing.T) {
	s := newSession()
	s.Start(nil)
	s.PrimaryClick(1, canvas.Pt(100, 50))
	assert.Equal(t, []canvas.Point{canvas.Pt(2020, 50)}, s.Recorded())
}

func TestQuotaAutoCommits(t *testing.T) {
	s := newSession()
	s.Start(nil)
	var out Outcome
	for i := 0; i < numbering.MaxPoints; i++ {
		require.Equal(t, None, out.Kind, "committed early at click %d", i)
		out = s.PrimaryClick(0, canvas.Pt(i, i))
	}
	require.Equal(t, Commit, out.Kind)
	assert.Len(t, out.Points, numbering.MaxPoints)
	assert.Equal(t, Committed, s.State())

	// Further clicks cannot extend the list.
	extra := s.PrimaryClick(0, canvas.Pt(999, 999))
	assert.Equal(t, None, extra.Kind)
	assert.Len(t, s.Recorded(), numbering.MaxPoints)

	s.Reset()
	assert.Equal(t, Idle, s.State())
	assert.Len(t, out.Points, numbering.MaxPoints, "outcome points must survive reset")
}

func TestCancelDiscards(t *testing.T) {
	s := newSession()
	s.Start(nil)
	s.PrimaryClick(0, canvas.Pt(1, 1))
	out := s.Cancel()
	assert.Equal(t, Cancel, out.Kind)
	assert.Nil(t, out.Points)
	assert.Equal(t, Cancelled, s.State())
	assert.Empty(t, s.Recorded())

	assert.Equal(t, None, s.PrimaryClick(0, canvas.Pt(2, 2)).Kind)
}

func TestRestartBeginsFromZero(t *testing.T) {
	s := newSession()
	s.Start(nil)
	s.PrimaryClick(0, canvas.Pt(1, 1))
	s.PrimaryClick(0, canvas.Pt(2, 2))
	s.Cancel()
	s.Reset()

	s.Start(nil)
	assert.Empty(t, s.Recorded())
	s.PrimaryClick(0, canvas.Pt(3, 3))
	assert.Equal(t, []canvas.Point{canvas.Pt(3, 3)}, s.Recorded())
}

func TestEventsIgnoredWhenIdle(t *testing.T) {
	s := newSession()
	assert.Equal(t, None, s.PrimaryClick(0, canvas.Pt(1, 1)).Kind)
	assert.False(t, s.SecondaryClick())
	assert.Equal(t, None, s.Cancel().Kind)
	_, _, ok := s.Preview()
	assert.False(t, ok)
	assert.Equal(t, Idle, s.State())
}

func TestPreviewFollowsPointer(t *testing.T) {
	s := newSession()
	s.Start(nil)
	_, _, ok := s.Preview()
	assert.False(t, ok, "no preview before the pointer moves")

	s.PointerMove(1, canvas.Pt(10, 10))
	p, idx, ok := s.Preview()
	require.True(t, ok)
	assert.Equal(t, canvas.Pt(1930, 10), p)
	assert.Equal(t, 1, idx)
	assert.Empty(t, s.Recorded(), "pointer moves never record")

	s.PrimaryClick(0, canvas.Pt(5, 5))
	_, idx, _ = s.Preview()
	assert.Equal(t, 2, idx)
}

func TestScrollAdjustsByOneStep(t *testing.T) {
	s := newSession()
	sizer := &fakeSizer{size: 30, min: 8, max: 72}
	s.Start(sizer)
	s.PrimaryClick(0, canvas.Pt(1, 1))

	size, changed := s.Scroll(120)
	assert.True(t, changed)
	assert.Equal(t, 31, size)

	size, _ = s.Scroll(-3)
	assert.Equal(t, 30, size)
	assert.Len(t, s.Recorded(), 1)

	sizer.size = 72
	_, changed = s.Scroll(1)
	assert.False(t, changed)
	assert.Equal(t, 72, sizer.size)
}
