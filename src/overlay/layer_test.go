package overlay

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-label-overlay/src/canvas"
)

type recordingPresenter struct {
	presented []int
	cleared   []int
}

func (p *recordingPresenter) Present(_ string, d canvas.Display, _ *image.RGBA) error {
	p.presented = append(p.presented, d.ID)
	return nil
}

func (p *recordingPresenter) Clear(_ string, d canvas.Display) error {
	p.cleared = append(p.cleared, d.ID)
	return nil
}

func TestLayerShowHide(t *testing.T) {
	displays := []canvas.Display{
		{ID: 0, Bounds: image.Rect(0, 0, 100, 50)},
		{ID: 1, Bounds: image.Rect(100, 0, 200, 50)},
	}
	pres := &recordingPresenter{}
	painted := 0
	l := NewLayer("display", pres, func() []canvas.Display { return displays }, func(t Target) error {
		painted++
		return nil
	})

	require.NoError(t, l.Invalidate())
	assert.Zero(t, painted, "hidden layer must not paint")

	require.NoError(t, l.Show())
	assert.True(t, l.Visible())
	assert.Equal(t, []int{0, 1}, pres.presented)

	require.NoError(t, l.Hide())
	assert.False(t, l.Visible())
	assert.Equal(t, []int{0, 1}, pres.cleared)

	require.NoError(t, l.Hide())
	assert.Len(t, pres.cleared, 2, "second hide is a no-op")
}

func TestLayerFramesStartCleared(t *testing.T) {
	displays := []canvas.Display{{ID: 0, Bounds: image.Rect(0, 0, 10, 10)}}
	paints := 0
	l := NewLayer("display", &recordingPresenter{}, func() []canvas.Display { return displays }, func(tgt Target) error {
		frame := tgt.Dst.(*image.RGBA)
		assert.Zero(t, frame.RGBAAt(5, 5).A, "paint %d got a dirty frame", paints)
		frame.SetRGBA(5, 5, color.RGBA{R: 0xff, A: 0xff})
		paints++
		return nil
	})
	require.NoError(t, l.Show())
	require.NoError(t, l.Invalidate())
	assert.Equal(t, 2, paints)
}

func TestLayerClearsRemovedDisplay(t *testing.T) {
	displays := []canvas.Display{
		{ID: 0, Bounds: image.Rect(0, 0, 100, 50)},
		{ID: 1, Bounds: image.Rect(100, 0, 200, 50)},
	}
	pres := &recordingPresenter{}
	l := NewLayer("capture", pres, func() []canvas.Display { return displays }, func(Target) error { return nil })
	require.NoError(t, l.Show())

	displays = displays[:1]
	require.NoError(t, l.Invalidate())
	assert.Equal(t, []int{1}, pres.cleared)
}

func TestPNGPresenterWritesAndRemovesFrames(t *testing.T) {
	dir := t.TempDir()
	p := PNGPresenter{Dir: filepath.Join(dir, "frames")}
	d := canvas.Display{ID: 2, Bounds: image.Rect(0, 0, 4, 4)}

	require.NoError(t, p.Present("display", d, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	path := filepath.Join(dir, "frames", "display-2.png")
	_, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, p.Clear("display", d))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, p.Clear("display", d))
}
