package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"screen-label-overlay/src/canvas"
)

// Presenter puts painted frames on screen. Implementations must treat the
// frame as read-only and must not retain it past the call.
type Presenter interface {
	Present(layer string, display canvas.Display, frame *image.RGBA) error
	Clear(layer string, display canvas.Display) error
}

// PaintFunc draws one display's frame. The frame arrives cleared.
type PaintFunc func(t Target) error

// Layer is a full-canvas, click-through surface made of one frame per
// display. It is owned by the event loop.
type Layer struct {
	name      string
	presenter Presenter
	displays  func() []canvas.Display
	paint     PaintFunc

	visible bool
	frames  map[int]*image.RGBA
	shown   []canvas.Display
}

func NewLayer(name string, presenter Presenter, displays func() []canvas.Display, paint PaintFunc) *Layer {
	return &Layer{
		name:      name,
		presenter: presenter,
		displays:  displays,
		paint:     paint,
		frames:    make(map[int]*image.RGBA),
	}
}

// Name returns the layer name.
func (l *Layer) Name() string { return l.name }

// Visible reports whether the layer is shown.
func (l *Layer) Visible() bool { return l.visible }

// Show makes the layer visible and paints it.
func (l *Layer) Show() error {
	if !l.visible {
		log.Printf("overlay: show %s layer", l.name)
	}
	l.visible = true
	return l.Invalidate()
}

// Hide clears the layer from every display it was presented on.
func (l *Layer) Hide() error {
	if !l.visible {
		return nil
	}
	l.visible = false
	log.Printf("overlay: hide %s layer", l.name)
	var errs []error
	for _, d := range l.shown {
		if err := l.presenter.Clear(l.name, d); err != nil {
			errs = append(errs, err)
		}
	}
	l.shown = nil
	return errors.Join(errs...)
}

// Invalidate repaints a visible layer. Displays that went away since the
// last paint are cleared.
func (l *Layer) Invalidate() error {
	if !l.visible {
		return nil
	}
	displays := l.displays()
	var errs []error
	for _, old := range l.shown {
		if !containsDisplay(displays, old) {
			if err := l.presenter.Clear(l.name, old); err != nil {
				errs = append(errs, err)
			}
			delete(l.frames, old.ID)
		}
	}
	l.shown = l.shown[:0]
	for _, d := range displays {
		frame := l.frame(d)
		if err := l.paint(Target{Dst: frame, Display: d}); err != nil {
			errs = append(errs, fmt.Errorf("paint %s on display %d: %w", l.name, d.ID, err))
			continue
		}
		if err := l.presenter.Present(l.name, d, frame); err != nil {
			errs = append(errs, err)
			continue
		}
		l.shown = append(l.shown, d)
	}
	return errors.Join(errs...)
}

func (l *Layer) frame(d canvas.Display) *image.RGBA {
	size := d.Bounds.Size()
	f, ok := l.frames[d.ID]
	if !ok || f.Bounds().Size() != size {
		f = image.NewRGBA(image.Rectangle{Max: size})
		l.frames[d.ID] = f
		return f
	}
	draw.Draw(f, f.Bounds(), image.Transparent, image.Point{}, draw.Src)
	return f
}

func containsDisplay(list []canvas.Display, d canvas.Display) bool {
	for _, x := range list {
		if x == d {
			return true
		}
	}
	return false
}

// LogPresenter only logs layer visibility changes. It is used where no
// native layered window is available.
type LogPresenter struct {
	presented map[string]bool
}

func (p *LogPresenter) key(layer string, d canvas.Display) string {
	return fmt.Sprintf("%s-%d", layer, d.ID)
}

func (p *LogPresenter) Present(layer string, d canvas.Display, _ *image.RGBA) error {
	if p.presented == nil {
		p.presented = make(map[string]bool)
	}
	k := p.key(layer, d)
	if !p.presented[k] {
		log.Printf("overlay: %s layer presented on display %d %v", layer, d.ID, d.Bounds)
		p.presented[k] = true
	}
	return nil
}

func (p *LogPresenter) Clear(layer string, d canvas.Display) error {
	delete(p.presented, p.key(layer, d))
	return nil
}

// PNGPresenter writes each frame to <Dir>/<layer>-<display>.png, which is
// handy for checking label placement without a compositor.
type PNGPresenter struct {
	Dir string
}

func (p PNGPresenter) path(layer string, d canvas.Display) string {
	return filepath.Join(p.Dir, fmt.Sprintf("%s-%d.png", layer, d.ID))
}

func (p PNGPresenter) Present(layer string, d canvas.Display, frame *image.RGBA) error {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("create frames directory: %w", err)
	}
	f, err := os.Create(p.path(layer, d))
	if err != nil {
		return fmt.Errorf("create frame file: %w", err)
	}
	if err := png.Encode(f, frame); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode frame: %w", err)
	}
	return f.Close()
}

func (p PNGPresenter) Clear(layer string, d canvas.Display) error {
	err := os.Remove(p.path(layer, d))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
