// Package export writes a profile's labels out of the overlay: a PNG
// snapshot over the desktop and a printable PDF layout sheet.
package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"screen-label-overlay/src/canvas"
	"screen-label-overlay/src/overlay"
	"screen-label-overlay/src/profile"
)

var backdrop = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}

// Snapshot renders p's labels across the whole canvas. bg, when non-nil, is
// a capture of the canvas bounding rectangle placed at its top-left corner;
// otherwise displays are drawn as flat panels.
func Snapshot(r *overlay.Renderer, c *canvas.Canvas, bg image.Image, p profile.Profile) (*image.RGBA, error) {
	rect := c.BoundingRect()
	if rect.Empty() {
		return nil, canvas.ErrNoDisplays
	}
	img := image.NewRGBA(rect)
	if bg != nil {
		draw.Draw(img, rect, bg, bg.Bounds().Min, draw.Src)
	} else {
		for _, d := range c.Displays() {
			draw.Draw(img, d.Bounds, image.NewUniform(backdrop), image.Point{}, draw.Src)
		}
	}

	// The image is addressed in shared space, so one target spanning the
	// canvas places every label where the overlay would.
	t := overlay.Target{Dst: img, Display: canvas.Display{ID: -1, Bounds: rect}}
	if err := r.Render(t, p.Coordinates, p.Style, nil); err != nil {
		return nil, fmt.Errorf("render labels: %w", err)
	}
	return img, nil
}

// WritePNG encodes img to path, creating parent directories.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("export: wrote snapshot %s (%dx%d)", path, img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}
