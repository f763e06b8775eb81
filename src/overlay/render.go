// Package overlay draws numbered labels onto per-display frames and hands
// those frames to a presenter.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"screen-label-overlay/src/canvas"
	"screen-label-overlay/src/numbering"
	"screen-label-overlay/src/profile"
)

// PreviewOpacity is applied to the not-yet-placed label in capture mode.
const PreviewOpacity = 0.7

// Target is one display's drawing surface. Dst covers the display in local
// coordinates.
type Target struct {
	Dst     draw.Image
	Display canvas.Display
}

// Preview is the hint label that follows the pointer during capture.
type Preview struct {
	Point canvas.Point
	Index int
}

// Renderer draws labels. It keeps no state besides the font registry, so the
// same call serves display mode and capture mode. It is safe for concurrent
// use; drawing calls on renderers sharing a registry run one at a time.
type Renderer struct {
	fonts *Fonts
}

func NewRenderer(fonts *Fonts) *Renderer {
	return &Renderer{fonts: fonts}
}

// Render draws label i+1 centred on coords[i] and, when preview is set, the
// preview label at reduced opacity.
func (r *Renderer) Render(t Target, coords []canvas.Point, style profile.Style, preview *Preview) error {
	style = style.Clamp()
	defer r.fonts.lockDrawing()()
	face, err := r.fonts.Face(style.Family, style.Size)
	if err != nil {
		return err
	}
	for i, p := range coords {
		label, ok := numbering.Label(i + 1)
		if !ok {
			break
		}
		drawLabel(t.Dst, face, label, r.local(t, p), style, 1)
	}
	if preview != nil {
		if label, ok := numbering.Label(preview.Index); ok {
			drawLabel(t.Dst, face, label, r.local(t, preview.Point), style, PreviewOpacity)
		}
	}
	return nil
}

func (r *Renderer) local(t Target, p canvas.Point) image.Point {
	return t.Display.ToLocal(p).Image().Add(t.Dst.Bounds().Min)
}

// measure returns the advance width and the ink height of text.
func measure(face font.Face, text string) (bounds fixed.Rectangle26_6, width, height int) {
	bounds, advance := font.BoundString(face, text)
	return bounds, advance.Ceil(), (bounds.Max.Y - bounds.Min.Y).Ceil()
}

// drawLabel draws text with its outline centred on center. The glyph mask is
// stamped once per offset inside the outline disc, then filled on top, and
// the composed label is blended onto dst at opacity.
func drawLabel(dst draw.Image, face font.Face, text string, center image.Point, style profile.Style, opacity float64) {
	bounds, width, height := measure(face, text)
	origin := image.Pt(center.X-width/2, center.Y+height/2)

	inkRect := image.Rect(bounds.Min.X.Floor(), bounds.Min.Y.Floor(), bounds.Max.X.Ceil(), bounds.Max.Y.Ceil())
	if inkRect.Empty() {
		return
	}
	mask := image.NewAlpha(inkRect)
	d := &font.Drawer{Dst: mask, Src: image.Opaque, Face: face, Dot: fixed.P(0, 0)}
	d.DrawString(text)

	radius := (style.OutlineWidth + 1) / 2
	label := image.NewRGBA(inkRect.Inset(-radius))
	if radius > 0 {
		outline := image.NewUniform(rgba(style.OutlineColor))
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if dx*dx+dy*dy > radius*radius {
					continue
				}
				draw.DrawMask(label, inkRect.Add(image.Pt(dx, dy)), outline, image.Point{}, mask, inkRect.Min, draw.Over)
			}
		}
	}
	draw.DrawMask(label, inkRect, image.NewUniform(rgba(style.Color)), image.Point{}, mask, inkRect.Min, draw.Over)

	rect := label.Bounds().Add(origin)
	if opacity >= 1 {
		draw.Draw(dst, rect, label, label.Bounds().Min, draw.Over)
		return
	}
	alpha := image.NewUniform(color.Alpha{A: uint8(opacity*255 + 0.5)})
	draw.DrawMask(dst, rect, label, label.Bounds().Min, alpha, image.Point{}, draw.Over)
}

func rgba(c profile.RGB) color.RGBA {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: 0xff}
}

var (
	dimColor    = color.RGBA{A: 0x40}
	bannerColor = color.RGBA{A: 0xc0}
)

// RenderBanner dims the target and draws the capture instructions at the
// display centre. next is the index the next click will place.
func (r *Renderer) RenderBanner(t Target, next, total int) error {
	b := t.Dst.Bounds()
	draw.Draw(t.Dst, b, image.NewUniform(dimColor), image.Point{}, draw.Over)

	defer r.fonts.lockDrawing()()
	title, err := r.fonts.Face(fallbackFamily, 20)
	if err != nil {
		return err
	}
	body, err := r.fonts.Face(bannerFamily, 12)
	if err != nil {
		return err
	}
	lines := []struct {
		face font.Face
		text string
	}{
		{title, "CONFIGURATION MODE"},
		{body, fmt.Sprintf("Click point %d / %d", next, total)},
		{body, "Right click: undo   Wheel: label size   Esc: cancel"},
	}

	const pad, gap = 16, 8
	width, height := 0, 0
	for _, l := range lines {
		_, w, _ := measure(l.face, l.text)
		width = max(width, w)
		height += l.face.Metrics().Height.Ceil() + gap
	}
	height -= gap

	c := image.Pt((b.Min.X+b.Max.X)/2, (b.Min.Y+b.Max.Y)/2)
	box := image.Rect(c.X-width/2-pad, c.Y-height/2-pad, c.X+width/2+pad, c.Y+height/2+pad)
	draw.Draw(t.Dst, box, image.NewUniform(bannerColor), image.Point{}, draw.Over)

	y := box.Min.Y + pad
	for _, l := range lines {
		m := l.face.Metrics()
		_, w, _ := measure(l.face, l.text)
		d := &font.Drawer{
			Dst:  t.Dst,
			Src:  image.White,
			Face: l.face,
			Dot:  fixed.P(c.X-w/2, y+m.Ascent.Ceil()),
		}
		d.DrawString(l.text)
		y += m.Height.Ceil() + gap
	}
	return nil
}
