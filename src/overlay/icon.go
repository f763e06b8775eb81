package overlay

import (
	"image"
	"image/color"

	"screen-label-overlay/src/profile"
)

// Icon renders the application icon: a yellow disc carrying an outlined "N"
// drawn with the label routine.
func (r *Renderer) Icon(size int) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	c := float64(size-1) / 2
	rad := float64(size) / 2
	fill := color.RGBA{R: 0xff, G: 0xd7, A: 0xff}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)-c, float64(y)-c
			if dx*dx+dy*dy <= rad*rad {
				img.SetRGBA(x, y, fill)
			}
		}
	}

	style := profile.Style{
		Family:       fallbackFamily,
		Size:         max(profile.MinFontSize, size*9/16),
		Color:        profile.RGB{0x20, 0x20, 0x20},
		OutlineColor: profile.RGB{0xff, 0xff, 0xff},
		OutlineWidth: 1,
	}
	defer r.fonts.lockDrawing()()
	face, err := r.fonts.Face(style.Family, style.Size)
	if err != nil {
		return nil, err
	}
	drawLabel(img, face, "N", image.Pt(size/2, size/2), style, 1)
	return img, nil
}
