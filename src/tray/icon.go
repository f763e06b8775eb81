package tray

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// EncodeIcon converts img to the byte format systray expects on this
// platform.
func EncodeIcon(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode icon: %w", err)
	}
	return wrapIcon(buf.Bytes(), img.Bounds().Dx(), img.Bounds().Dy())
}
