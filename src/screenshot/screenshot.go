package screenshot

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"screen-label-overlay/src/canvas"
)

// Displays enumerates the active displays in virtual-screen coordinates.
func Displays() ([]canvas.Display, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, canvas.ErrNoDisplays
	}
	displays := make([]canvas.Display, 0, n)
	for i := 0; i < n; i++ {
		displays = append(displays, canvas.Display{ID: i, Bounds: screenshot.GetDisplayBounds(i)})
	}
	return displays, nil
}

// Source adapts Displays to canvas.Source.
var Source = canvas.SourceFunc(Displays)

// Capture grabs rect from the screen.
func Capture(rect image.Rectangle) (*image.RGBA, error) {
	if rect.Empty() {
		return nil, fmt.Errorf("invalid capture rectangle %v", rect)
	}
	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("failed to capture %v: %w", rect, err)
	}
	return img, nil
}
