//go:build windows

package tray

func wrapIcon(pngData []byte, w, h int) ([]byte, error) {
	return pngToICO(pngData, w, h)
}
