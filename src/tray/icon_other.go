//go:build !windows

package tray

func wrapIcon(pngData []byte, _, _ int) ([]byte, error) {
	return pngData, nil
}
