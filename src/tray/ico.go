package tray

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// pngToICO wraps a PNG in a single-image ICO container, which Windows
// accepts for sizes up to 256.
func pngToICO(pngData []byte, w, h int) ([]byte, error) {
	if w <= 0 || h <= 0 || w > 256 || h > 256 {
		return nil, fmt.Errorf("icon size %dx%d out of range", w, h)
	}
	var buf bytes.Buffer
	header := struct {
		Reserved, Type, Count uint16
	}{0, 1, 1}
	entry := struct {
		Width, Height, Colors, Reserved uint8
		Planes, BitCount                uint16
		Size, Offset                    uint32
	}{
		Width:    uint8(w % 256),
		Height:   uint8(h % 256),
		Planes:   1,
		BitCount: 32,
		Size:     uint32(len(pngData)),
		Offset:   6 + 16,
	}
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, entry); err != nil {
		return nil, err
	}
	buf.Write(pngData)
	return buf.Bytes(), nil
}
