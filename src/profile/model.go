// Package profile holds named label layouts (style + coordinates) and their
// persisted document.
package profile

import (
	"fmt"

	"screen-label-overlay/src/canvas"
	"screen-label-overlay/src/numbering"
)

const (
	MinFontSize     = 8
	MaxFontSize     = 72
	MinOutlineWidth = 0
	MaxOutlineWidth = 20

	DefaultName = "Default"
)

// RGB is an opaque colour, persisted as [r, g, b].
type RGB [3]uint8

func (c RGB) String() string { return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]) }

// Style describes how labels are drawn.
type Style struct {
	Family       string `json:"family"`
	Size         int    `json:"size"`
	Color        RGB    `json:"color"`
	OutlineColor RGB    `json:"outlineColor"`
	OutlineWidth int    `json:"outlineWidth"`
}

// DefaultStyle returns bright yellow 30pt labels with a 4px black outline.
func DefaultStyle() Style {
	return Style{
		Family:       "Arial",
		Size:         30,
		Color:        RGB{255, 255, 0},
		OutlineColor: RGB{0, 0, 0},
		OutlineWidth: 4,
	}
}

// Clamp returns s with size and outline width forced into their bounds.
func (s Style) Clamp() Style {
	s.Size = clampInt(s.Size, MinFontSize, MaxFontSize)
	s.OutlineWidth = clampInt(s.OutlineWidth, MinOutlineWidth, MaxOutlineWidth)
	if s.Family == "" {
		s.Family = DefaultStyle().Family
	}
	return s
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Profile is one named layout.
type Profile struct {
	Name        string
	Style       Style
	Coordinates []canvas.Point
}

func newProfile(name string) *Profile {
	return &Profile{Name: name, Style: DefaultStyle()}
}

// SetCoordinates replaces the coordinate list, keeping at most
// numbering.MaxPoints entries.
func (p *Profile) SetCoordinates(points []canvas.Point) {
	if len(points) > numbering.MaxPoints {
		points = points[:numbering.MaxPoints]
	}
	p.Coordinates = append([]canvas.Point(nil), points...)
}

// AdjustFontSize moves the size by delta and clamps it. It reports whether
// the size changed.
func (p *Profile) AdjustFontSize(delta int) (int, bool) {
	before := p.Style.Size
	p.Style.Size = clampInt(before+delta, MinFontSize, MaxFontSize)
	return p.Style.Size, p.Style.Size != before
}

// Clone returns a deep copy.
func (p *Profile) Clone() Profile {
	c := *p
	c.Coordinates = append([]canvas.Point(nil), p.Coordinates...)
	return c
}
