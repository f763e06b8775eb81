// Package canvas models the virtual desktop: the union of every attached
// display expressed in one shared coordinate space.
package canvas

import (
	"errors"
	"fmt"
	"image"
	"log"
)

// Point is a position in the shared virtual-canvas space. Coordinates may be
// negative when a display sits left of or above the primary one.
type Point struct {
	X int
	Y int
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point { return Point{X: x, Y: y} }

// Image converts p to an image.Point.
func (p Point) Image() image.Point { return image.Pt(p.X, p.Y) }

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Display is one physical monitor. Bounds are in shared space.
type Display struct {
	ID     int
	Bounds image.Rectangle
}

// ToLocal converts a shared-space point to this display's drawing space.
func (d Display) ToLocal(p Point) Point {
	return Point{X: p.X - d.Bounds.Min.X, Y: p.Y - d.Bounds.Min.Y}
}

// ToGlobal converts a display-local point to shared space.
func (d Display) ToGlobal(p Point) Point {
	return Point{X: p.X + d.Bounds.Min.X, Y: p.Y + d.Bounds.Min.Y}
}

// Source enumerates the currently attached displays.
type Source interface {
	Displays() ([]Display, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() ([]Display, error)

func (f SourceFunc) Displays() ([]Display, error) { return f() }

var ErrNoDisplays = errors.New("no active displays found")

// Canvas holds the last known display topology.
type Canvas struct {
	displays []Display
	bounds   image.Rectangle
}

// New builds a canvas from a fixed display list.
func New(displays ...Display) *Canvas {
	c := &Canvas{}
	c.set(displays)
	return c
}

func (c *Canvas) set(displays []Display) {
	c.displays = append([]Display(nil), displays...)
	c.bounds = image.Rectangle{}
	for i, d := range c.displays {
		if i == 0 {
			c.bounds = d.Bounds
			continue
		}
		c.bounds = c.bounds.Union(d.Bounds)
	}
}

// Refresh re-reads the topology from src. When src fails or reports no
// displays the previous topology is kept and the error returned.
func (c *Canvas) Refresh(src Source) error {
	displays, err := src.Displays()
	if err != nil {
		return fmt.Errorf("query displays: %w", err)
	}
	if len(displays) == 0 {
		return ErrNoDisplays
	}
	c.set(displays)
	log.Printf("canvas: %d display(s), bounds %v", len(c.displays), c.bounds)
	return nil
}

// Changed reports whether displays differs from the current topology.
func (c *Canvas) Changed(displays []Display) bool {
	if len(displays) != len(c.displays) {
		return true
	}
	for i := range displays {
		if displays[i] != c.displays[i] {
			return true
		}
	}
	return false
}

// BoundingRect returns the union of every display's bounds.
func (c *Canvas) BoundingRect() image.Rectangle { return c.bounds }

// Displays returns a copy of the display list.
func (c *Canvas) Displays() []Display { return append([]Display(nil), c.displays...) }

// Display looks up a display by id.
func (c *Canvas) Display(id int) (Display, bool) {
	for _, d := range c.displays {
		if d.ID == id {
			return d, true
		}
	}
	return Display{}, false
}

// DisplayAt returns the display containing p.
func (c *Canvas) DisplayAt(p Point) (Display, bool) {
	ip := p.Image()
	for _, d := range c.displays {
		if ip.In(d.Bounds) {
			return d, true
		}
	}
	return Display{}, false
}

// ToLocal converts p from shared space into display id's space. Unknown ids
// leave p unchanged.
func (c *Canvas) ToLocal(id int, p Point) Point {
	if d, ok := c.Display(id); ok {
		return d.ToLocal(p)
	}
	return p
}

// ToGlobal converts p from display id's space into shared space. Unknown ids
// leave p unchanged.
func (c *Canvas) ToGlobal(id int, p Point) Point {
	if d, ok := c.Display(id); ok {
		return d.ToGlobal(p)
	}
	return p
}
