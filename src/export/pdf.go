package export

import (
	"fmt"
	"image"
	"log"
	"math"

	"github.com/jung-kurt/gofpdf"

	"screen-label-overlay/src/canvas"
	"screen-label-overlay/src/numbering"
	"screen-label-overlay/src/profile"
)

const (
	pageMargin  = 10.0
	headerSpace = 14.0
	tableWidth  = 50.0
	dotRadius   = 2.2
)

// WritePDF writes an A4 landscape sheet showing the display layout scaled to
// fit, every labelled point on it, and a coordinate table.
func WritePDF(path string, c *canvas.Canvas, p profile.Profile) error {
	rect := c.BoundingRect()
	if rect.Empty() {
		return canvas.ErrNoDisplays
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Label layout: "+p.Name, true)
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(pageMargin, pageMargin)
	pdf.CellFormat(0, 8, fmt.Sprintf("Profile: %s", p.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("%d point(s), canvas %dx%d at (%d,%d), label %s %dpt",
		len(p.Coordinates), rect.Dx(), rect.Dy(), rect.Min.X, rect.Min.Y, p.Style.Family, p.Style.Size), "", 1, "L", false, 0, "")

	areaX, areaY := pageMargin, pageMargin+headerSpace
	areaW := pageW - 2*pageMargin - tableWidth - pageMargin
	areaH := pageH - areaY - pageMargin
	scale := math.Min(areaW/float64(rect.Dx()), areaH/float64(rect.Dy()))
	toPage := func(pt image.Point) (float64, float64) {
		return areaX + float64(pt.X-rect.Min.X)*scale, areaY + float64(pt.Y-rect.Min.Y)*scale
	}

	pdf.SetLineWidth(0.4)
	pdf.SetDrawColor(80, 80, 80)
	pdf.SetFillColor(235, 235, 235)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(120, 120, 120)
	for _, d := range c.Displays() {
		x, y := toPage(d.Bounds.Min)
		w, h := float64(d.Bounds.Dx())*scale, float64(d.Bounds.Dy())*scale
		pdf.Rect(x, y, w, h, "FD")
		pdf.Text(x+1.5, y+4, fmt.Sprintf("Display %d  %dx%d", d.ID, d.Bounds.Dx(), d.Bounds.Dy()))
	}

	fill, outline := p.Style.Color, p.Style.OutlineColor
	pdf.SetFont("Helvetica", "B", 9)
	for i, pt := range p.Coordinates {
		label, ok := numbering.Label(i + 1)
		if !ok {
			break
		}
		x, y := toPage(pt.Image())
		pdf.SetFillColor(int(fill[0]), int(fill[1]), int(fill[2]))
		pdf.SetDrawColor(int(outline[0]), int(outline[1]), int(outline[2]))
		pdf.Circle(x, y, dotRadius, "FD")
		pdf.SetTextColor(0, 0, 0)
		pdf.Text(x+dotRadius+0.8, y-dotRadius, label)
	}

	writeTable(pdf, pageW-pageMargin-tableWidth, areaY, p.Coordinates)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.Printf("export: wrote layout sheet %s for profile %q", path, p.Name)
	return nil
}

func writeTable(pdf *gofpdf.Fpdf, x, y float64, coords []canvas.Point) {
	const rowH = 6.0
	pdf.SetTextColor(0, 0, 0)
	pdf.SetDrawColor(160, 160, 160)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetXY(x, y)
	pdf.SetFillColor(220, 220, 220)
	pdf.CellFormat(12, rowH, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(tableWidth-12, rowH, "x, y", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for i, pt := range coords {
		label, ok := numbering.Label(i + 1)
		if !ok {
			break
		}
		pdf.SetX(x)
		pdf.CellFormat(12, rowH, label, "1", 0, "C", false, 0, "")
		pdf.CellFormat(tableWidth-12, rowH, fmt.Sprintf("%d, %d", pt.X, pt.Y), "1", 1, "R", false, 0, "")
	}
	if len(coords) == 0 {
		pdf.SetX(x)
		pdf.CellFormat(tableWidth, rowH, "no points recorded", "1", 1, "C", false, 0, "")
	}
}
