package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth   = 277.0 // A4 landscape minus margins
	labelWidth  = 30.0
	lineHeight  = 5.0
	headerSize  = 8.0
	minRowLines = 2
)

// PDFExporter renders timetable grids into a landscape PDF table.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates one page per grid with a title block and a bordered period × day table.
func (e *PDFExporter) Render(grid Grid) ([]byte, error) {
	if err := grid.validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if grid.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 8, tr(grid.Title), "", 1, "C", false, 0, "")
	}
	if grid.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(grid.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	colWidth := (pageWidth - labelWidth) / float64(len(grid.Columns))

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(labelWidth, headerSize, tr(grid.corner()), "1", 0, "C", true, 0, "")
	for _, col := range grid.Columns {
		pdf.CellFormat(colWidth, headerSize, tr(col), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for r, row := range grid.Cells {
		lines := minRowLines
		for _, cell := range row {
			if n := len(strings.Split(cell, "\n")); n > lines {
				lines = n
			}
		}
		height := float64(lines) * lineHeight
		if pdf.GetY()+height > 200 {
			pdf.AddPage()
		}

		x, y := pdf.GetXY()
		pdf.Rect(x, y, labelWidth, height, "D")
		pdf.MultiCell(labelWidth, lineHeight, tr(grid.RowLabels[r]), "", "C", false)
		x += labelWidth
		for _, cell := range row {
			pdf.SetXY(x, y)
			pdf.Rect(x, y, colWidth, height, "D")
			pdf.MultiCell(colWidth, lineHeight, tr(cell), "", "C", false)
			x += colWidth
		}
		pdf.SetXY(10, y+height)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
