package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// CSVExporter renders timetable grids into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render writes one header line (corner + columns) and one line per grid row.
// Multi-line cells are joined with " / " so spreadsheets keep one row per period.
func (e *CSVExporter) Render(grid Grid) ([]byte, error) {
	if err := grid.validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	header := append([]string{grid.corner()}, grid.Columns...)
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for i, row := range grid.Cells {
		record := make([]string, 0, len(row)+1)
		record = append(record, grid.RowLabels[i])
		for _, cell := range row {
			record = append(record, strings.ReplaceAll(cell, "\n", " / "))
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
