package export

import "fmt"

// Grid is a timetable laid out as periods (rows) by days (columns).
// Cells[r][c] holds the text for RowLabels[r] on Columns[c]; a cell may contain newlines.
type Grid struct {
	Title     string
	Subtitle  string
	Corner    string
	Columns   []string
	RowLabels []string
	Cells     [][]string
}

func (g Grid) validate() error {
	if len(g.Columns) == 0 {
		return fmt.Errorf("grid requires at least one column")
	}
	if len(g.Cells) != len(g.RowLabels) {
		return fmt.Errorf("grid has %d rows but %d row labels", len(g.Cells), len(g.RowLabels))
	}
	for i, row := range g.Cells {
		if len(row) != len(g.Columns) {
			return fmt.Errorf("grid row %d has %d cells, want %d", i, len(row), len(g.Columns))
		}
	}
	return nil
}

func (g Grid) corner() string {
	if g.Corner == "" {
		return "Period"
	}
	return g.Corner
}
