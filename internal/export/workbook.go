// Package export writes fit results to an Excel workbook: every grid point
// with its chi-square on one sheet, the best fit on another.
package export

import (
	"fmt"

	"github.com/specialistvlad/synfitgo/internal/scoring"
	"github.com/specialistvlad/synfitgo/internal/synfit"
	"github.com/xuri/excelize/v2"
)

const (
	ResultsSheet = "Results"
	BestSheet    = "Best fit"
)

// Workbook builds the results workbook. best may be nil when the fit did not
// finish; the best-fit sheet is then omitted.
func Workbook(t *synfit.Table, best *synfit.BestFit) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	bestStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#C6F6D5"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	header := make([]any, 0, len(t.Names)+2)
	for _, n := range t.Names {
		header = append(header, n)
	}
	header = append(header, "abund", "chisquare")
	if err := f.SetSheetRow(ResultsSheet, "A1", &header); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(ResultsSheet, 1, 1, headerStyle); err != nil {
		return nil, err
	}

	for i, r := range t.Rows {
		row := make([]any, 0, len(header))
		for _, v := range r.Values {
			row = append(row, v)
		}
		row = append(row, r.Abund)
		if scoring.IsFinite(r.ChiSquare) {
			row = append(row, r.ChiSquare)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(ResultsSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if best != nil && best.Index < t.Len() {
		if err := f.SetRowStyle(ResultsSheet, best.Index+2, best.Index+2, bestStyle); err != nil {
			return nil, err
		}
	}
	if err := f.SetPanes(ResultsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}

	if best == nil {
		return f, nil
	}
	if _, err := f.NewSheet(BestSheet); err != nil {
		return nil, err
	}
	data := [][]any{{"parameter", "value"}}
	for _, n := range best.Names {
		data = append(data, []any{n, best.Values[n]})
	}
	data = append(data, []any{"chisquare", best.ChiSquare}, []any{"run", t.RunID})
	for i, row := range data {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(BestSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetRowStyle(BestSheet, 1, 1, headerStyle); err != nil {
		return nil, err
	}
	f.SetColWidth(BestSheet, "A", "A", 20)
	return f, nil
}

// Save writes the workbook to path.
func Save(path string, t *synfit.Table, best *synfit.BestFit) error {
	f, err := Workbook(t, best)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}
