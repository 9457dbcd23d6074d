package synfit

import (
	"math"

	"github.com/specialistvlad/synfitgo/internal/sampler"
)

// Row is one grid point and its score.
type Row struct {
	Values []float64
	// Abund is the encoded abundance string sent to the synthesis program
	// for this point, or "" when no abundance was set.
	Abund     string
	ChiSquare float64
}

// Table holds one row per grid point, in grid order.
type Table struct {
	RunID string
	Names []string
	Rows  []Row
}

// NewTable creates a table for grid with every chi-square set to NaN.
func NewTable(runID string, grid *sampler.Grid) *Table {
	t := &Table{RunID: runID, Names: grid.Names, Rows: make([]Row, grid.Len())}
	for i, p := range grid.Points {
		t.Rows[i] = Row{Values: p, ChiSquare: math.NaN()}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Value returns the value of the named column in row i.
func (t *Table) Value(i int, name string) (float64, bool) {
	for j, n := range t.Names {
		if n == name {
			return t.Rows[i].Values[j], true
		}
	}
	return 0, false
}
