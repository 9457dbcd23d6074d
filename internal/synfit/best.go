package synfit

import (
	"fmt"
	"math"
	"strings"

	"github.com/specialistvlad/synfitgo/internal/elements"
	"github.com/specialistvlad/synfitgo/internal/scoring"
)

// BestFit is the winning grid point.
type BestFit struct {
	// Index is the row of the best fit in the table.
	Index     int
	Names     []string
	Values    map[string]float64
	ChiSquare float64
}

// String renders the best fit as "name=value, ..., chisq=x" in grid order.
func (b *BestFit) String() string {
	parts := make([]string, 0, len(b.Names)+1)
	for _, n := range b.Names {
		parts = append(parts, fmt.Sprintf("%s=%g", n, b.Values[n]))
	}
	parts = append(parts, fmt.Sprintf("chisq=%g", b.ChiSquare))
	return strings.Join(parts, ", ")
}

// SelectBest returns the row with the smallest finite chi-square; the first
// one wins a tie. Swept chemical elements are reported as decoded from the
// row's abundance string, which is the exact value the synthesis program
// received.
func SelectBest(t *Table, codec *elements.Codec) (*BestFit, error) {
	if t.Len() == 0 {
		return nil, ErrEmptyGrid
	}

	best := -1
	for i, r := range t.Rows {
		if !scoring.IsFinite(r.ChiSquare) {
			continue
		}
		if best < 0 || r.ChiSquare < t.Rows[best].ChiSquare {
			best = i
		}
	}
	if best < 0 {
		return nil, ErrNoFiniteFit
	}

	row := t.Rows[best]
	fit := &BestFit{
		Index:     best,
		Names:     make([]string, len(t.Names)),
		Values:    make(map[string]float64, len(t.Names)),
		ChiSquare: row.ChiSquare,
	}

	// Element columns are reported under their symbol, whichever identifier
	// the fit file used.
	var elems []string
	for i, n := range t.Names {
		key := n
		if codec.Table().IsElement(n) {
			el, err := codec.Table().Lookup(n)
			if err != nil {
				return nil, err
			}
			key = el.Symbol
			elems = append(elems, n)
		}
		fit.Names[i] = key
		fit.Values[key] = row.Values[i]
	}
	if len(elems) > 0 && row.Abund != "" {
		decoded, err := codec.Decode(row.Abund, elems...)
		if err != nil {
			return nil, fmt.Errorf("failed to decode abundances of row %d: %w", best, err)
		}
		for sym, v := range decoded {
			if !math.IsNaN(v) {
				fit.Values[sym] = v
			}
		}
	}
	return fit, nil
}
