package synfit

import "github.com/specialistvlad/synfitgo/internal/elements"

// Named is a parameter value that is handed to the synthesis program as is.
type Named struct {
	Name  string
	Value float64
}

// Partition splits one grid point by how its values reach the synthesis
// program.
type Partition struct {
	// Known holds teff and logg when they are swept.
	Known map[string]float64
	// Abundance holds swept chemical elements by symbol or atomic number,
	// as they were named in the fit.
	Abundance map[string]float64
	// Passthrough holds everything else in grid order.
	Passthrough []Named
}

// Partitions groups point, whose values[i] belongs to names[i]. The inputs are
// not modified.
func Partitions(names []string, values []float64, table *elements.Table) Partition {
	p := Partition{Known: map[string]float64{}, Abundance: map[string]float64{}}
	for i, name := range names {
		v := values[i]
		switch {
		case name == "teff" || name == "logg":
			p.Known[name] = v
		case table.IsElement(name):
			p.Abundance[name] = v
		default:
			p.Passthrough = append(p.Passthrough, Named{Name: name, Value: v})
		}
	}
	return p
}
