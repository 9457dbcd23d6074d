package sampler

// Grid is the Cartesian product of all fit dimensions. Points[i][j] is the
// value of Names[j] at grid point i.
type Grid struct {
	Names  []string
	Points [][]float64
}

// NewGrid builds the Cartesian product of dims, first dimension slowest.
// No dimensions produce an empty grid.
func NewGrid(dims []Dimension) *Grid {
	g := &Grid{Names: make([]string, len(dims))}
	if len(dims) == 0 {
		return g
	}

	total := 1
	for i, d := range dims {
		g.Names[i] = d.Name
		total *= len(d.Values)
	}

	g.Points = make([][]float64, 0, total)
	idx := make([]int, len(dims))
	for n := 0; n < total; n++ {
		point := make([]float64, len(dims))
		for j, d := range dims {
			point[j] = d.Values[idx[j]]
		}
		g.Points = append(g.Points, point)

		// odometer increment, last dimension fastest
		for j := len(dims) - 1; j >= 0; j-- {
			idx[j]++
			if idx[j] < len(dims[j].Values) {
				break
			}
			idx[j] = 0
		}
	}
	return g
}

// Len returns the number of grid points.
func (g *Grid) Len() int { return len(g.Points) }

// Index returns the column of name, or -1.
func (g *Grid) Index(name string) int {
	for i, n := range g.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Value returns the value of name at point i.
func (g *Grid) Value(i int, name string) (float64, bool) {
	j := g.Index(name)
	if j < 0 {
		return 0, false
	}
	return g.Points[i][j], true
}
