package sampler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrid_SizeIsProductOfDimensions(t *testing.T) {
	g := NewGrid([]Dimension{
		{Name: "a", Values: []float64{1, 2, 3}},
		{Name: "b", Values: []float64{10, 20, 30, 40}},
	})
	assert.Equal(t, 12, g.Len())
}

func TestNewGrid_FirstDimensionSlowest(t *testing.T) {
	g := NewGrid([]Dimension{
		{Name: "a", Values: []float64{0, 5}},
		{Name: "b", Values: []float64{20, 17}},
	})

	want := [][]float64{{0, 20}, {0, 17}, {5, 20}, {5, 17}}
	if diff := cmp.Diff(want, g.Points); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"a", "b"}, g.Names)
}

func TestNewGrid_SingleDimension(t *testing.T) {
	g := NewGrid([]Dimension{{Name: "vrot", Values: []float64{0, 2, 4, 6, 8}}})
	require.Equal(t, 5, g.Len())
	for i, p := range g.Points {
		assert.Equal(t, []float64{float64(2 * i)}, p)
	}
}

func TestNewGrid_Empty(t *testing.T) {
	g := NewGrid(nil)
	assert.Equal(t, 0, g.Len())
}

func TestGrid_Value(t *testing.T) {
	g := NewGrid([]Dimension{
		{Name: "vrot", Values: []float64{10, 12}},
		{Name: "teff", Values: []float64{19000, 20000}},
	})

	v, ok := g.Value(3, "teff")
	require.True(t, ok)
	assert.Equal(t, 20000.0, v)

	_, ok = g.Value(0, "logg")
	assert.False(t, ok)
}
