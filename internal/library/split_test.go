package library

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	testCases := []struct {
		name  string
		names []string
		want  RotationalSplit
	}{
		{name: "only convolution", names: []string{"vrot"}, want: RotationalSplit{Convolution: []string{"vrot"}}},
		{name: "mixed keeps order", names: []string{"He", "vmac_rt", "teff", "vrot"}, want: RotationalSplit{
			Convolution: []string{"vmac_rt", "vrot"},
			Synthesis:   []string{"He", "teff"},
		}},
		{name: "no convolution", names: []string{"logg"}, want: RotationalSplit{Synthesis: []string{"logg"}}},
		{name: "empty", names: nil, want: RotationalSplit{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Split(tc.names)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Split() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	assert.True(t, Split([]string{"vrot", "He"}).Enabled())
	assert.False(t, Split([]string{"He"}).Enabled())
}

func TestKey(t *testing.T) {
	assert.Equal(t, BaselineKey, Key(nil, nil))
	assert.Equal(t, BaselineKey, Split([]string{"vrot"}).Key(nil))

	a := Key([]string{"He"}, []float64{10.93})
	assert.Len(t, a, 64)
	assert.Equal(t, a, Key([]string{"He"}, []float64{10.93}), "keys are stable")
	assert.NotEqual(t, a, Key([]string{"He"}, []float64{10.95}))
	assert.NotEqual(t, a, Key([]string{"S"}, []float64{10.93}))
	assert.NotEqual(t,
		Key([]string{"He", "S"}, []float64{1, 2}),
		Key([]string{"He", "S"}, []float64{2, 1}),
	)
}
