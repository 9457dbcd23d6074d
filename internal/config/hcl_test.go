package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/synfitgo/internal/sampler"
	"github.com/specialistvlad/synfitgo/internal/scoring"
	"github.com/specialistvlad/synfitgo/internal/synthesis"
	"github.com/specialistvlad/synfitgo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHCLLoader_Load(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"fit.hcl": `
fit {
  vrot = [10, 20, 2]
  He   = [10.89, 10.95, 0.02]
  logg = [3.5, 4.5, 0.5]
}

synthesis {
  teff    = 20000
  observ  = "obs/star.dat"
  windows = [[4465, 4475], [4480, 4490]]
  rv      = 50
  scale   = 1.02
  abund   = { S = 7.12, "7" = 7.83 }
  relative = true
  extra   = { wstart = 4460, wend = 4480 }
  linlist = "lines.dat"
  idl     = false
}
`})

	fit, err := NewHCLLoader().Load(context.Background(), filepath.Join(dir, "fit.hcl"))
	require.NoError(t, err)

	wantSpec := FitSpecification{
		{Name: "vrot", Bounds: []float64{10, 20, 2}},
		{Name: "He", Bounds: []float64{10.89, 10.95, 0.02}},
		{Name: "logg", Bounds: []float64{3.5, 4.5, 0.5}},
	}
	if diff := cmp.Diff(wantSpec, fit.Spec); diff != "" {
		t.Errorf("spec mismatch (-want +got):\n%s", diff)
	}

	syn := fit.Synthesis
	require.NotNil(t, syn.Teff)
	assert.Equal(t, 20000.0, *syn.Teff)
	assert.Nil(t, syn.Logg)
	assert.Equal(t, filepath.Join(dir, "obs", "star.dat"), syn.Observ)
	assert.Equal(t, []scoring.Window{{Lo: 4465, Hi: 4475}, {Lo: 4480, Hi: 4490}}, syn.Windows)
	assert.Equal(t, 50.0, syn.RV)
	assert.Equal(t, 1.02, syn.Scale)
	assert.Equal(t, map[string]float64{"S": 7.12, "7": 7.83}, syn.Abund)
	assert.Equal(t, "gdl", syn.Software)

	wantExtra := []synthesis.Param{
		{Key: "relative", Value: "1"},
		{Key: "wend", Value: "4480"},
		{Key: "wstart", Value: "4460"},
		{Key: "linlist", Value: "lines.dat"},
	}
	if diff := cmp.Diff(wantExtra, syn.Extra); diff != "" {
		t.Errorf("extra mismatch (-want +got):\n%s", diff)
	}
}

func TestHCLLoader_Directory(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"a_fit.hcl":       "fit {\n  vrot = [10, 20, 2]\n}\n",
		"b_synthesis.hcl": "synthesis {\n  teff = 20000\n  logg = 4\n  observ = \"/data/star.dat\"\n  windows = [4465, 4475]\n  abund = \"[2, 2, 10.93]\"\n}\n",
		"notes.txt":       "ignored",
	})

	fit, err := NewHCLLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, fit.Sources, 2)
	assert.Equal(t, []string{"vrot"}, fit.Spec.Names())
	assert.Equal(t, "/data/star.dat", fit.Synthesis.Observ)
	assert.Equal(t, []scoring.Window{{Lo: 4465, Hi: 4475}}, fit.Synthesis.Windows)
	assert.Equal(t, "[2, 2, 10.93]", fit.Synthesis.AbundText)
}

func TestHCLLoader_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "no fit block",
			content: "synthesis {\n  teff = 1\n  logg = 1\n}\n",
			wantErr: "no fit block found",
		},
		{
			name:    "no synthesis block",
			content: "fit {\n  vrot = [1, 2, 1]\n}\n",
			wantErr: "no synthesis block found",
		},
		{
			name:    "two fit blocks",
			content: "fit {\n}\nfit {\n}\nsynthesis {\n}\n",
			wantErr: "only one fit block is allowed",
		},
		{
			name:    "range is not a list",
			content: "fit {\n  vrot = \"fast\"\n}\nsynthesis {\n  teff = 1\n  logg = 1\n}\n",
			wantErr: `fit parameter "vrot"`,
		},
		{
			name:    "teff missing",
			content: "fit {\n  vrot = [1, 2, 1]\n}\nsynthesis {\n  logg = 4\n}\n",
			wantErr: "teff must be set",
		},
		{
			name:    "empty window",
			content: "fit {\n  teff = [1, 2, 1]\n}\nsynthesis {\n  logg = 4\n  windows = [4475, 4465]\n}\n",
			wantErr: "window [4475, 4465] is empty",
		},
		{
			name:    "bad window arity",
			content: "fit {\n  teff = [1, 2, 1]\n}\nsynthesis {\n  logg = 4\n  windows = [[1, 2, 3]]\n}\n",
			wantErr: "window needs 2 values",
		},
		{
			name:    "syntax error",
			content: "fit {\n  vrot = [1, 2\n",
			wantErr: "failed to parse fit file",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := testutil.WriteFiles(t, map[string]string{"fit.hcl": tc.content})
			_, err := NewHCLLoader().Load(context.Background(), dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestHCLLoader_NonNumericRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
	}{
		{"string bound", `["a", 20, 2]`},
		{"scalar", `16`},
		{"word", `"fast"`},
		{"unknown variable", `[min, 20, 2]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := testutil.WriteFiles(t, map[string]string{
				"fit.hcl": "fit {\n  vrot = " + tc.value + "\n}\nsynthesis {\n  teff = 1\n  logg = 1\n}\n",
			})
			_, err := NewHCLLoader().Load(context.Background(), dir)
			var verr *sampler.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "vrot", verr.Param)
		})
	}
}

func TestHCLLoader_MissingPath(t *testing.T) {
	_, err := NewHCLLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.hcl"))
	assert.ErrorContains(t, err, "error accessing path")
}
