package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/synfitgo/internal/cli"
	"github.com/specialistvlad/synfitgo/internal/sampler"
	"github.com/specialistvlad/synfitgo/internal/synfit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_InvalidFitFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fit.hcl")
	require.NoError(t, os.WriteFile(path, []byte("fit {\n  vrot = [10, 20\n"), 0o600))

	err := run(context.Background(), &bytes.Buffer{}, []string{path})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load fit")
}

func TestRun_NonNumericRangeIsUsageError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fit.hcl")
	fit := "fit {\n  vrot = [\"a\", 20, 2]\n}\nsynthesis {\n  teff = 1\n  logg = 1\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(fit), 0o600))

	err := run(context.Background(), &bytes.Buffer{}, []string{path})

	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr), "got %v", err)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, `"vrot"`)
}

func TestRun_MissingObservation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fit := `
fit {
  vrot = [10, 20, 2]
}
synthesis {
  teff         = 20000
  logg         = 4
  observ       = "absent.dat"
  windows      = [[4465, 4475]]
  synplot_path = "."
}
`
	path := filepath.Join(dir, "fit.hcl")
	require.NoError(t, os.WriteFile(path, []byte(fit), 0o600))
	defaults := filepath.Join(dir, "defaults.toml")
	require.NoError(t, os.WriteFile(defaults, []byte(`software = "gdl"`), 0o600))

	err := run(context.Background(), &bytes.Buffer{}, []string{"--defaults", defaults, path})

	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr), "got %v", err)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "absent.dat")
}

func TestExitError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("sampling: %w", synfit.ErrEmptyGrid), 2},
		{&synfit.MissingObservationError{Path: "x.dat"}, 2},
		{&sampler.ValidationError{Param: "vrot", Reason: "step must be positive"}, 2},
	}
	for _, tc := range testCases {
		var exitErr *cli.ExitError
		require.True(t, errors.As(exitError(tc.err), &exitErr), "%v", tc.err)
		assert.Equal(t, tc.code, exitErr.Code)
	}

	for _, plain := range []error{errors.New("boom"), synfit.ErrNoFiniteFit} {
		assert.Same(t, plain, exitError(plain))
	}
}
