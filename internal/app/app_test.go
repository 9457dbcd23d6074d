package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/synfitgo/internal/config"
	"github.com/specialistvlad/synfitgo/internal/resultstore"
	"github.com/specialistvlad/synfitgo/internal/spectrum"
	"github.com/specialistvlad/synfitgo/internal/synthesis"
	"github.com/specialistvlad/synfitgo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const fitHCL = `
fit {
  vrot = [10, 20, 2]
}

synthesis {
  teff    = 20000
  logg    = 4
  observ  = "obs.dat"
  windows = [[4465, 4478]]
  %s
}
`

// writeFit writes a fit file whose observed spectrum is the line model at
// vrot = 16. synthesisExtra is spliced into the synthesis block.
func writeFit(t *testing.T, synthesisExtra string) string {
	t.Helper()
	dir := testutil.WriteFiles(t, map[string]string{
		"fit.hcl": fmt.Sprintf(fitHCL, synthesisExtra),
	})
	m := testutil.DefaultLineModel()
	m.Vrot = 16
	testutil.WriteSpectrum(t, dir, "obs.dat", m.Spectrum())
	return filepath.Join(dir, "fit.hcl")
}

type harness struct {
	app  *App
	logs *testutil.SafeBuffer
	fake *testutil.FakeInvoker
	// synthesis is the configuration the invoker was built with.
	synthesis synthesis.Config
}

func setupAppTest(t *testing.T, cfg Config) *harness {
	t.Helper()
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	h := &harness{logs: &testutil.SafeBuffer{}, fake: testutil.NewFakeInvoker()}
	testutil.DumpLogsOnDemand(t, h.logs)

	h.app = NewApp(h.logs, &cfg, config.NewHCLLoader(), WithInvokerFactory(func(c synthesis.Config) (synthesis.Invoker, error) {
		h.synthesis = c
		return h.fake, nil
	}))
	return h
}

func TestRun_EndToEnd(t *testing.T) {
	out := t.TempDir()
	h := setupAppTest(t, Config{
		FitPath:          writeFit(t, `synplot_path = "."`),
		ResultsDB:        filepath.Join(out, "results.db"),
		XLSXPath:         filepath.Join(out, "results.xlsx"),
		BestSpectrumPath: filepath.Join(out, "best.dat"),
	})

	best, err := h.app.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16.0, best.Values["vrot"])
	assert.InDelta(t, 0, best.ChiSquare, 1e-12)
	assert.EqualValues(t, 2, h.fake.Syntheses(), "baseline plus best-fit re-synthesis")

	view := h.app.status.view()
	assert.Equal(t, "best_fit_selected", view.State)
	assert.Equal(t, 6, view.Done)
	assert.Equal(t, 6, view.Total)
	require.NotNil(t, view.Best)
	assert.Equal(t, 16.0, view.Best.Values["vrot"])

	store, err := resultstore.Open(filepath.Join(out, "results.db"))
	require.NoError(t, err)
	defer store.Close()
	run, err := store.GetRun(context.Background(), view.RunID)
	require.NoError(t, err)
	assert.Equal(t, "best_fit_selected", run.State)
	assert.Equal(t, []string{"vrot"}, run.Params)
	require.NotNil(t, run.BestIndex)
	assert.Equal(t, best.Index, *run.BestIndex)
	require.NotNil(t, run.FinishedAt)

	table, err := store.LoadTable(context.Background(), view.RunID)
	require.NoError(t, err)
	assert.Equal(t, 6, table.Len())

	wb, err := excelize.OpenFile(filepath.Join(out, "results.xlsx"))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Results")
	require.NoError(t, err)
	assert.Len(t, rows, 7, "header plus six grid points")

	s, err := spectrum.Load(filepath.Join(out, "best.dat"))
	require.NoError(t, err)
	assert.Equal(t, 2001, s.Len())

	logs := h.logs.String()
	assert.Contains(t, logs, "Best fit selected.")
	assert.Contains(t, logs, "vrot=16")
}

func TestRun_SynthesisConfig(t *testing.T) {
	defaults := filepath.Join(t.TempDir(), "defaults.toml")
	require.NoError(t, os.WriteFile(defaults, []byte(`
synplot_path  = "/opt/synplot"
software      = "gdl"
timeout       = "2m"
convolve_flag = "synspec = 0, quick = 1"
workers       = 3
`), 0o644))

	fitPath := writeFit(t, `synplot_path = "synplot"`)
	h := setupAppTest(t, Config{
		FitPath:          fitPath,
		DefaultsPath:     defaults,
		DefaultsRequired: true,
		Timeout:          30 * time.Second,
	})

	_, err := h.app.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(fitPath), "synplot"), h.synthesis.Dir, "fit file overrides defaults")
	assert.Equal(t, "gdl", h.synthesis.Software)
	assert.Equal(t, 30*time.Second, h.synthesis.Timeout, "command line overrides defaults")
	assert.Equal(t, "synspec = 0, quick = 1", h.synthesis.ConvolveFlag)
	assert.Equal(t, 3, h.synthesis.Workers)
}

func TestRun_WorkersFlag(t *testing.T) {
	h := setupAppTest(t, Config{FitPath: writeFit(t, `synplot_path = "."`), Workers: 4})
	_, err := h.app.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, h.synthesis.Workers)
}

func TestRun_MissingSynplotPath(t *testing.T) {
	h := setupAppTest(t, Config{FitPath: writeFit(t, "")})
	_, err := h.app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synplot_path is not set")
	assert.Zero(t, h.fake.Syntheses())
}

func TestRun_MissingRequiredDefaults(t *testing.T) {
	h := setupAppTest(t, Config{
		FitPath:          writeFit(t, `synplot_path = "."`),
		DefaultsPath:     filepath.Join(t.TempDir(), "absent.toml"),
		DefaultsRequired: true,
	})
	_, err := h.app.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_OptionalDefaultsMayBeAbsent(t *testing.T) {
	h := setupAppTest(t, Config{
		FitPath:      writeFit(t, `synplot_path = "."`),
		DefaultsPath: filepath.Join(t.TempDir(), "absent.toml"),
	})
	_, err := h.app.Run(context.Background())
	require.NoError(t, err)
}

func TestRun_BadFitFile(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"fit.hcl": "fit {\n  vrot = [10, 20"})
	h := setupAppTest(t, Config{FitPath: filepath.Join(dir, "fit.hcl")})
	_, err := h.app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load fit")
}

func TestRun_FailedFitIsRecorded(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	h := setupAppTest(t, Config{FitPath: writeFit(t, `synplot_path = "."`), ResultsDB: dbPath})
	boom := errors.New("boom")
	h.fake.Fail = func(synthesis.Request) error { return boom }

	_, err := h.app.Run(context.Background())
	require.ErrorIs(t, err, boom)

	view := h.app.status.view()
	assert.Equal(t, "failed", view.State)
	assert.Nil(t, view.Best)

	store, err := resultstore.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()
	run, err := store.GetRun(context.Background(), view.RunID)
	require.NoError(t, err)
	assert.Equal(t, "failed", run.State)
	assert.NotNil(t, run.FinishedAt)
	assert.Nil(t, run.BestIndex)
}

func TestNewConfig(t *testing.T) {
	_, err := NewConfig(Config{})
	assert.ErrorContains(t, err, "FitPath")

	_, err = NewConfig(Config{FitPath: "fit.hcl", Workers: -1})
	assert.ErrorContains(t, err, "workers")

	cfg, err := NewConfig(Config{FitPath: "fit.hcl", Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
}

func TestNewLogger(t *testing.T) {
	buf := &testutil.SafeBuffer{}
	logger := newLogger("warn", "json", buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":1`)
}

func TestNewLogger_UnknownLevelIsInfo(t *testing.T) {
	buf := &testutil.SafeBuffer{}
	logger := newLogger("chatty", "text", buf)
	logger.Debug("hidden")
	logger.Info("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "app=synfit")
}
