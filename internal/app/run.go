package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/specialistvlad/synfitgo/internal/config"
	"github.com/specialistvlad/synfitgo/internal/ctxlog"
	"github.com/specialistvlad/synfitgo/internal/elements"
	"github.com/specialistvlad/synfitgo/internal/export"
	"github.com/specialistvlad/synfitgo/internal/progress"
	"github.com/specialistvlad/synfitgo/internal/resultstore"
	"github.com/specialistvlad/synfitgo/internal/spectrum"
	"github.com/specialistvlad/synfitgo/internal/synfit"
	"github.com/specialistvlad/synfitgo/internal/synthesis"
)

// Run loads the fit, runs it and writes the requested outputs.
func (a *App) Run(ctx context.Context) (best *synfit.BestFit, err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	defaults, err := config.LoadDefaults(a.config.DefaultsPath, a.config.DefaultsRequired)
	if err != nil {
		return nil, err
	}
	fit, err := a.loader.Load(ctx, a.config.FitPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load fit: %w", err)
	}
	a.logger.Debug("Fit loaded.", "sources", fit.Sources, "params", fit.Spec.Names())

	synCfg, err := a.synthesisConfig(*defaults, fit.Synthesis)
	if err != nil {
		return nil, err
	}
	invoker, err := a.newInvoker(synCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare synthesis: %w", err)
	}
	if c, ok := invoker.(io.Closer); ok {
		defer func() {
			if cerr := c.Close(); cerr != nil {
				a.logger.Warn("Failed to clean up synthesis workspaces", "error", cerr)
			}
		}()
	}

	table, err := elements.Load()
	if err != nil {
		return nil, err
	}

	opts := []synfit.Option{
		synfit.WithWorkers(synCfg.Workers),
		synfit.WithFluxFloor(defaults.FluxFloor),
		synfit.WithObserver(a.status),
	}

	var store *resultstore.Store
	if a.config.ResultsDB != "" {
		store, err = resultstore.Open(a.config.ResultsDB)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		opts = append(opts, synfit.WithObserver(store))
	}

	var publisher *progress.Publisher
	if a.config.ProgressURL != "" {
		publisher, err = progress.Dial(ctx, a.config.ProgressURL, progress.Options{})
		if err != nil {
			return nil, err
		}
		defer publisher.Close()
		opts = append(opts, synfit.WithObserver(publisher))
	}

	engine, err := synfit.New(fit, invoker, elements.NewCodec(table), opts...)
	if err != nil {
		return nil, err
	}

	if err := a.startStatusServer(ctx, a.config.StatusPort); err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, a.closeStatusServer(ctx))
	}()

	if store != nil {
		if err := store.BeginRun(ctx, engine.RunID(), fit.Synthesis.Observ, fit.Spec.Names()); err != nil {
			return nil, err
		}
	}

	best, err = engine.Run(ctx)
	if store != nil {
		if ferr := store.FinishRun(context.WithoutCancel(ctx), engine.RunID(), best); ferr != nil {
			a.logger.Error("Failed to record run result", "run_id", engine.RunID(), "error", ferr)
		}
	}
	if err != nil {
		return nil, err
	}
	a.status.setBest(best)
	if publisher != nil {
		publisher.BestFit(ctx, engine.RunID(), best)
	}
	a.logger.Info("✅ Best fit selected.", "run_id", engine.RunID(), "best", best.String())

	if err := a.writeOutputs(ctx, engine, best); err != nil {
		return best, err
	}
	a.logger.Debug("App.Run method finished.")
	return best, nil
}

// synthesisConfig merges the defaults file, the fit's overrides and the
// command line, in increasing priority.
func (a *App) synthesisConfig(defaults config.Defaults, syn config.Synthesis) (synthesis.Config, error) {
	d := defaults.Apply(syn)
	if d.SynplotPath == "" {
		return synthesis.Config{}, errors.New("synplot_path is not set in the defaults file or the synthesis block")
	}
	timeout, err := d.TimeoutDuration()
	if err != nil {
		return synthesis.Config{}, err
	}
	if a.config.Timeout > 0 {
		timeout = a.config.Timeout
	}
	workers := d.Workers
	if a.config.Workers > 0 {
		workers = a.config.Workers
	}
	return synthesis.Config{
		Dir:          d.SynplotPath,
		Software:     d.Software,
		Timeout:      timeout,
		ConvolveFlag: d.ConvolveFlag,
		LibraryFiles: d.LibraryFiles,
		CopyFiles:    d.CopyFiles,
		Workers:      max(workers, 1),
	}, nil
}

func (a *App) writeOutputs(ctx context.Context, engine *synfit.Engine, best *synfit.BestFit) error {
	if path := a.config.XLSXPath; path != "" {
		if err := export.Save(path, engine.Table(), best); err != nil {
			return err
		}
		a.logger.Info("Results workbook written.", "path", path)
	}
	if path := a.config.BestSpectrumPath; path != "" {
		s, err := engine.BestSpectrum(ctx)
		if err != nil {
			return fmt.Errorf("failed to synthesize best fit: %w", err)
		}
		if err := spectrum.Save(path, s); err != nil {
			return err
		}
		a.logger.Info("Best-fit spectrum written.", "path", path)
	}
	return nil
}
