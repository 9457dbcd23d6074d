package synfit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/synfitgo/internal/config"
	"github.com/specialistvlad/synfitgo/internal/ctxlog"
	"github.com/specialistvlad/synfitgo/internal/elements"
	"github.com/specialistvlad/synfitgo/internal/library"
	"github.com/specialistvlad/synfitgo/internal/sampler"
	"github.com/specialistvlad/synfitgo/internal/scoring"
	"github.com/specialistvlad/synfitgo/internal/spectrum"
	"github.com/specialistvlad/synfitgo/internal/synthesis"
	"golang.org/x/sync/errgroup"
)

// Engine runs one fit. It is not reusable: Run may be called once.
type Engine struct {
	fit     *config.Fit
	invoker synthesis.Invoker
	codec   *elements.Codec
	scorer  *scoring.Scorer
	fixed   elements.Abundances

	runID     string
	workers   int
	fluxFloor float64
	store     library.Store
	observers []Observer

	mu    sync.Mutex
	state State

	grid      *sampler.Grid
	split     library.RotationalSplit
	synthCols []int
	lib       *library.Library
	table     *Table
	best      *BestFit
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets how many grid points are synthesized at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithRunID replaces the generated run identifier.
func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithLibraryStore replaces the in-memory library store.
func WithLibraryStore(s library.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithFluxFloor clamps interpolated synthetic flux from below when scoring.
func WithFluxFloor(f float64) Option {
	return func(e *Engine) { e.fluxFloor = f }
}

// New prepares a fit. The observed spectrum is read here, once.
func New(fit *config.Fit, invoker synthesis.Invoker, codec *elements.Codec, opts ...Option) (*Engine, error) {
	e := &Engine{
		fit:     fit,
		invoker: invoker,
		codec:   codec,
		runID:   uuid.NewString(),
		workers: 1,
		state:   Initialized,
	}
	for _, opt := range opts {
		opt(e)
	}

	syn := fit.Synthesis
	if syn.Observ == "" {
		return nil, &MissingObservationError{}
	}
	observed, err := spectrum.Load(syn.Observ)
	if err != nil {
		return nil, &MissingObservationError{Path: syn.Observ, Err: err}
	}

	switch {
	case syn.Abund != nil:
		e.fixed, err = codec.Normalize(syn.Abund)
	case syn.AbundText != "":
		e.fixed, err = codec.Parse(syn.AbundText)
	}
	if err != nil {
		return nil, fmt.Errorf("fixed abundances: %w", err)
	}

	e.scorer = scoring.NewScorer(observed, syn.Windows, scoring.Corrections{
		RV:        syn.RV,
		Scale:     syn.Scale,
		FluxFloor: e.fluxFloor,
	})
	return e, nil
}

// RunID identifies this fit in logs, stores and progress events.
func (e *Engine) RunID() string { return e.runID }

// State returns the current stage.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Table returns the result table, nil before sampling.
func (e *Engine) Table() *Table { return e.table }

// Library returns the library, nil when no convolution parameter is swept.
func (e *Engine) Library() *library.Library { return e.lib }

// Observed returns the observed spectrum after the radial-velocity correction.
func (e *Engine) Observed() *spectrum.Spectrum { return e.scorer.Observed() }

// Run executes every stage and returns the best fit.
func (e *Engine) Run(ctx context.Context) (*BestFit, error) {
	if s := e.State(); s != Initialized {
		return nil, fmt.Errorf("fit %s cannot run from state %s", e.runID, s)
	}
	ctx = ctxlog.With(ctx, "run_id", e.runID)
	logger := ctxlog.FromContext(ctx)
	logger.Info("🚀 Starting fit.", "params", e.fit.Spec.Names(), "observed", e.fit.Synthesis.Observ, "workers", e.workers)
	start := time.Now()

	for _, stage := range []func(context.Context) error{e.sample, e.buildLibrary, e.iterate, e.selectBest} {
		if err := stage(ctx); err != nil {
			failedIn := e.State()
			e.setState(ctx, Failed)
			logger.Error("Fit failed.", "stage", failedIn, "error", err)
			return nil, err
		}
	}

	logger.Info("🏁 Fit finished.", "best", e.best.String(), "points", e.table.Len(), "duration", time.Since(start))
	return e.best, nil
}

func (e *Engine) sample(ctx context.Context) error {
	dims, err := sampler.Sample(e.fit.Spec)
	if err != nil {
		return err
	}
	e.grid = sampler.NewGrid(dims)
	e.split = library.Split(e.grid.Names)
	for _, name := range e.split.Synthesis {
		e.synthCols = append(e.synthCols, e.grid.Index(name))
	}
	e.table = NewTable(e.runID, e.grid)

	for i := range e.table.Rows {
		_, abund, err := e.request(i, false)
		if err != nil {
			return err
		}
		e.table.Rows[i].Abund = abund
	}

	ctxlog.FromContext(ctx).Info("Grid sampled.", "points", e.grid.Len(), "dimensions", len(dims))
	e.setState(ctx, Sampled)
	return nil
}

func (e *Engine) buildLibrary(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if !e.split.Enabled() {
		logger.Debug("No convolution parameter swept, every point is fully synthesized.")
		e.setState(ctx, LibraryBuilt)
		return nil
	}

	e.lib = library.New(e.invoker, e.store)
	seen := make(map[string]struct{})
	var entries []library.Entry
	for i := range e.grid.Points {
		key := e.key(i)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		req, _, err := e.request(i, true)
		if err != nil {
			return err
		}
		req.Label = "library " + e.libraryLabel(i)
		entries = append(entries, library.Entry{Key: key, Request: req})
	}
	logger.Debug("Building library.", "entries", len(entries), "convolution", e.split.Convolution)

	if err := e.lib.Build(ctx, entries, e.workers); err != nil {
		return err
	}
	e.setState(ctx, LibraryBuilt)
	return nil
}

func (e *Engine) iterate(ctx context.Context) error {
	e.setState(ctx, Iterating)
	total := e.table.Len()
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range e.table.Rows {
		g.Go(func() error {
			chi, err := e.scorePoint(gctx, i)
			if err != nil {
				return err
			}
			e.table.Rows[i].ChiSquare = chi
			e.notifyRow(gctx, i, int(done.Add(1)), total)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	e.setState(ctx, Scored)
	return nil
}

func (e *Engine) scorePoint(ctx context.Context, i int) (float64, error) {
	req, _, err := e.request(i, false)
	if err != nil {
		return 0, err
	}

	var out *synthesis.Output
	if e.lib != nil {
		out, err = e.lib.Convolve(ctx, e.key(i), req)
	} else {
		out, err = e.invoker.Synthesize(ctx, req)
	}
	if err != nil {
		return 0, err
	}

	chi, err := e.scorer.Score(out.Spectrum)
	if err != nil {
		return 0, fmt.Errorf("failed to score [%s]: %w", req.Label, err)
	}

	logger := ctxlog.FromContext(ctx)
	if !scoring.IsFinite(chi) {
		logger.Warn("Grid point has a non-finite chi-square.", "point", req.Label, "chisq", chi)
	} else {
		logger.Debug("Grid point scored.", "point", req.Label, "chisq", chi)
	}
	return chi, nil
}

func (e *Engine) selectBest(ctx context.Context) error {
	best, err := SelectBest(e.table, e.codec)
	if err != nil {
		return err
	}
	e.best = best
	e.setState(ctx, BestFitSelected)
	return nil
}

// BestSpectrum re-synthesizes the best-fit point in full.
func (e *Engine) BestSpectrum(ctx context.Context) (*spectrum.Spectrum, error) {
	if s := e.State(); s != BestFitSelected {
		return nil, fmt.Errorf("no best fit yet (state %s)", s)
	}
	req, _, err := e.request(e.best.Index, false)
	if err != nil {
		return nil, err
	}
	req.Label = "best " + req.Label
	out, err := e.invoker.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}
	return out.Spectrum, nil
}

// request builds the synthesis call for row i and returns it with the
// encoded abundances it carries. pin zeroes the convolution parameters.
func (e *Engine) request(i int, pin bool) (synthesis.Request, string, error) {
	point := e.grid.Points[i]
	part := Partitions(e.grid.Names, point, e.codec.Table())
	syn := e.fit.Synthesis

	req := synthesis.Request{Label: label(e.grid.Names, point)}
	for _, name := range []string{"teff", "logg"} {
		v, ok := part.Known[name]
		if !ok {
			fixed := syn.Teff
			if name == "logg" {
				fixed = syn.Logg
			}
			if fixed == nil {
				return req, "", fmt.Errorf("%s is neither set nor swept", name)
			}
			v = *fixed
		}
		req = req.With(name, formatFloat(v))
	}

	swept, err := e.codec.Normalize(part.Abundance)
	if err != nil {
		return req, "", err
	}
	var abund string
	if merged := elements.Merge(e.fixed, swept); len(merged) > 0 {
		abund = e.codec.Encode(merged)
		req = req.With("abund", abund)
	}

	for _, p := range syn.Extra {
		req = req.With(p.Key, p.Value)
	}
	for _, p := range part.Passthrough {
		req = req.With(p.Name, formatFloat(p.Value))
	}

	if pin {
		for _, name := range library.ConvolutionParams {
			if _, ok := req.Get(name); ok {
				req = req.With(name, "0")
			}
		}
	}
	return req, abund, nil
}

func (e *Engine) key(i int) string {
	values := make([]float64, len(e.synthCols))
	for j, col := range e.synthCols {
		values[j] = e.grid.Points[i][col]
	}
	return e.split.Key(values)
}

func (e *Engine) libraryLabel(i int) string {
	if len(e.synthCols) == 0 {
		return library.BaselineKey
	}
	values := make([]float64, len(e.synthCols))
	for j, col := range e.synthCols {
		values[j] = e.grid.Points[i][col]
	}
	return label(e.split.Synthesis, values)
}

func (e *Engine) setState(ctx context.Context, s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Fit state changed.", "state", s)
	for _, o := range e.observers {
		o.StateChanged(ctx, e.runID, s)
	}
}

func (e *Engine) notifyRow(ctx context.Context, i, done, total int) {
	if len(e.observers) == 0 {
		return
	}
	ev := RowEvent{RunID: e.runID, Index: i, Done: done, Total: total, Names: e.table.Names, Row: e.table.Rows[i]}
	for _, o := range e.observers {
		o.RowScored(ctx, ev)
	}
}

func label(names []string, values []float64) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + "=" + formatFloat(values[i])
	}
	return strings.Join(parts, ", ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
