package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/specialistvlad/synfitgo/internal/ctxlog"
	"github.com/specialistvlad/synfitgo/internal/synfit"
)

// status tracks the running fit for the /status endpoint. It implements
// synfit.Observer.
type status struct {
	mu    sync.Mutex
	runID string
	state synfit.State
	done  int
	total int
	best  *synfit.BestFit
}

type statusView struct {
	RunID string       `json:"run_id"`
	State string       `json:"state"`
	Done  int          `json:"done"`
	Total int          `json:"total"`
	Best  *bestFitView `json:"best,omitempty"`
}

type bestFitView struct {
	Index     int                `json:"index"`
	Values    map[string]float64 `json:"values"`
	ChiSquare float64            `json:"chisq"`
}

func (s *status) StateChanged(_ context.Context, runID string, state synfit.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID, s.state = runID, state
}

func (s *status) RowScored(_ context.Context, ev synfit.RowEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Rows may be reported out of order.
	s.done = max(s.done, ev.Done)
	s.total = ev.Total
}

func (s *status) setBest(best *synfit.BestFit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.best = best
}

func (s *status) view() statusView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := statusView{RunID: s.runID, State: s.state.String(), Done: s.done, Total: s.total}
	if s.best != nil {
		v.Best = &bestFitView{Index: s.best.Index, Values: maps.Clone(s.best.Values), ChiSquare: s.best.ChiSquare}
	}
	return v
}

// router serves /health and /status.
func (a *App) router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", a.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/status", a.statusHandler).Methods(http.MethodGet)
	return r
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Status endpoint hit.", "remote_addr", r.RemoteAddr)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.status.view()); err != nil {
		a.logger.Error("Failed to encode status", "error", err)
	}
}

// startStatusServer listens on port and serves the status router in the
// background. The listener is opened synchronously so a busy port fails the
// run instead of being logged and forgotten.
func (a *App) startStatusServer(ctx context.Context, port int) error {
	logger := ctxlog.FromContext(ctx)
	if port <= 0 {
		logger.Debug("Status server not started: disabled")
		return nil
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to start status server: %w", err)
	}
	a.httpServer = &http.Server{
		Handler:           a.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("🩺 Status server starting", "address", fmt.Sprintf("http://localhost:%d/status", port))
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Status server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

func (a *App) closeStatusServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if a.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down status server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Status server shutdown failed", "error", err)
		return err
	}
	a.httpServer = nil
	return nil
}
