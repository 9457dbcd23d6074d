// Package resultstore persists fit runs and their scored grid points in
// SQLite, so that a long sweep can be inspected while it runs and compared
// with earlier runs afterwards.
//
// The store doubles as a synfit.Observer: state changes and scored rows are
// written as they happen. Non-finite chi-square values are stored as NULL and
// read back as NaN.
package resultstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/specialistvlad/synfitgo/internal/ctxlog"
	"github.com/specialistvlad/synfitgo/internal/synfit"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Store is a SQLite-backed result store.
type Store struct {
	db *sql.DB
}

// Run is the summary of one stored fit.
type Run struct {
	ID         string
	Observed   string
	Params     []string
	State      string
	StartedAt  time.Time
	FinishedAt *time.Time
	BestIndex  *int
	BestChiSq  *float64
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping results database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = s.db.Exec(string(schema))
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun records a new run.
func (s *Store) BeginRun(ctx context.Context, runID, observed string, params []string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, observed, params, state, started_at) VALUES (?, ?, ?, ?, ?)`,
		runID, observed, strings.Join(params, ","), synfit.Initialized.String(), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", runID, err)
	}
	return nil
}

// FinishRun stores the best fit of a run. best may be nil for a failed run.
func (s *Store) FinishRun(ctx context.Context, runID string, best *synfit.BestFit) error {
	var idx, chi any
	if best != nil {
		idx, chi = best.Index, best.ChiSquare
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, best_index = ?, best_chisq = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), idx, chi, runID,
	)
	return err
}

// SaveRow writes one grid point, replacing an earlier version of it.
func (s *Store) SaveRow(ctx context.Context, runID string, index int, names []string, row synfit.Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO points (run_id, idx, abund, chisq) VALUES (?, ?, ?, ?)`,
		runID, index, row.Abund, nullable(row.ChiSquare),
	); err != nil {
		return fmt.Errorf("failed to save point %d: %w", index, err)
	}
	for j, name := range names {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO point_values (run_id, idx, position, name, value) VALUES (?, ?, ?, ?, ?)`,
			runID, index, j, name, row.Values[j],
		); err != nil {
			return fmt.Errorf("failed to save point %d: %w", index, err)
		}
	}
	return tx.Commit()
}

// SaveTable writes every row of t.
func (s *Store) SaveTable(ctx context.Context, t *synfit.Table) error {
	for i, row := range t.Rows {
		if err := s.SaveRow(ctx, t.RunID, i, t.Names, row); err != nil {
			return err
		}
	}
	return nil
}

// GetRun returns the summary of runID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var (
		r               Run
		params, started string
		finished        sql.NullString
		bestIdx         sql.NullInt64
		bestChi         sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, observed, params, state, started_at, finished_at, best_index, best_chisq FROM runs WHERE id = ?`, runID,
	).Scan(&r.ID, &r.Observed, &params, &r.State, &started, &finished, &bestIdx, &bestChi)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	if params != "" {
		r.Params = strings.Split(params, ",")
	}
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, err
	}
	if finished.Valid {
		t, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return nil, err
		}
		r.FinishedAt = &t
	}
	if bestIdx.Valid {
		i := int(bestIdx.Int64)
		r.BestIndex = &i
	}
	if bestChi.Valid {
		r.BestChiSq = &bestChi.Float64
	}
	return &r, nil
}

// LoadTable reads back the stored rows of runID in grid order. Rows never
// scored are absent.
func (s *Store) LoadTable(ctx context.Context, runID string) (*synfit.Table, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	t := &synfit.Table{RunID: runID, Names: run.Params}

	rows, err := s.db.QueryContext(ctx, `SELECT idx, abund, chisq FROM points WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, err
	}
	index := map[int]int{}
	for rows.Next() {
		var (
			idx   int
			row   synfit.Row
			chisq sql.NullFloat64
		)
		if err := rows.Scan(&idx, &row.Abund, &chisq); err != nil {
			rows.Close()
			return nil, err
		}
		row.ChiSquare = math.NaN()
		if chisq.Valid {
			row.ChiSquare = chisq.Float64
		}
		row.Values = make([]float64, len(t.Names))
		index[idx] = len(t.Rows)
		t.Rows = append(t.Rows, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	values, err := s.db.QueryContext(ctx, `SELECT idx, position, value FROM point_values WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer values.Close()
	for values.Next() {
		var idx, pos int
		var v float64
		if err := values.Scan(&idx, &pos, &v); err != nil {
			return nil, err
		}
		if r, ok := index[idx]; ok && pos < len(t.Names) {
			t.Rows[r].Values[pos] = v
		}
	}
	return t, values.Err()
}

func (s *Store) setState(ctx context.Context, runID string, state synfit.State) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET state = ? WHERE id = ?`, state.String(), runID)
	return err
}

// StateChanged implements synfit.Observer.
func (s *Store) StateChanged(ctx context.Context, runID string, state synfit.State) {
	if err := s.setState(context.WithoutCancel(ctx), runID, state); err != nil {
		ctxlog.FromContext(ctx).Warn("Could not record run state.", "state", state, "error", err)
	}
}

// RowScored implements synfit.Observer.
func (s *Store) RowScored(ctx context.Context, ev synfit.RowEvent) {
	if err := s.SaveRow(context.WithoutCancel(ctx), ev.RunID, ev.Index, ev.Names, ev.Row); err != nil {
		ctxlog.FromContext(ctx).Warn("Could not record grid point.", "index", ev.Index, "error", err)
	}
}

func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
