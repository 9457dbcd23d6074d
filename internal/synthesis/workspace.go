package synthesis

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
)

// Workspaces is a pool of working directories, each used by at most one
// invocation at a time. With a single slot the synthesis directory itself is
// used. With more slots every workspace is a private directory whose entries
// link back to the synthesis directory, except for files the program rewrites,
// which are copied.
type Workspaces struct {
	base    string
	free    chan string
	private []string
}

// NewWorkspaces prepares n workspaces mirroring base. copyFiles are copied
// instead of linked; skipFiles are not mirrored at all.
func NewWorkspaces(base string, n int, copyFiles, skipFiles []string) (*Workspaces, error) {
	info, err := os.Stat(base)
	if err != nil {
		return nil, fmt.Errorf("synthesis directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("synthesis directory %s is not a directory", base)
	}
	if n < 1 {
		n = 1
	}

	w := &Workspaces{base: base, free: make(chan string, n)}
	if n == 1 {
		w.free <- base
		return w, nil
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		dir, err := os.MkdirTemp("", "synfit-workspace-*")
		if err != nil {
			w.Close()
			return nil, err
		}
		w.private = append(w.private, dir)
		if err := mirror(base, dir, entries, copyFiles, skipFiles); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to prepare workspace %s: %w", dir, err)
		}
		w.free <- dir
	}
	return w, nil
}

func mirror(base, dir string, entries []os.DirEntry, copyFiles, skipFiles []string) error {
	for _, e := range entries {
		name := e.Name()
		if slices.Contains(skipFiles, name) {
			continue
		}
		src, err := filepath.Abs(filepath.Join(base, name))
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, name)
		if slices.Contains(copyFiles, name) && e.Type().IsRegular() {
			if err := copyFile(src, dst); err != nil {
				return err
			}
			continue
		}
		if err := os.Symlink(src, dst); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Size returns the number of workspaces.
func (w *Workspaces) Size() int { return cap(w.free) }

// Acquire blocks until a workspace is free or ctx is done.
func (w *Workspaces) Acquire(ctx context.Context) (string, error) {
	select {
	case dir := <-w.free:
		return dir, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Release returns dir to the pool.
func (w *Workspaces) Release(dir string) {
	w.free <- dir
}

// Close removes the private workspaces. The synthesis directory is never
// removed.
func (w *Workspaces) Close() error {
	var firstErr error
	for _, dir := range w.private {
		if err := os.RemoveAll(dir); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	w.private = nil
	return firstErr
}
