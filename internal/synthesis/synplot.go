package synthesis

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/specialistvlad/synfitgo/internal/ctxlog"
	"github.com/specialistvlad/synfitgo/internal/spectrum"
)

const (
	// OutputFile is where the program leaves the computed spectrum.
	OutputFile = "fort.11"
	// LineListFile holds the line list the program reads; its wavelength
	// range provides the default wstart/wend.
	LineListFile = "fort.19"
	// LogFile receives the program's combined stdout and stderr.
	LogFile = "run.log"

	DefaultTimeout      = 10 * time.Minute
	DefaultConvolveFlag = "synspec = 0"
)

// Config configures a Synplot invoker.
type Config struct {
	// Dir is the synthesis directory holding the program's input files.
	Dir string
	// Software is "idl", "gdl" or the path of a compatible executable.
	Software string
	// Timeout bounds a single invocation. Zero means DefaultTimeout.
	Timeout time.Duration
	// ConvolveFlag is appended to the parameter list of convolution-only
	// calls, as a raw `key = value` fragment.
	ConvolveFlag string
	// LibraryFiles are captured after a full synthesis and restored before a
	// convolution-only call.
	LibraryFiles []string
	// CopyFiles are copied rather than linked into private workspaces.
	CopyFiles []string
	// Workers is the number of invocations that may run at once.
	Workers int
}

func (c Config) withDefaults() Config {
	if c.Software == "" {
		c.Software = "idl"
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ConvolveFlag == "" {
		c.ConvolveFlag = DefaultConvolveFlag
	}
	if c.LibraryFiles == nil {
		c.LibraryFiles = []string{"fort.7", "fort.17"}
	}
	if c.CopyFiles == nil {
		c.CopyFiles = []string{LineListFile}
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return c
}

// Synplot runs SYNPLOT through IDL or GDL.
type Synplot struct {
	cfg        Config
	workspaces *Workspaces
}

// NewSynplot prepares the workspaces for cfg.Workers concurrent calls.
func NewSynplot(cfg Config) (*Synplot, error) {
	cfg = cfg.withDefaults()
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, err
	}
	cfg.Dir = dir

	skip := append([]string{OutputFile, LogFile}, cfg.LibraryFiles...)
	ws, err := NewWorkspaces(cfg.Dir, cfg.Workers, cfg.CopyFiles, skip)
	if err != nil {
		return nil, err
	}
	return &Synplot{cfg: cfg, workspaces: ws}, nil
}

// Close releases the private workspaces.
func (s *Synplot) Close() error {
	return s.workspaces.Close()
}

// Synthesize runs a full synthesis and captures the library artifacts.
func (s *Synplot) Synthesize(ctx context.Context, req Request) (*Output, error) {
	return s.invoke(ctx, req, nil)
}

// Convolve restores base's artifacts and re-runs only the broadening step.
func (s *Synplot) Convolve(ctx context.Context, base *Output, req Request) (*Output, error) {
	if base == nil || len(base.Artifacts) == 0 {
		return nil, &SynthesisFailure{Label: req.Label, Reason: "no unconvolved artifacts to convolve"}
	}
	return s.invoke(ctx, req, base.Artifacts)
}

func (s *Synplot) invoke(ctx context.Context, req Request, restore map[string][]byte) (*Output, error) {
	label := req.Label
	dir, err := s.workspaces.Acquire(ctx)
	if err != nil {
		return nil, &SynthesisFailure{Label: label, Reason: "no workspace available", Err: err}
	}
	defer s.workspaces.Release(dir)

	logger := ctxlog.FromContext(ctx).With("point", label, "workspace", dir)

	req, err = s.prepare(dir, req)
	if err != nil {
		return nil, &SynthesisFailure{Label: label, Reason: "invalid parameters", Err: err}
	}

	if err := os.Remove(filepath.Join(dir, OutputFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, &SynthesisFailure{Label: label, Reason: "stale output could not be removed", Err: err}
	}

	if _, ok := req.Get("linlist"); ok {
		restoreLineList, err := backup(filepath.Join(dir, LineListFile))
		if err != nil {
			return nil, &SynthesisFailure{Label: label, Reason: "line list could not be backed up", Err: err}
		}
		defer restoreLineList()
	}

	for name, data := range restore {
		if err := writeFile(filepath.Join(dir, name), data); err != nil {
			return nil, &SynthesisFailure{Label: label, Reason: "library artifacts could not be restored", Err: fmt.Errorf("%s: %w", name, err)}
		}
	}

	command := s.CommandLine(dir, req, restore != nil)
	logger.Debug("Running synthesis", "command", command)

	start := time.Now()
	if err := s.run(ctx, dir, command); err != nil {
		return nil, &SynthesisFailure{Label: label, Reason: "program did not finish", Err: err}
	}

	spec, err := spectrum.Load(filepath.Join(dir, OutputFile))
	if err != nil {
		return nil, &SynthesisFailure{Label: label, Reason: "calculated spectrum is not available", Err: err}
	}
	logger.Debug("Synthesis finished", "samples", spec.Len(), "duration", time.Since(start))

	out := &Output{Spectrum: spec, Artifacts: restore}
	if restore == nil {
		out.Artifacts = s.capture(dir)
	}
	return out, nil
}

// prepare fills in the parameters the program needs on every call.
func (s *Synplot) prepare(dir string, req Request) (Request, error) {
	req = req.With("noplot", "1")
	if _, ok := req.Get("relative"); !ok {
		req = req.With("relative", "0")
	}

	_, hasStart := req.Get("wstart")
	_, hasEnd := req.Get("wend")
	if !hasStart || !hasEnd {
		first, last, err := lineListRange(filepath.Join(dir, LineListFile))
		if err != nil {
			return req, fmt.Errorf("wstart/wend not given and %s unusable: %w", LineListFile, err)
		}
		if !hasStart {
			req = req.With("wstart", formatFloat(first*10))
		}
		if !hasEnd {
			req = req.With("wend", formatFloat(last*10))
		}
	}

	if v, ok := req.Get("linlist"); ok {
		path := strings.Trim(v, `'"`)
		abs, err := filepath.Abs(path)
		if err != nil {
			return req, err
		}
		if _, err := os.Stat(abs); err != nil {
			return req, fmt.Errorf("line list: %w", err)
		}
		req = req.With("linlist", "'"+abs+"'")
	}
	return req, nil
}

// CommandLine renders the shell command for req in dir. Convolution-only
// calls carry the configured convolve flag.
func (s *Synplot) CommandLine(dir string, req Request, convolveOnly bool) string {
	args := req.String()
	if convolveOnly {
		args += ", " + s.cfg.ConvolveFlag
	}
	return fmt.Sprintf(`%s -e "CD, '%s' & synplot, %s"`, s.cfg.Software, dir, args)
}

func (s *Synplot) run(ctx context.Context, dir, command string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Stdout = &out
	cmd.Stderr = &out
	killProcessGroup(cmd)

	runErr := cmd.Run()
	if err := os.WriteFile(filepath.Join(dir, LogFile), out.Bytes(), 0o644); err != nil {
		ctxlog.FromContext(ctx).Warn("Could not write program log", "error", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("after %s: %w", s.cfg.Timeout, ctxErr)
	}
	if runErr != nil {
		return fmt.Errorf("%w: %s", runErr, tail(out.String(), 512))
	}
	return nil
}

func (s *Synplot) capture(dir string) map[string][]byte {
	artifacts := make(map[string][]byte, len(s.cfg.LibraryFiles))
	for _, name := range s.cfg.LibraryFiles {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		artifacts[name] = data
	}
	return artifacts
}

// lineListRange returns the first wavelength of the first and last lines of
// the line list file.
func lineListRange(path string) (float64, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	var first, last string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if first == "" {
			first = line
		}
		last = line
	}
	if err := sc.Err(); err != nil {
		return 0, 0, err
	}
	if first == "" {
		return 0, 0, fmt.Errorf("%s is empty", path)
	}
	lo, err := leadingFloat(first)
	if err != nil {
		return 0, 0, err
	}
	hi, err := leadingFloat(last)
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

func leadingFloat(line string) (float64, error) {
	field := strings.Fields(line)[0]
	return strconv.ParseFloat(strings.NewReplacer("D", "E", "d", "e").Replace(field), 64)
}

// backup saves path and returns a function restoring it.
func backup(path string) (func(), error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return func() {}, nil
	}
	if err != nil {
		return nil, err
	}
	return func() { _ = writeFile(path, data) }, nil
}

// writeFile replaces path, removing a symlink first so a private workspace
// never writes through to the shared synthesis directory.
func writeFile(path string, data []byte) error {
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
