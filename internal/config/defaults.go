package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultsFileName is looked up in the user's home directory.
const DefaultsFileName = ".synfit.toml"

// Defaults are the machine-specific settings shared by every fit.
type Defaults struct {
	SynplotPath  string   `toml:"synplot_path"`
	Software     string   `toml:"software"`
	Timeout      string   `toml:"timeout"`
	ConvolveFlag string   `toml:"convolve_flag"`
	LibraryFiles []string `toml:"library_files"`
	CopyFiles    []string `toml:"copy_files"`
	Workers      int      `toml:"workers"`
	FluxFloor    float64  `toml:"flux_floor"`
}

// DefaultsPath returns ~/.synfit.toml, or "" when there is no home directory.
func DefaultsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultsFileName)
}

// LoadDefaults reads path. A missing file is only an error when required is
// set; otherwise empty defaults are returned.
func LoadDefaults(path string, required bool) (*Defaults, error) {
	d := &Defaults{}
	if path == "" {
		return d, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read defaults: %w", err)
	}
	if err := toml.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("failed to parse defaults %s: %w", path, err)
	}
	if _, err := d.TimeoutDuration(); err != nil {
		return nil, fmt.Errorf("defaults %s: %w", path, err)
	}
	switch d.Software {
	case "", "idl", "gdl":
	default:
		if _, err := os.Stat(d.Software); err != nil {
			return nil, fmt.Errorf("defaults %s: software must be idl, gdl or an executable path: %w", path, err)
		}
	}
	return d, nil
}

// TimeoutDuration parses Timeout. Empty means zero, which callers treat as
// "use the default".
func (d *Defaults) TimeoutDuration() (time.Duration, error) {
	if d.Timeout == "" {
		return 0, nil
	}
	t, err := time.ParseDuration(d.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", d.Timeout, err)
	}
	if t < 0 {
		return 0, fmt.Errorf("timeout must not be negative")
	}
	return t, nil
}

// Apply fills the fit-level overrides into a copy of d.
func (d Defaults) Apply(syn Synthesis) Defaults {
	if syn.SynplotPath != "" {
		d.SynplotPath = syn.SynplotPath
	}
	if syn.Software != "" {
		d.Software = syn.Software
	}
	return d
}
