package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	FitPath string // hcl file or directory

	// DefaultsPath is the TOML defaults file. DefaultsRequired is set when
	// the user named it explicitly, so a missing file is an error.
	DefaultsPath     string
	DefaultsRequired bool

	LogFormat  string
	LogLevel   string
	StatusPort int

	// Workers and Timeout override the defaults file when positive.
	Workers int
	Timeout time.Duration

	ResultsDB        string
	XLSXPath         string
	ProgressURL      string
	BestSpectrumPath string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.FitPath == "" {
		return nil, errors.New("FitPath is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 0 {
		return nil, errors.New("workers must not be negative")
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("timeout must not be negative")
	}
	return &cfg, nil
}
