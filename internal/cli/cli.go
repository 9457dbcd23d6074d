package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/synfitgo/internal/app"
	"github.com/specialistvlad/synfitgo/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("synfit", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
synfit - grid fitting of stellar line profiles with SYNSPEC/SYNPLOT.

Usage:
  synfit [options] [FIT_PATH]

Arguments:
  FIT_PATH
    Path to a single .hcl fit file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	fitFlag := flagSet.String("fit", "", "Path to the fit file or directory.")
	fFlag := flagSet.String("f", "", "Path to the fit file or directory (shorthand).")
	defaultsFlag := flagSet.String("defaults", "", "Path to the defaults TOML file. Defaults to ~/"+config.DefaultsFileName+" when present.")
	statusPortFlag := flagSet.Int("status-port", 0, "Port for the HTTP status server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 0, "Number of concurrent synthesis runs. 0 uses the defaults file, or 1.")
	timeoutFlag := flagSet.Duration("timeout", 0, "Time limit for a single synthesis run. 0 uses the defaults file, or 10m.")
	resultsDBFlag := flagSet.String("results-db", "", "SQLite database that receives every scored grid point.")
	xlsxFlag := flagSet.String("xlsx", "", "Write the results table to this Excel workbook.")
	progressFlag := flagSet.String("progress-url", "", "socket.io server that receives progress events.")
	bestFlag := flagSet.String("best-spectrum", "", "Re-synthesize the best fit and save its spectrum to this file.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *fitFlag != "" {
		path = *fitFlag
	} else if *fFlag != "" {
		path = *fFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Fit path determined.", "path", path)

	if path == "" {
		slog.Debug("No fit path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	defaultsPath, defaultsRequired := *defaultsFlag, true
	if defaultsPath == "" {
		defaultsPath, defaultsRequired = config.DefaultsPath(), false
	}
	slog.Debug("CLI parameter validation complete.")

	cfg, err := app.NewConfig(app.Config{
		FitPath:          path,
		DefaultsPath:     defaultsPath,
		DefaultsRequired: defaultsRequired,
		LogFormat:        logFormat,
		LogLevel:         logLevel,
		StatusPort:       *statusPortFlag,
		Workers:          *workersFlag,
		Timeout:          *timeoutFlag,
		ResultsDB:        *resultsDBFlag,
		XLSXPath:         *xlsxFlag,
		ProgressURL:      *progressFlag,
		BestSpectrumPath: *bestFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}
