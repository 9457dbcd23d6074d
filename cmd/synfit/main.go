package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/synfitgo/internal/app"
	"github.com/specialistvlad/synfitgo/internal/cli"
	"github.com/specialistvlad/synfitgo/internal/config"
	"github.com/specialistvlad/synfitgo/internal/sampler"
	"github.com/specialistvlad/synfitgo/internal/synfit"
)

// main is the entrypoint for the synfit application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Args[1:])
	stop()
	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	synfitApp := app.NewApp(outW, appConfig, config.NewHCLLoader())
	best, err := synfitApp.Run(ctx)
	if err != nil {
		return exitError(err)
	}
	fmt.Fprintf(outW, "best fit: %s\n", best)
	return nil
}

// exitError reports failures the user can fix in the fit file with the
// usage exit code. Everything else exits with 1.
func exitError(err error) error {
	var missing *synfit.MissingObservationError
	var invalid *sampler.ValidationError
	if errors.As(err, &missing) || errors.As(err, &invalid) || errors.Is(err, synfit.ErrEmptyGrid) {
		return &cli.ExitError{Code: 2, Message: err.Error()}
	}
	return err
}
