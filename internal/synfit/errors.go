package synfit

import (
	"errors"
	"fmt"
)

// ErrEmptyGrid is returned when a fit has no grid points to choose from.
var ErrEmptyGrid = errors.New("fit grid is empty")

// ErrNoFiniteFit is returned when every grid point scored NaN or Inf.
var ErrNoFiniteFit = errors.New("no grid point has a finite chi-square")

// MissingObservationError is returned when the observed spectrum is not
// configured or cannot be read.
type MissingObservationError struct {
	Path string
	Err  error
}

func (e *MissingObservationError) Error() string {
	if e.Path == "" {
		return "no observed spectrum configured"
	}
	return fmt.Sprintf("observed spectrum %s: %v", e.Path, e.Err)
}

func (e *MissingObservationError) Unwrap() error { return e.Err }
