package config

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/synfitgo/internal/sampler"
	"github.com/specialistvlad/synfitgo/internal/scoring"
	"github.com/specialistvlad/synfitgo/internal/synthesis"
)

// FitParam is one swept parameter with its [min, max, step] bounds.
type FitParam = sampler.Param

// FitSpecification is the ordered list of swept parameters.
type FitSpecification = sampler.Specification

// Synthesis holds the fixed settings of a fit.
type Synthesis struct {
	// Teff and Logg are nil when not given; they must then be swept.
	Teff *float64
	Logg *float64

	// Observ is the observed spectrum path, resolved against the fit file's
	// directory.
	Observ  string
	Windows []scoring.Window
	RV      float64
	// Scale multiplies the synthetic flux. Zero leaves it untouched.
	Scale float64

	// Abund holds fixed abundances keyed by element symbol or atomic number.
	Abund map[string]float64
	// AbundText holds fixed abundances given in encoded form.
	AbundText string

	// Extra are pass-through parameters in declaration order.
	Extra []synthesis.Param

	// SynplotPath and Software override the defaults file when set.
	SynplotPath string
	Software    string
}

// Fit is a complete fit description.
type Fit struct {
	// Sources are the files the fit was read from.
	Sources   []string
	Spec      FitSpecification
	Synthesis Synthesis
}

// Validate checks the settings that do not depend on the periodic table or
// on the sampled grid.
func (f *Fit) Validate() error {
	names := f.Spec.Names()
	if f.Synthesis.Teff == nil && !slices.Contains(names, "teff") {
		return fmt.Errorf("teff must be set in the synthesis block or swept in the fit block")
	}
	if f.Synthesis.Logg == nil && !slices.Contains(names, "logg") {
		return fmt.Errorf("logg must be set in the synthesis block or swept in the fit block")
	}
	for _, w := range f.Synthesis.Windows {
		if w.Lo >= w.Hi {
			return fmt.Errorf("window [%g, %g] is empty", w.Lo, w.Hi)
		}
	}
	if f.Synthesis.Abund != nil && f.Synthesis.AbundText != "" {
		return fmt.Errorf("abund given both as a map and as text")
	}
	return nil
}
