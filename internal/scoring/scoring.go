// Package scoring compares a synthetic spectrum with the observed one.
//
// The synthetic flux is interpolated piecewise-linearly onto the observed
// wavelength grid (values beyond the synthetic range are clamped to the end
// points) and the chi-square is
//
//	sum(((observed - synthetic)^2 / synthetic) * weight)
//
// Weights are 1 inside any configured window and 0 outside. Points with zero
// weight never contribute. A zero interpolated flux inside a window yields a
// non-finite chi-square unless a flux floor is configured; a non-finite score
// can never be selected as the best fit.
package scoring

import (
	"fmt"
	"math"

	"github.com/specialistvlad/synfitgo/internal/spectrum"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// Window is an open wavelength interval (Lo, Hi).
type Window struct {
	Lo float64
	Hi float64
}

// Contains reports whether lo < w < hi.
func (w Window) Contains(wavelength float64) bool {
	return wavelength > w.Lo && wavelength < w.Hi
}

// Weights returns 1 for every wavelength inside at least one window and 0
// elsewhere. Without windows every point weighs 1.
func Weights(wavelength []float64, windows []Window) []float64 {
	out := make([]float64, len(wavelength))
	if len(windows) == 0 {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	for i, w := range wavelength {
		for _, win := range windows {
			if win.Contains(w) {
				out[i] = 1
				break
			}
		}
	}
	return out
}

// Corrections are applied to copies of the spectra before scoring.
type Corrections struct {
	// RV is the radial velocity in km/s; observed wavelengths are multiplied
	// by 1 - RV/c.
	RV float64
	// Scale multiplies the synthetic flux. Zero means no scaling.
	Scale float64
	// FluxFloor, when positive, clamps interpolated synthetic flux from below.
	FluxFloor float64
}

// ChiSquare scores synthetic against observed with per-sample weights. Neither
// spectrum is modified.
func ChiSquare(synthetic, observed *spectrum.Spectrum, weights []float64) (float64, error) {
	return chiSquare(synthetic, observed, weights, 0)
}

func chiSquare(synthetic, observed *spectrum.Spectrum, weights []float64, floor float64) (float64, error) {
	if len(weights) != observed.Len() {
		return 0, fmt.Errorf("weights length %d does not match observed spectrum length %d", len(weights), observed.Len())
	}
	if err := checkOrdered(synthetic); err != nil {
		return 0, err
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(synthetic.Wavelength, synthetic.Flux); err != nil {
		return 0, fmt.Errorf("failed to interpolate synthetic spectrum: %w", err)
	}

	terms := make([]float64, 0, observed.Len())
	for i, w := range weights {
		if w == 0 {
			continue
		}
		model := pl.Predict(observed.Wavelength[i])
		if floor > 0 && model < floor {
			model = floor
		}
		diff := observed.Flux[i] - model
		terms = append(terms, diff*diff/model*w)
	}
	return floats.Sum(terms), nil
}

// checkOrdered guards the interpolator, which requires at least two strictly
// increasing wavelengths.
func checkOrdered(s *spectrum.Spectrum) error {
	if s.Len() < 2 {
		return fmt.Errorf("synthetic spectrum has %d samples, need at least 2", s.Len())
	}
	for i := 1; i < s.Len(); i++ {
		if s.Wavelength[i] <= s.Wavelength[i-1] {
			return fmt.Errorf("synthetic wavelengths not strictly increasing at index %d (%g after %g)", i, s.Wavelength[i], s.Wavelength[i-1])
		}
	}
	return nil
}

// Scorer holds an observed spectrum already corrected for radial velocity and
// its window weights, and scores synthetic spectra against it.
type Scorer struct {
	observed *spectrum.Spectrum
	weights  []float64
	corr     Corrections
}

// NewScorer prepares observed for repeated scoring. The observed spectrum is
// copied; windows apply to the rest-frame wavelengths.
func NewScorer(observed *spectrum.Spectrum, windows []Window, corr Corrections) *Scorer {
	obs := observed.Clone()
	if corr.RV != 0 {
		obs.ShiftRV(corr.RV)
	}
	return &Scorer{
		observed: obs,
		weights:  Weights(obs.Wavelength, windows),
		corr:     corr,
	}
}

// Weights returns the window weights of the observed samples.
func (s *Scorer) Weights() []float64 { return s.weights }

// Observed returns the rest-frame observed spectrum.
func (s *Scorer) Observed() *spectrum.Spectrum { return s.observed }

// Score returns the chi-square of synthetic. synthetic is not modified.
func (s *Scorer) Score(synthetic *spectrum.Spectrum) (float64, error) {
	syn := synthetic
	if s.corr.Scale != 0 && s.corr.Scale != 1 {
		syn = synthetic.Clone()
		syn.Scale(s.corr.Scale)
	}
	return chiSquare(syn, s.observed, s.weights, s.corr.FluxFloor)
}

// IsFinite reports whether a chi-square can take part in best-fit selection.
func IsFinite(chi float64) bool {
	return !math.IsNaN(chi) && !math.IsInf(chi, 0)
}
