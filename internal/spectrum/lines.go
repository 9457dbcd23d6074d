package spectrum

import (
	"fmt"
	"math"
)

// LineMode tells whether a line is a flux minimum or a flux maximum.
type LineMode int

const (
	Absorption LineMode = iota
	Emission
)

// Subselect returns a copy of the samples with min <= wavelength <= max,
// moved to the rest frame of radial velocity rv.
func (s *Spectrum) Subselect(min, max, rv float64) (*Spectrum, error) {
	out := &Spectrum{}
	f := RVFactor(rv)
	for i, w := range s.Wavelength {
		if w < min || w > max {
			continue
		}
		out.Wavelength = append(out.Wavelength, w*f)
		out.Flux = append(out.Flux, s.Flux[i])
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("no samples in [%g, %g]", min, max)
	}
	return out, nil
}

// LinePosition returns the wavelength and flux of the deepest (Absorption) or
// highest (Emission) sample within window of center.
func (s *Spectrum) LinePosition(center, window float64, mode LineMode) (float64, float64, error) {
	i, err := s.lineIndex(center, window, mode)
	if err != nil {
		return 0, 0, err
	}
	return s.Wavelength[i], s.Flux[i], nil
}

// FWHM measures the full width at half depth of the absorption line nearest
// center on a continuum-normalised spectrum. Both half-depth crossings are
// linearly interpolated.
func (s *Spectrum) FWHM(center, window float64) (float64, error) {
	core, err := s.lineIndex(center, window, Absorption)
	if err != nil {
		return 0, err
	}
	half := 1 - (1-s.Flux[core])/2

	left := math.NaN()
	for i := core; i > 0; i-- {
		if s.Flux[i-1] >= half {
			left = crossing(s.Wavelength[i-1], s.Flux[i-1], s.Wavelength[i], s.Flux[i], half)
			break
		}
	}
	right := math.NaN()
	for i := core; i < s.Len()-1; i++ {
		if s.Flux[i+1] >= half {
			right = crossing(s.Wavelength[i], s.Flux[i], s.Wavelength[i+1], s.Flux[i+1], half)
			break
		}
	}
	if math.IsNaN(left) || math.IsNaN(right) {
		return 0, fmt.Errorf("line at %g does not reach half depth on both wings", s.Wavelength[core])
	}
	return right - left, nil
}

func (s *Spectrum) lineIndex(center, window float64, mode LineMode) (int, error) {
	best := -1
	for i, w := range s.Wavelength {
		if math.Abs(w-center) > window || math.IsNaN(s.Flux[i]) {
			continue
		}
		if best < 0 ||
			(mode == Absorption && s.Flux[i] < s.Flux[best]) ||
			(mode == Emission && s.Flux[i] > s.Flux[best]) {
			best = i
		}
	}
	if best < 0 {
		return 0, fmt.Errorf("no samples within %g of %g", window, center)
	}
	return best, nil
}

func crossing(w0, f0, w1, f1, level float64) float64 {
	if f1 == f0 {
		return w0
	}
	return w0 + (level-f0)*(w1-w0)/(f1-f0)
}
