// Package spectrum holds the two-column (wavelength, flux) table shared by
// observed and synthetic spectra, and reads and writes it in the formats the
// fitting pipeline meets: whitespace-delimited text and one-dimensional FITS.
package spectrum

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SpeedOfLight in km/s.
const SpeedOfLight = 299792.458

// Spectrum is a wavelength-ordered table of flux values. Wavelength and Flux
// always have the same length.
type Spectrum struct {
	Wavelength []float64
	Flux       []float64
}

// New builds a spectrum from columns of equal length.
func New(wavelength, flux []float64) (*Spectrum, error) {
	if len(wavelength) != len(flux) {
		return nil, fmt.Errorf("wavelength and flux lengths differ: %d != %d", len(wavelength), len(flux))
	}
	return &Spectrum{Wavelength: wavelength, Flux: flux}, nil
}

// Len returns the number of samples.
func (s *Spectrum) Len() int { return len(s.Wavelength) }

// Clone returns a deep copy. Scoring mutates clones, never the canonical
// spectrum, so a cached spectrum can be reused for every grid point.
func (s *Spectrum) Clone() *Spectrum {
	out := &Spectrum{
		Wavelength: make([]float64, len(s.Wavelength)),
		Flux:       make([]float64, len(s.Flux)),
	}
	copy(out.Wavelength, s.Wavelength)
	copy(out.Flux, s.Flux)
	return out
}

// RVFactor is the multiplicative correction that moves a wavelength observed
// at radial velocity rv (km/s) to the rest frame.
func RVFactor(rv float64) float64 {
	return 1 - rv/SpeedOfLight
}

// ShiftRV multiplies every wavelength by RVFactor(rv) in place.
func (s *Spectrum) ShiftRV(rv float64) {
	f := RVFactor(rv)
	for i := range s.Wavelength {
		s.Wavelength[i] *= f
	}
}

// Scale multiplies every flux value by k in place.
func (s *Spectrum) Scale(k float64) {
	for i := range s.Flux {
		s.Flux[i] *= k
	}
}

// Load reads a spectrum file, choosing the FITS reader for .fits/.fit/.fts
// files and the text reader otherwise.
func Load(path string) (*Spectrum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".fits", ".fit", ".fts":
		s, err := ReadFITS(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read FITS spectrum %s: %w", path, err)
		}
		return s, nil
	default:
		s, err := ReadText(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read spectrum %s: %w", path, err)
		}
		return s, nil
	}
}
