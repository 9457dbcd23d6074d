package spectrum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaussianLine(center, sigma, depth float64) *Spectrum {
	wave := WavelengthAxis(center-1, 0.001, 2001)
	flux := make([]float64, len(wave))
	for i, w := range wave {
		flux[i] = 1 - depth*math.Exp(-(w-center)*(w-center)/(2*sigma*sigma))
	}
	return &Spectrum{Wavelength: wave, Flux: flux}
}

func TestSubselect(t *testing.T) {
	s := &Spectrum{
		Wavelength: []float64{4470, 4471, 4472, 4473},
		Flux:       []float64{1, 0.9, 0.8, 0.7},
	}

	cut, err := s.Subselect(4471, 4472, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{4471, 4472}, cut.Wavelength)
	assert.Equal(t, []float64{0.9, 0.8}, cut.Flux)

	cut, err = s.Subselect(4471, 4472, 30)
	require.NoError(t, err)
	assert.InDelta(t, 4471*RVFactor(30), cut.Wavelength[0], 1e-9)
	assert.Equal(t, []float64{4470, 4471, 4472, 4473}, s.Wavelength, "source is untouched")

	_, err = s.Subselect(5000, 5001, 0)
	require.ErrorContains(t, err, "no samples")
}

func TestLinePosition(t *testing.T) {
	s := gaussianLine(4471.5, 0.1, 0.4)

	w, f, err := s.LinePosition(4471.45, 0.2, Absorption)
	require.NoError(t, err)
	assert.InDelta(t, 4471.5, w, 1e-9)
	assert.InDelta(t, 0.6, f, 1e-9)

	w, f, err = s.LinePosition(4471.5, 0.5, Emission)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, f, 1e-5)
	assert.Greater(t, math.Abs(w-4471.5), 0.4)

	_, _, err = s.LinePosition(6000, 0.1, Absorption)
	require.ErrorContains(t, err, "no samples")
}

func TestFWHM(t *testing.T) {
	sigma := 0.1
	s := gaussianLine(4471.5, sigma, 0.5)

	width, err := s.FWHM(4471.5, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Sqrt(2*math.Ln2)*sigma, width, 1e-4)
}

func TestFWHM_TruncatedWing(t *testing.T) {
	s := gaussianLine(4471.5, 0.1, 0.5)
	cut, err := s.Subselect(4471.45, 4472.5, 0)
	require.NoError(t, err)

	_, err = cut.FWHM(4471.5, 0.1)
	require.ErrorContains(t, err, "half depth")
}
