package spectrum

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadText(t *testing.T) {
	input := `# synthetic spectrum
4460.00 1.0
4460.01   0.99  extra-column

4460.02	0.98D+00
`
	s, err := ReadText(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []float64{4460.00, 4460.01, 4460.02}, s.Wavelength)
	assert.Equal(t, []float64{1.0, 0.99, 0.98}, s.Flux)
}

func TestReadText_Errors(t *testing.T) {
	_, err := ReadText(strings.NewReader(""))
	require.Error(t, err)

	_, err = ReadText(strings.NewReader("4460.0\n"))
	require.ErrorContains(t, err, "line 1")

	_, err = ReadText(strings.NewReader("4460.0 abc\n"))
	require.ErrorContains(t, err, "flux")
}

func TestSaveAndLoadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.dat")
	want := &Spectrum{Wavelength: []float64{4460, 4460.5, 4461}, Flux: []float64{1, 0.75, 1}}

	require.NoError(t, Save(path, want))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.dat"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestClone_IsIndependent(t *testing.T) {
	s := &Spectrum{Wavelength: []float64{1, 2}, Flux: []float64{3, 4}}
	c := s.Clone()
	c.ShiftRV(100)
	c.Scale(2)

	assert.Equal(t, []float64{1, 2}, s.Wavelength)
	assert.Equal(t, []float64{3, 4}, s.Flux)
	assert.Equal(t, []float64{6, 8}, c.Flux)
}

func TestRVFactor(t *testing.T) {
	assert.Equal(t, 1.0, RVFactor(0))
	assert.InDelta(t, 1-50/299792.458, RVFactor(50), 1e-15)
	assert.InDelta(t, 1.0, RVFactor(50)*RVFactor(-50), 1e-7)
}

func TestNew_LengthMismatch(t *testing.T) {
	_, err := New([]float64{1, 2}, []float64{1})
	require.Error(t, err)
}

func TestWavelengthAxis(t *testing.T) {
	start := WavelengthStart(11, 4470, 0.5)
	assert.Equal(t, 4465.0, start)
	assert.Equal(t, []float64{4465, 4465.5, 4466}, WavelengthAxis(start, 0.5, 3))
}

func TestReadFITS(t *testing.T) {
	flux := []float64{1, 0.9, 0.8, 0.9, 1}

	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	require.NoError(t, err)

	img := fitsio.NewImage(-64, []int{len(flux)})
	defer img.Close()
	require.NoError(t, img.Header().Append(
		fitsio.Card{Name: "CRPIX1", Value: 3.0},
		fitsio.Card{Name: "CRVAL1", Value: 4470.0},
		fitsio.Card{Name: "CDELT1", Value: 0.25},
	))
	require.NoError(t, img.Write(flux))
	require.NoError(t, f.Write(img))
	require.NoError(t, f.Close())

	path := filepath.Join(t.TempDir(), "obs.fits")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, flux, s.Flux)
	assert.Equal(t, []float64{4469.5, 4469.75, 4470, 4470.25, 4470.5}, s.Wavelength)
}
