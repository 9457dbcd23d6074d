package spectrum

import (
	"fmt"
	"io"

	"github.com/astrogo/fitsio"
)

// WavelengthStart returns the wavelength of the first pixel given the
// reference pixel (1-based), the wavelength at that pixel and the dispersion.
func WavelengthStart(crpix1, crval1, cdelt1 float64) float64 {
	return crval1 - (crpix1-1)*cdelt1
}

// WavelengthAxis returns size wavelengths starting at start with step delta.
func WavelengthAxis(start, delta float64, size int) []float64 {
	out := make([]float64, size)
	for i := range out {
		out[i] = start + float64(i)*delta
	}
	return out
}

// ReadFITS reads the flux of the primary HDU and rebuilds the wavelength axis
// from the CRPIX1, CRVAL1 and CDELT1 header keywords.
func ReadFITS(r io.Reader) (*Spectrum, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("primary HDU is not an image")
	}
	hdr := img.Header()

	crpix1, err := headerFloat(hdr, "CRPIX1")
	if err != nil {
		return nil, err
	}
	crval1, err := headerFloat(hdr, "CRVAL1")
	if err != nil {
		return nil, err
	}
	cdelt1, err := headerFloat(hdr, "CDELT1")
	if err != nil {
		return nil, err
	}

	flux, err := readFlux(img, hdr.Bitpix())
	if err != nil {
		return nil, err
	}
	wave := WavelengthAxis(WavelengthStart(crpix1, crval1, cdelt1), cdelt1, len(flux))
	return &Spectrum{Wavelength: wave, Flux: flux}, nil
}

func headerFloat(hdr *fitsio.Header, name string) (float64, error) {
	card := hdr.Get(name)
	if card == nil {
		return 0, fmt.Errorf("header keyword %s is missing", name)
	}
	switch v := card.Value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("header keyword %s has non-numeric value %v", name, card.Value)
	}
}

func readFlux(img fitsio.Image, bitpix int) ([]float64, error) {
	switch bitpix {
	case -64:
		var data []float64
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		return data, nil
	case -32:
		var data []float32
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		return widen(data), nil
	case 8:
		var data []uint8
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		return widen(data), nil
	case 16:
		var data []int16
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		return widen(data), nil
	case 32:
		var data []int32
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		return widen(data), nil
	case 64:
		var data []int64
		if err := img.Read(&data); err != nil {
			return nil, err
		}
		return widen(data), nil
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}
}

func widen[T uint8 | int16 | int32 | int64 | float32](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
