package spectrum

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadText parses whitespace-delimited columns; the first two are wavelength
// and flux. Blank lines and lines starting with '#' are skipped.
func ReadText(r io.Reader) (*Spectrum, error) {
	s := &Spectrum{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected at least 2 columns, got %d", line, len(fields))
		}
		w, err := parseFortranFloat(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: wavelength: %w", line, err)
		}
		f, err := parseFortranFloat(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: flux: %w", line, err)
		}
		s.Wavelength = append(s.Wavelength, w)
		s.Flux = append(s.Flux, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, fmt.Errorf("no samples found")
	}
	return s, nil
}

// parseFortranFloat accepts the D exponent marker Fortran writers emit.
func parseFortranFloat(field string) (float64, error) {
	field = strings.NewReplacer("D", "E", "d", "e").Replace(field)
	return strconv.ParseFloat(field, 64)
}

// WriteText writes one "wavelength flux" line per sample.
func WriteText(w io.Writer, s *Spectrum) error {
	bw := bufio.NewWriter(w)
	for i := range s.Wavelength {
		if _, err := fmt.Fprintf(bw, "%.10g %.10g\n", s.Wavelength[i], s.Flux[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Save writes s to path in text form.
func Save(path string, s *Spectrum) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteText(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
