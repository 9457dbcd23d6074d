package sampler

import (
	"fmt"
	"math"
)

// ValidationError reports a malformed fit range.
type ValidationError struct {
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid fit parameter %q: %s", e.Param, e.Reason)
}

// Param is one fit dimension as given by the user: a name and its
// [min, max, step] bounds.
type Param struct {
	Name   string
	Bounds []float64
}

// Specification is the ordered list of fit parameters.
type Specification []Param

// Names returns the parameter names in order.
func (s Specification) Names() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.Name
	}
	return out
}

// Dimension is a sampled fit parameter.
type Dimension struct {
	Name   string
	Values []float64
}

// Sample validates every parameter and expands it into its sample vector.
func Sample(spec Specification) ([]Dimension, error) {
	seen := make(map[string]struct{}, len(spec))
	dims := make([]Dimension, 0, len(spec))
	total := 1
	for _, p := range spec {
		if p.Name == "" {
			return nil, &ValidationError{Param: p.Name, Reason: "name must not be empty"}
		}
		if _, dup := seen[p.Name]; dup {
			return nil, &ValidationError{Param: p.Name, Reason: "declared more than once"}
		}
		seen[p.Name] = struct{}{}

		if len(p.Bounds) != 3 {
			return nil, &ValidationError{Param: p.Name, Reason: fmt.Sprintf("expected [min, max, step], got %d values", len(p.Bounds))}
		}
		values, err := Values(p.Bounds[0], p.Bounds[1], p.Bounds[2])
		if err != nil {
			return nil, &ValidationError{Param: p.Name, Reason: err.Error()}
		}
		total *= len(values)
		if total > MaxSamples {
			return nil, &ValidationError{Param: p.Name, Reason: "too many samples"}
		}
		dims = append(dims, Dimension{Name: p.Name, Values: values})
	}
	return dims, nil
}

// MaxSamples bounds both a single dimension and the whole grid.
const MaxSamples = 1_000_000

// Count returns the number of samples between min and max for step. Counts
// that do not fit in an int saturate at math.MaxInt.
func Count(min, max, step float64) int {
	steps := math.RoundToEven((max - min) / step)
	if steps >= math.MaxInt {
		return math.MaxInt
	}
	return int(steps) + 1
}

// Values returns the evenly spaced samples from min to max inclusive.
func Values(min, max, step float64) ([]float64, error) {
	for _, v := range []float64{min, max, step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("bounds must be finite numbers")
		}
	}
	if step <= 0 {
		return nil, fmt.Errorf("step must be positive, got %g", step)
	}
	if min > max {
		return nil, fmt.Errorf("min %g is greater than max %g", min, max)
	}

	n := Count(min, max, step)
	if n > MaxSamples {
		return nil, fmt.Errorf("too many samples")
	}
	if n == 1 {
		return []float64{min}, nil
	}
	delta := (max - min) / float64(n-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = min + float64(i)*delta
	}
	out[n-1] = max
	return out, nil
}
