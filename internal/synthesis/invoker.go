package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/synfitgo/internal/spectrum"
)

// Param is one `key = value` pair of the synthesis command. Value is written
// verbatim.
type Param struct {
	Key   string
	Value string
}

// Request describes one invocation.
type Request struct {
	// Label identifies the grid point in logs and errors.
	Label  string
	Params []Param
}

// Get returns the value of key.
func (r Request) Get(key string) (string, bool) {
	for _, p := range r.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// With returns a copy of r with key set to value, replacing an existing entry
// in place or appending a new one.
func (r Request) With(key, value string) Request {
	out := Request{Label: r.Label, Params: make([]Param, 0, len(r.Params)+1)}
	replaced := false
	for _, p := range r.Params {
		if p.Key == key {
			p.Value = value
			replaced = true
		}
		out.Params = append(out.Params, p)
	}
	if !replaced {
		out.Params = append(out.Params, Param{Key: key, Value: value})
	}
	return out
}

// String renders the parameter list the way the program receives it.
func (r Request) String() string {
	parts := make([]string, len(r.Params))
	for i, p := range r.Params {
		parts[i] = p.Key + " = " + p.Value
	}
	return strings.Join(parts, ", ")
}

// Output is the product of one invocation: the spectrum and any captured
// working files needed to convolve it again later.
type Output struct {
	Spectrum  *spectrum.Spectrum
	Artifacts map[string][]byte
}

// Invoker runs the external synthesis program.
type Invoker interface {
	// Synthesize runs a full synthesis.
	Synthesize(ctx context.Context, req Request) (*Output, error)
	// Convolve re-broadens a previously synthesized, unconvolved output with
	// the rotational parameters in req.
	Convolve(ctx context.Context, base *Output, req Request) (*Output, error)
}

// SynthesisFailure is returned when the program did not produce its output:
// non-zero exit, timeout, or a missing or unreadable spectrum file.
type SynthesisFailure struct {
	Label  string
	Reason string
	Err    error
}

func (e *SynthesisFailure) Error() string {
	msg := fmt.Sprintf("synthesis failed for [%s]: %s", e.Label, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SynthesisFailure) Unwrap() error { return e.Err }
