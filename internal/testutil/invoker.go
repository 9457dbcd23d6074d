package testutil

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/synfitgo/internal/elements"
	"github.com/specialistvlad/synfitgo/internal/spectrum"
	"github.com/specialistvlad/synfitgo/internal/synthesis"
)

// LineCenter is the rest wavelength of the line LineModel draws (He I 4471).
const LineCenter = 4471.48

// LineModel is an analytic stand-in for the synthesis program: a single
// Gaussian absorption line whose depth and width respond to every parameter
// the fitting tests sweep.
type LineModel struct {
	Teff   float64
	Logg   float64
	He     float64
	Vrot   float64
	VmacRT float64
}

// DefaultLineModel is the model used for parameters a request leaves out.
func DefaultLineModel() LineModel {
	return LineModel{Teff: 20000, Logg: 4, He: 10.93}
}

// Spectrum samples the model on 4460-4480 Å with a 0.01 Å step.
func (m LineModel) Spectrum() *spectrum.Spectrum {
	const start, step, n = 4460.0, 0.01, 2001
	depth := (0.4 + 2*(m.He-10.93)) * 20000 / m.Teff
	sigma0 := 0.3 + 0.05*(m.Logg-4)
	sigma := math.Sqrt(sigma0*sigma0 + math.Pow(0.02*m.Vrot, 2) + math.Pow(0.015*m.VmacRT, 2))

	s := &spectrum.Spectrum{Wavelength: make([]float64, n), Flux: make([]float64, n)}
	for i := range n {
		w := start + float64(i)*step
		s.Wavelength[i] = w
		s.Flux[i] = 1 - depth*math.Exp(-0.5*math.Pow((w-LineCenter)/sigma, 2))
	}
	return s
}

// FakeInvoker implements synthesis.Invoker with LineModel. It counts calls and
// records requests so tests can check which path the fit took.
type FakeInvoker struct {
	// Fail, when set, is consulted before every call.
	Fail func(req synthesis.Request) error
	// Delay is slept on every call.
	Delay time.Duration

	syntheses    atomic.Int64
	convolutions atomic.Int64

	mu       sync.Mutex
	requests []synthesis.Request
	codec    *elements.Codec
}

// NewFakeInvoker returns a ready fake.
func NewFakeInvoker() *FakeInvoker {
	table, err := elements.Load()
	if err != nil {
		panic(err)
	}
	return &FakeInvoker{codec: elements.NewCodec(table)}
}

// Synthesize evaluates the model. The synthesis parameters are kept as the
// "unconvolved" artifact.
func (f *FakeInvoker) Synthesize(ctx context.Context, req synthesis.Request) (*synthesis.Output, error) {
	if err := f.enter(ctx, req); err != nil {
		return nil, err
	}
	f.syntheses.Add(1)

	m, err := f.model(req, DefaultLineModel())
	if err != nil {
		return nil, err
	}
	return &synthesis.Output{
		Spectrum:  m.Spectrum(),
		Artifacts: map[string][]byte{"fort.7": []byte(fmt.Sprintf("%v %v %v", m.Teff, m.Logg, m.He))},
	}, nil
}

// Convolve evaluates the model with the synthesis parameters taken from base
// and the convolution parameters from req.
func (f *FakeInvoker) Convolve(ctx context.Context, base *synthesis.Output, req synthesis.Request) (*synthesis.Output, error) {
	if err := f.enter(ctx, req); err != nil {
		return nil, err
	}
	f.convolutions.Add(1)

	m := DefaultLineModel()
	if _, err := fmt.Sscan(string(base.Artifacts["fort.7"]), &m.Teff, &m.Logg, &m.He); err != nil {
		return nil, fmt.Errorf("bad artifact: %w", err)
	}
	conv, err := f.model(req, m)
	if err != nil {
		return nil, err
	}
	m.Vrot, m.VmacRT = conv.Vrot, conv.VmacRT
	return &synthesis.Output{Spectrum: m.Spectrum(), Artifacts: base.Artifacts}, nil
}

func (f *FakeInvoker) enter(ctx context.Context, req synthesis.Request) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.Fail != nil {
		if err := f.Fail(req); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (f *FakeInvoker) model(req synthesis.Request, m LineModel) (LineModel, error) {
	for _, p := range []struct {
		key string
		dst *float64
	}{{"teff", &m.Teff}, {"logg", &m.Logg}, {"vrot", &m.Vrot}, {"vmac_rt", &m.VmacRT}} {
		v, ok := req.Get(p.key)
		if !ok {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return m, fmt.Errorf("%s: %w", p.key, err)
		}
		*p.dst = x
	}
	if v, ok := req.Get("abund"); ok {
		he, err := f.codec.Decode(strings.Trim(v, "'"), "He")
		if err != nil {
			return m, err
		}
		if !math.IsNaN(he["He"]) {
			m.He = he["He"]
		}
	}
	return m, nil
}

// Syntheses returns the number of full syntheses run.
func (f *FakeInvoker) Syntheses() int64 { return f.syntheses.Load() }

// Convolutions returns the number of convolution-only calls run.
func (f *FakeInvoker) Convolutions() int64 { return f.convolutions.Load() }

// Requests returns a copy of every request received, in arrival order.
func (f *FakeInvoker) Requests() []synthesis.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]synthesis.Request(nil), f.requests...)
}
