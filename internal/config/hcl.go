package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/synfitgo/internal/ctxlog"
	"github.com/specialistvlad/synfitgo/internal/fsutil"
	"github.com/specialistvlad/synfitgo/internal/sampler"
	"github.com/specialistvlad/synfitgo/internal/scoring"
	"github.com/specialistvlad/synfitgo/internal/synthesis"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// HCLLoader reads fit files written in HCL.
type HCLLoader struct{}

// NewHCLLoader creates a new HCL fit loader.
func NewHCLLoader() *HCLLoader {
	return &HCLLoader{}
}

// fileRoot decodes the top-level blocks of one file.
type fileRoot struct {
	Fits      []*block `hcl:"fit,block"`
	Syntheses []*block `hcl:"synthesis,block"`
	Remain    hcl.Body `hcl:",remain"`
}

type block struct {
	Body hcl.Body `hcl:",remain"`
}

// Load reads every .hcl file under paths. Across all files there must be
// exactly one fit block and one synthesis block.
func (l *HCLLoader) Load(ctx context.Context, paths ...string) (*Fit, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %s", strings.Join(paths, ", "))
	}
	logger.Debug("Discovered fit files.", "count", len(files))

	parser := hclparse.NewParser()
	fit := &Fit{Sources: files}
	var fitBody, synBody *block
	var synDir string

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse fit file %s: %w", file, diags)
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode fit file %s: %w", file, diags)
		}

		for _, b := range root.Fits {
			if fitBody != nil {
				return nil, fmt.Errorf("%s: only one fit block is allowed", file)
			}
			fitBody = b
		}
		for _, b := range root.Syntheses {
			if synBody != nil {
				return nil, fmt.Errorf("%s: only one synthesis block is allowed", file)
			}
			synBody = b
			synDir = filepath.Dir(file)
		}
	}
	if fitBody == nil {
		return nil, fmt.Errorf("no fit block found")
	}
	if synBody == nil {
		return nil, fmt.Errorf("no synthesis block found")
	}

	if fit.Spec, err = decodeFitBlock(fitBody.Body); err != nil {
		return nil, err
	}
	if fit.Synthesis, err = decodeSynthesisBlock(synBody.Body, synDir); err != nil {
		return nil, err
	}
	if err := fit.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("Fit loaded.", "params", fit.Spec.Names(), "extra", len(fit.Synthesis.Extra))
	return fit, nil
}

// orderedAttributes returns the attributes of body in source order.
func orderedAttributes(body hcl.Body) ([]*hcl.Attribute, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	out := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Range.Start.Byte < out[j].Range.Start.Byte
	})
	return out, nil
}

func decodeFitBlock(body hcl.Body) (FitSpecification, error) {
	attrs, err := orderedAttributes(body)
	if err != nil {
		return nil, fmt.Errorf("fit block: %w", err)
	}
	spec := make(FitSpecification, 0, len(attrs))
	for _, a := range attrs {
		val, diags := a.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, &sampler.ValidationError{Param: a.Name, Reason: diags.Error()}
		}
		bounds, err := toFloats(val)
		if err != nil {
			return nil, &sampler.ValidationError{
				Param:  a.Name,
				Reason: fmt.Sprintf("expected [min, max, step] at %s: %v", a.Range, err),
			}
		}
		spec = append(spec, FitParam{Name: a.Name, Bounds: bounds})
	}
	return spec, nil
}

func decodeSynthesisBlock(body hcl.Body, dir string) (Synthesis, error) {
	var syn Synthesis
	attrs, err := orderedAttributes(body)
	if err != nil {
		return syn, fmt.Errorf("synthesis block: %w", err)
	}

	for _, a := range attrs {
		val, diags := a.Expr.Value(nil)
		if diags.HasErrors() {
			return syn, fmt.Errorf("synthesis attribute %q: %w", a.Name, diags)
		}
		if err := syn.set(a.Name, val, dir); err != nil {
			return syn, fmt.Errorf("synthesis attribute %q at %s: %w", a.Name, a.Range, err)
		}
	}
	return syn, nil
}

func (s *Synthesis) set(name string, val cty.Value, dir string) error {
	switch name {
	case "teff", "logg":
		var v float64
		if err := gocty.FromCtyValue(val, &v); err != nil {
			return err
		}
		if name == "teff" {
			s.Teff = &v
		} else {
			s.Logg = &v
		}
	case "rv":
		return gocty.FromCtyValue(val, &s.RV)
	case "scale":
		return gocty.FromCtyValue(val, &s.Scale)
	case "observ":
		var p string
		if err := gocty.FromCtyValue(val, &p); err != nil {
			return err
		}
		if p != "" && !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		s.Observ = p
	case "windows":
		windows, err := toWindows(val)
		if err != nil {
			return err
		}
		s.Windows = windows
	case "abund":
		if val.Type() == cty.String {
			return gocty.FromCtyValue(val, &s.AbundText)
		}
		m, err := convert.Convert(val, cty.Map(cty.Number))
		if err != nil {
			return fmt.Errorf("expected a map of element to abundance or an encoded string: %w", err)
		}
		s.Abund = map[string]float64{}
		return gocty.FromCtyValue(m, &s.Abund)
	case "synplot_path":
		if err := gocty.FromCtyValue(val, &s.SynplotPath); err != nil {
			return err
		}
		if s.SynplotPath != "" && !filepath.IsAbs(s.SynplotPath) {
			s.SynplotPath = filepath.Join(dir, s.SynplotPath)
		}
	case "idl":
		var idl bool
		if err := gocty.FromCtyValue(val, &idl); err != nil {
			return err
		}
		s.Software = "gdl"
		if idl {
			s.Software = "idl"
		}
	case "extra":
		if !val.Type().IsObjectType() && !val.Type().IsMapType() {
			return fmt.Errorf("expected an object")
		}
		values := make(map[string]cty.Value, val.LengthInt())
		keys := make([]string, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			values[k.AsString()] = v
			keys = append(keys, k.AsString())
		}
		sort.Strings(keys)
		for _, k := range keys {
			v, err := renderValue(values[k])
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			s.Extra = append(s.Extra, synthesis.Param{Key: k, Value: v})
		}
	default:
		v, err := renderValue(val)
		if err != nil {
			return err
		}
		s.Extra = append(s.Extra, synthesis.Param{Key: name, Value: v})
	}
	return nil
}

func toFloats(val cty.Value) ([]float64, error) {
	list, err := convert.Convert(val, cty.List(cty.Number))
	if err != nil {
		return nil, err
	}
	var out []float64
	if err := gocty.FromCtyValue(list, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// toWindows accepts a single [lo, hi] pair or a list of pairs.
func toWindows(val cty.Value) ([]scoring.Window, error) {
	var pairs [][]float64
	if nested, err := convert.Convert(val, cty.List(cty.List(cty.Number))); err == nil {
		if err := gocty.FromCtyValue(nested, &pairs); err != nil {
			return nil, err
		}
	} else {
		pair, err := toFloats(val)
		if err != nil {
			return nil, fmt.Errorf("expected [lo, hi] or a list of them: %w", err)
		}
		pairs = [][]float64{pair}
	}

	windows := make([]scoring.Window, 0, len(pairs))
	for _, p := range pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("window needs 2 values, got %d", len(p))
		}
		windows = append(windows, scoring.Window{Lo: p[0], Hi: p[1]})
	}
	return windows, nil
}

// renderValue formats a pass-through value the way the synthesis program
// reads it: numbers plainly, booleans as 1/0, lists as [a, b].
func renderValue(val cty.Value) (string, error) {
	if val.IsNull() || !val.IsKnown() {
		return "", fmt.Errorf("value must be known and not null")
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case ty == cty.Bool:
		if val.True() {
			return "1", nil
		}
		return "0", nil
	case ty.IsTupleType() || ty.IsListType():
		var parts []string
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			s, err := renderValue(v)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	}
	return "", fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
}
