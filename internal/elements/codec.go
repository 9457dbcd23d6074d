package elements

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Abundances maps atomic numbers to logarithmic abundances. Keys are always
// atomic numbers; symbols are normalised away by Codec.Normalize.
type Abundances map[int]float64

// Numbers returns the atomic numbers in ascending order.
func (a Abundances) Numbers() []int {
	out := make([]int, 0, len(a))
	for n := range a {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Merge returns a new mapping holding every fixed abundance overridden by the
// swept ones. Neither input is modified.
func Merge(fixed, swept Abundances) Abundances {
	out := make(Abundances, len(fixed)+len(swept))
	for n, v := range fixed {
		out[n] = v
	}
	for n, v := range swept {
		out[n] = v
	}
	return out
}

var tripletPattern = regexp.MustCompile(`(\d+)\s*,\s*(\d+)\s*,\s*(-?\d+(?:\.\d+)?)`)

// Codec converts abundances between the mapping form and the triplet string
// `[Z, Z, value, ...]` understood by the synthesis program.
type Codec struct {
	table *Table
}

// NewCodec returns a codec resolving element identifiers against table.
func NewCodec(table *Table) *Codec {
	return &Codec{table: table}
}

// Table returns the periodic table the codec resolves identifiers with.
func (c *Codec) Table() *Table { return c.table }

// Normalize converts a mapping keyed by symbol or atomic number into
// Abundances keyed by atomic number.
func (c *Codec) Normalize(m map[string]float64) (Abundances, error) {
	out := make(Abundances, len(m))
	for id, v := range m {
		el, err := c.table.Lookup(id)
		if err != nil {
			return nil, err
		}
		out[el.Number] = v
	}
	return out, nil
}

// Encode writes abundances in ascending atomic-number order, each value with
// two decimals: {2: 10.93, 8: 8.69} -> "[2, 2, 10.93, 8, 8, 8.69]".
func (c *Codec) Encode(a Abundances) string {
	parts := make([]string, 0, len(a))
	for _, n := range a.Numbers() {
		parts = append(parts, fmt.Sprintf("%d, %d, %.2f", n, n, a[n]))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Decode extracts the abundance of every requested element from an encoded
// string. The result is keyed by element symbol; an element missing from text
// maps to NaN.
func (c *Codec) Decode(text string, ids ...string) (map[string]float64, error) {
	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		el, err := c.table.Lookup(id)
		if err != nil {
			return nil, err
		}
		z := strconv.Itoa(el.Number)
		pattern := regexp.MustCompile(`(?:^|[^\d.])` + z + `,\s?` + z + `,\s?(-?\d+(?:\.\d+)?)`)
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			out[el.Symbol] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil, fmt.Errorf("abundance of %s in %q: %w", el.Symbol, text, err)
		}
		out[el.Symbol] = v
	}
	return out, nil
}

// Parse decodes every triplet of an encoded string.
func (c *Codec) Parse(text string) (Abundances, error) {
	out := make(Abundances)
	for _, m := range tripletPattern.FindAllStringSubmatch(text, -1) {
		if m[1] != m[2] {
			return nil, fmt.Errorf("malformed abundance triplet %q: atomic numbers differ", m[0])
		}
		el, err := c.table.Lookup(m[1])
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed abundance triplet %q: %w", m[0], err)
		}
		out[el.Number] = v
	}
	if len(out) == 0 && strings.Trim(strings.TrimSpace(text), "[]") != "" {
		return nil, fmt.Errorf("no abundance triplets found in %q", text)
	}
	return out, nil
}
