// Package elements holds the periodic table used to interpret chemical-element
// fit parameters and the codec that converts abundance mappings to and from the
// positional triplet string consumed by the synthesis program.
package elements

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed elements.toml
var embeddedTable []byte

// UnknownElementError reports an identifier that is neither a known element
// symbol nor a known atomic number.
type UnknownElementError struct {
	ID string
}

func (e *UnknownElementError) Error() string {
	return fmt.Sprintf("unknown chemical element %q: expected a symbol such as \"He\" or an atomic number", e.ID)
}

// Element is a resolved periodic-table entry.
type Element struct {
	Symbol string
	Number int
}

// Table maps element symbols to atomic numbers and back. It is immutable once
// built and safe for concurrent use.
type Table struct {
	bySymbol map[string]int
	byNumber map[int]string
}

type tableDocument struct {
	Elements map[string]int `toml:"elements"`
}

// Load builds the table from the periodic-table document bundled with the binary.
func Load() (*Table, error) {
	return NewTable(embeddedTable)
}

// NewTable parses a TOML document with an [elements] section of
// `Symbol = atomic_number` pairs.
func NewTable(doc []byte) (*Table, error) {
	var parsed tableDocument
	if err := toml.Unmarshal(doc, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse periodic table: %w", err)
	}
	if len(parsed.Elements) == 0 {
		return nil, fmt.Errorf("periodic table has no elements")
	}

	t := &Table{
		bySymbol: make(map[string]int, len(parsed.Elements)),
		byNumber: make(map[int]string, len(parsed.Elements)),
	}
	for symbol, number := range parsed.Elements {
		if number <= 0 {
			return nil, fmt.Errorf("element %s has invalid atomic number %d", symbol, number)
		}
		if other, dup := t.byNumber[number]; dup {
			return nil, fmt.Errorf("atomic number %d assigned to both %s and %s", number, other, symbol)
		}
		t.bySymbol[symbol] = number
		t.byNumber[number] = symbol
	}
	return t, nil
}

// Len returns the number of known elements.
func (t *Table) Len() int { return len(t.bySymbol) }

// Lookup resolves an element given either its symbol or its atomic number in
// decimal form.
func (t *Table) Lookup(id string) (Element, error) {
	id = strings.TrimSpace(id)
	if n, err := strconv.Atoi(id); err == nil {
		if symbol, ok := t.byNumber[n]; ok {
			return Element{Symbol: symbol, Number: n}, nil
		}
		return Element{}, &UnknownElementError{ID: id}
	}
	if n, ok := t.bySymbol[id]; ok {
		return Element{Symbol: id, Number: n}, nil
	}
	return Element{}, &UnknownElementError{ID: id}
}

// IsElement reports whether id names a chemical element.
func (t *Table) IsElement(id string) bool {
	_, err := t.Lookup(id)
	return err == nil
}

// Symbol returns the symbol for an atomic number.
func (t *Table) Symbol(number int) (string, bool) {
	s, ok := t.byNumber[number]
	return s, ok
}
