package elements

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_BundledTable(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 118, table.Len())

	he, err := table.Lookup("He")
	require.NoError(t, err)
	assert.Equal(t, Element{Symbol: "He", Number: 2}, he)

	fe, err := table.Lookup("26")
	require.NoError(t, err)
	assert.Equal(t, "Fe", fe.Symbol)

	symbol, ok := table.Symbol(14)
	require.True(t, ok)
	assert.Equal(t, "Si", symbol)
}

func TestIsElement(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)

	assert.True(t, table.IsElement("O"))
	assert.True(t, table.IsElement("8"))
	assert.False(t, table.IsElement("vrot"))
	assert.False(t, table.IsElement("teff"))
	assert.False(t, table.IsElement("he"), "symbols are case-sensitive")
}

func TestNewTable_RejectsDuplicates(t *testing.T) {
	_, err := NewTable([]byte("[elements]\nA = 1\nB = 1\n"))
	require.Error(t, err)

	_, err = NewTable([]byte("[elements]\n"))
	require.Error(t, err)
}
