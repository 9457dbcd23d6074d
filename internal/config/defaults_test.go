package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultsFileName)
	require.NoError(t, os.WriteFile(path, []byte(`
synplot_path = "/opt/synplot"
software = "gdl"
timeout = "90s"
library_files = ["fort.7", "fort.17", "fort.12"]
workers = 4
`), 0o644))

	d, err := LoadDefaults(path, true)
	require.NoError(t, err)
	assert.Equal(t, "/opt/synplot", d.SynplotPath)
	assert.Equal(t, "gdl", d.Software)
	assert.Equal(t, []string{"fort.7", "fort.17", "fort.12"}, d.LibraryFiles)
	assert.Equal(t, 4, d.Workers)

	timeout, err := d.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, timeout)

	applied := d.Apply(Synthesis{SynplotPath: "/elsewhere"})
	assert.Equal(t, "/elsewhere", applied.SynplotPath)
	assert.Equal(t, "gdl", applied.Software)
	assert.Equal(t, "/opt/synplot", d.SynplotPath, "Apply works on a copy")
}

func TestLoadDefaults_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")

	d, err := LoadDefaults(path, false)
	require.NoError(t, err)
	assert.Equal(t, &Defaults{}, d)

	_, err = LoadDefaults(path, true)
	assert.Error(t, err)
}

func TestLoadDefaults_Invalid(t *testing.T) {
	testCases := map[string]string{
		"syntax":   "software = ",
		"timeout":  `timeout = "soon"`,
		"software": `software = "/no/such/interpreter"`,
	}
	for name, content := range testCases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "d.toml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := LoadDefaults(path, true)
			assert.Error(t, err)
		})
	}
}
