package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, "minsh:%s$ ", c.Prompt)
	assert.Equal(t, 200, c.History.Size)
	assert.Equal(t, 64, c.Jobs.Max)
	assert.NotEmpty(t, c.History.File)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minshrc")
	rc := `
prompt = "$ "

[history]
size = 50

[jobs]
max = 8
`
	require.NoError(t, os.WriteFile(path, []byte(rc), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "$ ", c.Prompt)
	assert.Equal(t, 50, c.History.Size)
	assert.Equal(t, 8, c.Jobs.Max)
	// untouched key keeps its default
	assert.Equal(t, Default().History.File, c.History.File)
}

func TestLoadBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minshrc")
	require.NoError(t, os.WriteFile(path, []byte("prompt = ["), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}
