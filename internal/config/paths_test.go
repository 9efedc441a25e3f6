package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ResolvePaths tests ---

func TestResolvePaths_AllFields(t *testing.T) {
	t.Setenv("GORK_HOME", "")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".gork"), paths.Base)
	assert.Equal(t, filepath.Join(home, ".gork", "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(home, ".gork", "data"), paths.Data)
	assert.Equal(t, filepath.Join(home, ".gork", "media"), paths.Media)
	assert.Equal(t, filepath.Join(home, ".gork", "logs"), paths.Logs)
}

func TestResolvePaths_CustomHome(t *testing.T) {
	t.Setenv("GORK_HOME", "/tmp/testgork")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/testgork", paths.Base)
	assert.Equal(t, "/tmp/testgork/config.yaml", paths.Config)
	assert.Equal(t, "/tmp/testgork/data/gork.db", paths.DatabasePath())
	assert.Equal(t, "/tmp/testgork/media/gifs.json", paths.Resolve("media/gifs.json"))
	assert.Equal(t, "/abs/gifs.json", paths.Resolve("/abs/gifs.json"))
	assert.Equal(t, "", paths.Resolve(""))
}

func TestEnsureDirs_CreatesAll(t *testing.T) {
	tmpDir := t.TempDir()
	paths := Paths{
		Base:  tmpDir,
		Data:  filepath.Join(tmpDir, "data"),
		Media: filepath.Join(tmpDir, "media"),
		Logs:  filepath.Join(tmpDir, "logs"),
	}

	require.NoError(t, paths.EnsureDirs())
	require.NoError(t, paths.EnsureDirs())

	for _, dir := range []string{paths.Base, paths.Data, paths.Media, paths.Logs} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
