package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.json")
	cfg := &Config{
		TreeDir:      "/data/tree",
		Origin:       "https://files.example.com/tree",
		ScanInterval: Duration(45 * time.Second),
		Ignore:       []string{"*.bak"},
	}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.TreeDir, loaded.TreeDir)
	assert.Equal(t, cfg.Origin, loaded.Origin)
	assert.Equal(t, cfg.ScanInterval, loaded.ScanInterval)
	assert.Equal(t, cfg.Ignore, loaded.Ignore)
	assert.Equal(t, path, loaded.Path)
}

func TestValidateOrigin(t *testing.T) {
	assert.NoError(t, ValidateOrigin("https://files.example.com/base"))
	assert.NoError(t, ValidateOrigin("http://127.0.0.1:9000"))
	assert.Error(t, ValidateOrigin("ftp://files.example.com"))
	assert.Error(t, ValidateOrigin("not a url"))
	assert.Error(t, ValidateOrigin("/just/a/path"))
}
