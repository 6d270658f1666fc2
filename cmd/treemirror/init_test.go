package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treemirror/treemirror/internal/config"
)

func TestInitWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	rootCmd.SetArgs([]string{"init", "--config", path, "--origin", "https://files.example.com/tree"})
	require.NoError(t, rootCmd.Execute())

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/tree", cfg.Origin)
	assert.Equal(t, config.Duration(30*time.Second), cfg.ScanInterval)
	assert.Equal(t, config.Duration(30*time.Second), cfg.UpdateInterval)

	// a second run must not clobber the existing file
	assert.Error(t, rootCmd.Execute())
}

func TestInitRejectsBadOrigin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	rootCmd.SetArgs([]string{"init", "--config", path, "--origin", "ftp://nope"})
	assert.Error(t, rootCmd.Execute())
}
