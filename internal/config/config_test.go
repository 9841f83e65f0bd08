package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	content := `
[engine]
array_type = "vector"

[server]
log_file = "/tmp/angel.log"
semantic_highlighting = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "vector", cfg.Engine.ArrayType)
	require.Equal(t, "/tmp/angel.log", cfg.Server.LogFile)
	require.False(t, cfg.Server.SemanticHighlighting)
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.Equal(t, "array", cfg.Engine.ArrayType)
	require.True(t, cfg.Server.SemanticHighlighting)
}

func TestFindClimbsUpward(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	path := filepath.Join(root, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("[engine]\n"), 0644))

	found := Find(nested)
	require.Equal(t, path, found)
}

func TestLoadNearFallsBack(t *testing.T) {
	dir := t.TempDir()
	cfg := LoadNear(dir)
	require.Equal(t, "array", cfg.Engine.ArrayType)
}
