package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteManifest writes content to dir/name, creating parent directories, and
// returns the absolute path. Leading tabs used to indent YAML in Go source
// are not touched; write manifests with spaces.
func WriteManifest(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimLeft(content, "\n")), 0644))

	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	return abs
}

// ManifestTree writes every name → content pair under a fresh temporary
// directory and returns the directory
func ManifestTree(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		WriteManifest(t, dir, name, content)
	}
	return dir
}
