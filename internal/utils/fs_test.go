package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	t.Run("creates directory", func(t *testing.T) {
		tempDir := t.TempDir()
		testPath := filepath.Join(tempDir, "subdir", "file.txt")

		err := EnsureDir(testPath)
		require.NoError(t, err)

		// Check that the directory was created
		info, err := os.Stat(filepath.Dir(testPath))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("existing directory", func(t *testing.T) {
		tempDir := t.TempDir()
		testPath := filepath.Join(tempDir, "file.txt")

		err := EnsureDir(testPath)
		require.NoError(t, err)

		// Should not error if directory already exists
		err = EnsureDir(testPath)
		require.NoError(t, err)
	})
}

func TestExpandPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "home directory with slash",
			input:    "~/test",
			expected: filepath.Join(os.Getenv("HOME"), "test"),
		},
		{
			name:     "home directory only",
			input:    "~",
			expected: os.Getenv("HOME"),
		},
		{
			name:     "regular path",
			input:    "/tmp/test",
			expected: "/tmp/test",
		},
		{
			name:     "relative path",
			input:    "./test",
			expected: "./test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExpandPath(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAbsPath(t *testing.T) {
	t.Parallel()

	abs, err := AbsPath("a/../b/manifest.yaml")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))
	assert.Equal(t, "manifest.yaml", filepath.Base(abs))
	assert.Equal(t, "b", filepath.Base(filepath.Dir(abs)))
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "out", "resolved.yaml")

	require.NoError(t, WriteFileAtomic(target, []byte("a: 1\n"), 0644))
	require.NoError(t, WriteFileAtomic(target, []byte("a: 2\n"), 0644))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "a: 2\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}
