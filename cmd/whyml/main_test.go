package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const homeManifest = `
extends: base.yaml
metadata:
  title: "{{site}} home"
  description: Landing page
variables:
  color: blue
`

const baseManifest = `
metadata:
  title: Base
  description: Base layout
variables:
  color: red
  site: Acme
structure:
  div:
    class: "{{color}}"
`

// run executes the root command in an isolated home and working directory
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "whyml")
}

func TestResolveCmd_Stdout(t *testing.T) {
	dir := testutil.ManifestTree(t, map[string]string{
		"home.yaml": homeManifest,
		"base.yaml": baseManifest,
	})

	out, _, err := run(t, "resolve", filepath.Join(dir, "home.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "title: Acme home")
	assert.Contains(t, out, "color: blue")
}

func TestResolveCmd_OutputFile(t *testing.T) {
	dir := testutil.ManifestTree(t, map[string]string{
		"home.yaml": homeManifest,
		"base.yaml": baseManifest,
	})
	target := filepath.Join(t.TempDir(), "out", "home.json")

	out, _, err := run(t, "resolve", filepath.Join(dir, "home.yaml"), "-f", "json", "-o", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.True(t, json.Valid(data))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	meta := doc["metadata"].(map[string]any)
	assert.Equal(t, "Acme home", meta["title"])
}

func TestResolveCmd_OutDir(t *testing.T) {
	dir := testutil.ManifestTree(t, map[string]string{
		"home.yaml": homeManifest,
		"base.yaml": baseManifest,
	})
	outDir := filepath.Join(t.TempDir(), "site")

	out, _, err := run(t, "resolve", filepath.Join(dir, "home.yaml"), filepath.Join(dir, "base.yaml"), "--out-dir", outDir, "--index")
	require.NoError(t, err)
	assert.Empty(t, out)

	home, err := os.ReadFile(filepath.Join(outDir, "home.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(home), "title: Acme home")
	assert.FileExists(t, filepath.Join(outDir, "base.yaml"))

	data, err := os.ReadFile(filepath.Join(outDir, "index.json"))
	require.NoError(t, err)
	var index struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(data, &index))
	assert.Equal(t, 2, index.Total)
}

func TestResolveCmd_ExternalVariables(t *testing.T) {
	dir := testutil.ManifestTree(t, map[string]string{
		"home.yaml": homeManifest,
		"base.yaml": baseManifest,
	})

	out, _, err := run(t, "resolve", filepath.Join(dir, "home.yaml"), "--var", "site=Globex")
	require.NoError(t, err)
	assert.Contains(t, out, "title: Globex home")
}

func TestResolveCmd_MultipleSources(t *testing.T) {
	dir := testutil.ManifestTree(t, map[string]string{
		"home.yaml": homeManifest,
		"base.yaml": baseManifest,
	})

	out, _, err := run(t, "resolve", filepath.Join(dir, "home.yaml"), filepath.Join(dir, "base.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "---\n")
	assert.Contains(t, out, "title: Acme home")
	assert.Contains(t, out, "title: Base")
}

func TestResolveCmd_Errors(t *testing.T) {
	dir := testutil.ManifestTree(t, map[string]string{"home.yaml": homeManifest})
	source := filepath.Join(dir, "home.yaml")

	tests := []struct {
		name string
		args []string
	}{
		{"missing parent", []string{"resolve", source}},
		{"unknown format", []string{"resolve", source, "-f", "toml"}},
		{"unknown section", []string{"resolve", source, "--sections", "layout"}},
		{"malformed var", []string{"resolve", source, "--var", "novalue"}},
		{"no args", []string{"resolve"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestResolveCmd_InvalidManifest(t *testing.T) {
	dir := testutil.ManifestTree(t, map[string]string{"page.yaml": "styles:\n  body: \"margin: 0\"\n"})

	out, stderr, err := run(t, "resolve", filepath.Join(dir, "page.yaml"))
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Contains(t, out, "styles:")
	assert.Contains(t, stderr, "metadata.title")
}

func TestValidateCmd(t *testing.T) {
	dir := testutil.ManifestTree(t, map[string]string{
		"home.yaml": homeManifest,
		"base.yaml": baseManifest,
		"bare.yaml": "styles:\n  body: \"margin: 0\"\n",
	})

	t.Run("valid", func(t *testing.T) {
		out, _, err := run(t, "validate", filepath.Join(dir, "home.yaml"))
		require.NoError(t, err)
		assert.Contains(t, out, "home.yaml: valid")
	})

	t.Run("invalid", func(t *testing.T) {
		out, _, err := run(t, "validate", filepath.Join(dir, "bare.yaml"))
		require.Error(t, err)
		assert.Contains(t, out, "bare.yaml: invalid")
		assert.Contains(t, out, "metadata.title")
	})

	t.Run("selected sections", func(t *testing.T) {
		_, _, err := run(t, "validate", filepath.Join(dir, "bare.yaml"), "--sections", "styles")
		assert.NoError(t, err)
	})

	t.Run("json report", func(t *testing.T) {
		out, _, err := run(t, "validate", filepath.Join(dir, "home.yaml"), filepath.Join(dir, "missing.yaml"), "-f", "json")
		require.Error(t, err)

		var reports []validateReport
		require.NoError(t, json.Unmarshal([]byte(out), &reports))
		require.Len(t, reports, 2)
		assert.True(t, reports[0].Valid)
		assert.False(t, reports[1].Valid)
		require.NotNil(t, reports[1].Error)
		assert.Equal(t, domain.KindNotFound, reports[1].Error.Kind)
	})
}

func TestCacheCmd(t *testing.T) {
	out, _, err := run(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache cleared")

	out, _, err = run(t, "cache", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "entries: 0")
}

func TestParseVars(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]any
		wantErr bool
	}{
		{
			name:  "typed scalars",
			pairs: []string{"size=10", "ratio=1.5", "dark=true", "name=Acme"},
			want:  map[string]any{"size": 10, "ratio": 1.5, "dark": true, "name": "Acme"},
		},
		{
			name:  "value containing equals",
			pairs: []string{"query=a=b"},
			want:  map[string]any{"query": "a=b"},
		},
		{
			name:  "empty value",
			pairs: []string{"blank="},
			want:  map[string]any{"blank": ""},
		},
		{
			name:  "structured values stay strings",
			pairs: []string{"list=[1, 2]"},
			want:  map[string]any{"list": "[1, 2]"},
		},
		{name: "missing equals", pairs: []string{"size"}, wantErr: true},
		{name: "empty key", pairs: []string{"=1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVars(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
